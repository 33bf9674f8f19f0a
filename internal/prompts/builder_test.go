package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveplatform/mosh/internal/cultural"
)

func japanParams() CallParams {
	return CallParams{
		BusinessName:   "Sukiyabashi Jiro",
		Country:        "japan",
		Language:       "Japanese",
		Objective:      `Book a table for two at 7pm on Friday. The caller's name is "Sarah".`,
		TonePreference: "polite",
	}
}

func TestBuildGreeting(t *testing.T) {
	profile, ok := cultural.Lookup("japan")
	require.True(t, ok)

	g := BuildGreeting(japanParams(), profile)
	assert.True(t, strings.HasPrefix(g, profile.Greeting))
	assert.Contains(t, g, profile.SelfIntro)
	assert.Contains(t, g, "Book a table for two")
	assert.NotContains(t, g, "\n")
}

func TestBuildGreetingDeterministic(t *testing.T) {
	profile, _ := cultural.Lookup("japan")
	p := japanParams()
	assert.Equal(t, BuildGreeting(p, profile), BuildGreeting(p, profile))
}

func TestBuildSystemPrompt(t *testing.T) {
	profile, _ := cultural.Lookup("japan")
	p := japanParams()
	prompt := BuildSystemPrompt(p, profile)

	assert.True(t, strings.HasPrefix(prompt,
		"You are making a phone call to Sukiyabashi Jiro on behalf of a client. Speak ONLY in Japanese."))
	assert.Contains(t, prompt, "TASK TYPE: RESTAURANT RESERVATION")
	assert.Contains(t, prompt, "CONVERSATION FLOW:")
	assert.Contains(t, prompt, "PAYMENT / FEES / DEPOSITS:")
	assert.Contains(t, prompt, "Be polite in tone.")
	assert.Contains(t, prompt, "CULTURAL ETIQUETTE FOR JAPAN:")
	assert.Contains(t, prompt, profile.ClosingPhrase)
	// Addenda are omitted when unset.
	assert.NotContains(t, prompt, "ADDITIONAL DETAILS:")
	assert.NotContains(t, prompt, "FALLBACK:")
}

func TestBuildSystemPromptAddenda(t *testing.T) {
	profile, _ := cultural.Lookup("usa")
	p := japanParams()
	p.Country = "usa"
	p.Language = "English"
	p.DetailedNotes = "Window seat preferred."
	p.Constraints = "Do not accept anything before 6pm."
	p.FallbackOptions = "Saturday same time works too."

	prompt := BuildSystemPrompt(p, profile)
	assert.Contains(t, prompt, "ADDITIONAL DETAILS: Window seat preferred.")
	assert.Contains(t, prompt, "CONSTRAINTS: Do not accept anything before 6pm.")
	assert.Contains(t, prompt, "FALLBACK: Saturday same time works too.")
}

func TestBuildSystemPromptEmptyProfileSkipsEtiquette(t *testing.T) {
	prompt := BuildSystemPrompt(japanParams(), cultural.Profile{})
	assert.NotContains(t, prompt, "CULTURAL ETIQUETTE")
}
