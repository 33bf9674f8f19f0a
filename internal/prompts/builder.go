package prompts

import (
	"fmt"
	"strings"

	"github.com/coveplatform/mosh/internal/cultural"
)

// CallParams carries everything the prompt builders need about a call.
// Builders are pure: same params, same output.
type CallParams struct {
	BusinessName    string
	Country         string
	Language        string
	Objective       string
	DetailedNotes   string
	TonePreference  string
	Constraints     string
	FallbackOptions string
}

// BuildGreeting renders the assistant's first message: the cultural opening,
// the self-introduction, and the request in one line.
func BuildGreeting(params CallParams, profile cultural.Profile) string {
	parts := []string{profile.Greeting, profile.SelfIntro, oneLine(params.Objective)}
	var kept []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}

// BuildSystemPrompt renders the full behavioral contract for the call agent:
// language constraint, task statement, category checklist, persona,
// conversation flow, edge-case handling, critical rules, cultural etiquette,
// and the task addenda.
func BuildSystemPrompt(params CallParams, profile cultural.Profile) string {
	header := fmt.Sprintf(
		"You are making a phone call to %s on behalf of a client. Speak ONLY in %s.\n\nYOUR TASK: %s",
		params.BusinessName, params.Language, params.Objective)

	blocks := []string{
		header,
		categoryPrompt(Classify(params.Objective)),
		PromptPersona,
		PromptConversationFlow,
		PromptEdgeCases,
		fmt.Sprintf(PromptCriticalRules, params.TonePreference),
		etiquetteBlock(profile),
		fmt.Sprintf("TASK: %s", params.Objective),
	}
	if params.DetailedNotes != "" {
		blocks = append(blocks, fmt.Sprintf("ADDITIONAL DETAILS: %s", params.DetailedNotes))
	}
	if params.Constraints != "" {
		blocks = append(blocks, fmt.Sprintf("CONSTRAINTS: %s", params.Constraints))
	}
	if params.FallbackOptions != "" {
		blocks = append(blocks, fmt.Sprintf("FALLBACK: %s", params.FallbackOptions))
	}
	return joinBlocks(blocks...)
}

func etiquetteBlock(profile cultural.Profile) string {
	if profile.Key == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CULTURAL ETIQUETTE FOR %s:\n", strings.ToUpper(profile.Country))
	fmt.Fprintf(&b, "- Politeness level: %s\n", profile.PolitenessLevel)
	fmt.Fprintf(&b, "- Opening greeting: %s\n", profile.Greeting)
	fmt.Fprintf(&b, "- Self-introduction: %s\n", profile.SelfIntro)
	fmt.Fprintf(&b, "- Closing phrase: %s\n", profile.ClosingPhrase)
	b.WriteString("- Etiquette rules:\n")
	for _, n := range profile.EtiquetteNotes {
		fmt.Fprintf(&b, "  • %s\n", n)
	}
	b.WriteString("- Tips:\n")
	for _, t := range profile.Tips {
		fmt.Fprintf(&b, "  • %s\n", t)
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// joinBlocks trims each block and joins the non-empty ones with blank lines.
func joinBlocks(blocks ...string) string {
	var kept []string
	for _, b := range blocks {
		if t := strings.TrimSpace(b); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, "\n\n")
}
