package vapi

import "strings"

// Voice selects the TTS voice for a country. All target languages are
// covered by the same ElevenLabs multilingual voice (Rachel), selected for
// natural prosody across languages.
type Voice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
	Language string `json:"language"`
}

const rachelVoiceID = "21m00Tcm4TlvDq8ikWAM"

var voiceLanguages = map[string]string{
	"japan":     "ja",
	"korea":     "ko",
	"china":     "zh",
	"france":    "fr",
	"italy":     "it",
	"spain":     "es",
	"germany":   "de",
	"thailand":  "th",
	"australia": "en",
	"uk":        "en",
	"usa":       "en",
}

// VoiceForCountry returns the voice used for calls into the given country.
func VoiceForCountry(country string) Voice {
	lang, ok := voiceLanguages[strings.ToLower(country)]
	if !ok {
		lang = "en"
	}
	return Voice{Provider: "11labs", VoiceID: rachelVoiceID, Language: lang}
}

// TranscriberLanguage returns the Deepgram language code for a country,
// falling back to multilingual detection.
func TranscriberLanguage(country string) string {
	if lang, ok := voiceLanguages[strings.ToLower(country)]; ok {
		return lang
	}
	return "multi"
}
