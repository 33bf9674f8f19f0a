package cultural

import (
	"fmt"
	"sort"
	"strings"
)

// PolitenessLevel grades how formal the agent should be on the call.
type PolitenessLevel string

const (
	PolitenessCasual     PolitenessLevel = "casual"
	PolitenessPolite     PolitenessLevel = "polite"
	PolitenessFormal     PolitenessLevel = "formal"
	PolitenessVeryFormal PolitenessLevel = "very_formal"
)

// CallingHours is the local-time window [Start,End) during which outbound
// calls to businesses in this country are allowed.
type CallingHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Profile captures per-country conversational norms. Profiles are static
// reference data: resolved once at task creation, frozen on the task, and
// never mutated at request time, so the registry is safe to share across
// goroutines.
type Profile struct {
	Key             string            `json:"key"`
	Country         string            `json:"country"`
	Language        string            `json:"language"`
	Greeting        string            `json:"greeting"`
	SelfIntro       string            `json:"self_intro"`
	PolitenessLevel PolitenessLevel   `json:"politeness_level"`
	EtiquetteNotes  []string          `json:"etiquette_notes"`
	ClosingPhrase   string            `json:"closing_phrase"`
	CommonPhrases   map[string]string `json:"common_phrases"`
	CallingHours    CallingHours      `json:"calling_hours"`
	Tips            []string          `json:"tips"`
	// UTCOffset is the fixed integer-hour offset used by the calling-hour
	// gate. An offset table is deliberately used instead of a timezone
	// database: the gate is advisory policy, not civil-time arithmetic.
	UTCOffset int `json:"utc_offset"`
}

// CountryOption is the key/label pair exposed to clients picking a country.
type CountryOption struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Country  string `json:"country"`
	Language string `json:"language"`
}

var profiles = map[string]Profile{
	"japan": {
		Key:             "japan",
		Country:         "Japan",
		Language:        "Japanese",
		Greeting:        "お忙しいところ恐れ入ります。",
		SelfIntro:       "お客様の代理でお電話させていただいております。",
		PolitenessLevel: PolitenessVeryFormal,
		EtiquetteNotes: []string{
			"Always apologize for the interruption before stating your purpose",
			"Use keigo (honorific language) throughout the conversation",
			"Never rush the conversation — patience is expected",
			"Confirm details by repeating them back",
			"Thank them profusely at the end",
		},
		ClosingPhrase: "お忙しいところありがとうございました。失礼いたします。",
		CommonPhrases: map[string]string{
			"availability": "空き状況を確認させていただけますか？",
			"reservation":  "予約をお願いしたいのですが。",
			"confirmation": "確認させていただきます。",
			"thankyou":     "ありがとうございます。",
		},
		CallingHours: CallingHours{Start: 10, End: 20},
		Tips: []string{
			"Many Japanese businesses prefer phone over email",
			"Lunch hours (12-13) should be avoided for calls",
			"Speaking slowly and clearly is appreciated",
		},
		UTCOffset: 9,
	},
	"korea": {
		Key:             "korea",
		Country:         "South Korea",
		Language:        "Korean",
		Greeting:        "안녕하세요, 바쁘신 중에 전화드려 죄송합니다.",
		SelfIntro:       "고객님을 대신하여 전화드리고 있습니다.",
		PolitenessLevel: PolitenessFormal,
		EtiquetteNotes: []string{
			"Use formal speech (존댓말) throughout",
			"State your purpose clearly and early",
			"Be respectful but direct — Koreans appreciate efficiency",
			"Confirm all details before ending the call",
		},
		ClosingPhrase: "감사합니다. 좋은 하루 되세요.",
		CommonPhrases: map[string]string{
			"availability": "예약 가능한지 확인해 주실 수 있나요?",
			"reservation":  "예약을 하고 싶습니다.",
			"confirmation": "확인해 주세요.",
			"thankyou":     "감사합니다.",
		},
		CallingHours: CallingHours{Start: 9, End: 21},
		Tips: []string{
			"Korean businesses are generally responsive to phone calls",
			"Catchtable is widely used but many premium spots still prefer calls",
			"Age-based honorifics matter in Korean culture",
		},
		UTCOffset: 9,
	},
	"china": {
		Key:             "china",
		Country:         "China",
		Language:        "Mandarin Chinese",
		Greeting:        "您好，打扰了。",
		SelfIntro:       "我代表客户给您打电话。",
		PolitenessLevel: PolitenessPolite,
		EtiquetteNotes: []string{
			"Be polite but direct — Chinese business culture values efficiency",
			"Use 您 (formal you) instead of 你",
			"State your request clearly",
			"Confirm details with numbers and dates explicitly",
		},
		ClosingPhrase: "谢谢您，再见。",
		CommonPhrases: map[string]string{
			"availability": "请问有空位吗？",
			"reservation":  "我想预订。",
			"confirmation": "请确认一下。",
			"thankyou":     "谢谢。",
		},
		CallingHours: CallingHours{Start: 9, End: 21},
		Tips: []string{
			"WeChat is dominant but phone calls still work for restaurants",
			"Many businesses may ask for a WeChat contact instead",
			"Be prepared for rapid-fire Mandarin responses",
		},
		UTCOffset: 8,
	},
	"france": {
		Key:             "france",
		Country:         "France",
		Language:        "French",
		Greeting:        "Bonjour, excusez-moi de vous déranger.",
		SelfIntro:       "J'appelle au nom d'un client.",
		PolitenessLevel: PolitenessFormal,
		EtiquetteNotes: []string{
			"Always start with 'Bonjour' — never skip the greeting",
			"Use 'vous' (formal you) throughout",
			"French service culture values politeness above speed",
			"Don't rush — allow natural conversation flow",
		},
		ClosingPhrase: "Merci beaucoup, bonne journée.",
		CommonPhrases: map[string]string{
			"availability": "Est-ce que vous avez de la disponibilité ?",
			"reservation":  "Je voudrais faire une réservation.",
			"confirmation": "Pouvez-vous confirmer ?",
			"thankyou":     "Merci beaucoup.",
		},
		CallingHours: CallingHours{Start: 9, End: 20},
		Tips: []string{
			"Many French restaurants close between lunch and dinner service",
			"Call during service prep hours (10-11am or 5-6pm) for best results",
			"Michelin-starred restaurants often have dedicated reservation lines",
		},
		UTCOffset: 1,
	},
	"italy": {
		Key:             "italy",
		Country:         "Italy",
		Language:        "Italian",
		Greeting:        "Buongiorno, mi scusi per il disturbo.",
		SelfIntro:       "Chiamo per conto di un cliente.",
		PolitenessLevel: PolitenessPolite,
		EtiquetteNotes: []string{
			"Start with 'Buongiorno' (morning) or 'Buonasera' (evening)",
			"Italians appreciate warmth in conversation",
			"Be patient — conversations may be longer than expected",
			"Confirm details clearly as Italian service can be informal",
		},
		ClosingPhrase: "Grazie mille, buona giornata.",
		CommonPhrases: map[string]string{
			"availability": "Avete disponibilità?",
			"reservation":  "Vorrei fare una prenotazione.",
			"confirmation": "Può confermare?",
			"thankyou":     "Grazie.",
		},
		CallingHours: CallingHours{Start: 9, End: 21},
		Tips: []string{
			"Italian restaurants often don't answer during service hours",
			"Best time to call is 10-11:30am or 3-5pm",
			"Many family-run restaurants prefer phone over online booking",
		},
		UTCOffset: 1,
	},
	"spain": {
		Key:             "spain",
		Country:         "Spain",
		Language:        "Spanish",
		Greeting:        "Buenos días, disculpe la molestia.",
		SelfIntro:       "Llamo en nombre de un cliente.",
		PolitenessLevel: PolitenessPolite,
		EtiquetteNotes: []string{
			"Use 'usted' (formal you) for business calls",
			"Spanish culture is warm — a friendly tone goes far",
			"Be prepared for later business hours than expected",
			"Siesta hours (2-5pm) may mean no answer",
		},
		ClosingPhrase: "Muchas gracias, que tenga un buen día.",
		CommonPhrases: map[string]string{
			"availability": "¿Tienen disponibilidad?",
			"reservation":  "Me gustaría hacer una reserva.",
			"confirmation": "¿Puede confirmar?",
			"thankyou":     "Gracias.",
		},
		CallingHours: CallingHours{Start: 10, End: 22},
		Tips: []string{
			"Spanish dining hours are later — dinner reservations start at 9pm",
			"Avoid calling during siesta (2-5pm)",
			"Many restaurants use WhatsApp for bookings",
		},
		UTCOffset: 1,
	},
	"germany": {
		Key:             "germany",
		Country:         "Germany",
		Language:        "German",
		Greeting:        "Guten Tag, entschuldigen Sie die Störung.",
		SelfIntro:       "Ich rufe im Auftrag eines Kunden an.",
		PolitenessLevel: PolitenessFormal,
		EtiquetteNotes: []string{
			"Germans value punctuality and precision",
			"Use 'Sie' (formal you) throughout",
			"Be direct and structured in your request",
			"Confirm all details with exact times and numbers",
		},
		ClosingPhrase: "Vielen Dank, auf Wiederhören.",
		CommonPhrases: map[string]string{
			"availability": "Haben Sie noch Verfügbarkeit?",
			"reservation":  "Ich möchte gerne eine Reservierung machen.",
			"confirmation": "Können Sie das bitte bestätigen?",
			"thankyou":     "Vielen Dank.",
		},
		CallingHours: CallingHours{Start: 9, End: 20},
		Tips: []string{
			"German businesses are very punctual — call during stated hours",
			"Many restaurants use online booking but phone is still common",
			"Be precise with your request — vagueness is not appreciated",
		},
		UTCOffset: 1,
	},
	"thailand": {
		Key:             "thailand",
		Country:         "Thailand",
		Language:        "Thai",
		Greeting:        "สวัสดีครับ/ค่ะ ขอรบกวนนะครับ/คะ",
		SelfIntro:       "โทรมาแทนลูกค้าครับ/ค่ะ",
		PolitenessLevel: PolitenessPolite,
		EtiquetteNotes: []string{
			"Use polite particles ครับ (male) or ค่ะ (female) at end of sentences",
			"Thai culture values gentleness and respect",
			"Avoid being confrontational or overly demanding",
			"A warm, friendly tone is essential",
		},
		ClosingPhrase: "ขอบคุณมากครับ/ค่ะ",
		CommonPhrases: map[string]string{
			"availability": "มีที่ว่างไหมครับ/คะ?",
			"reservation":  "อยากจองโต๊ะครับ/ค่ะ",
			"confirmation": "ช่วยยืนยันด้วยครับ/คะ",
			"thankyou":     "ขอบคุณครับ/ค่ะ",
		},
		CallingHours: CallingHours{Start: 9, End: 21},
		Tips: []string{
			"Thai businesses are generally friendly and accommodating",
			"LINE app is very popular for bookings in Thailand",
			"English is more widely spoken in tourist areas",
		},
		UTCOffset: 7,
	},
	"australia": {
		Key:             "australia",
		Country:         "Australia",
		Language:        "English",
		Greeting:        "Hi there, sorry to bother you.",
		SelfIntro:       "I'm calling on behalf of a client.",
		PolitenessLevel: PolitenessPolite,
		EtiquetteNotes: []string{
			"Be friendly and casual but polite",
			"Get to the point quickly — Australians appreciate directness",
			"A warm tone goes a long way",
		},
		ClosingPhrase: "Thanks so much, have a great day!",
		CommonPhrases: map[string]string{
			"availability": "Do you have any availability?",
			"reservation":  "I'd like to book a table please.",
			"confirmation": "Could I just confirm those details?",
			"thankyou":     "Thanks so much!",
		},
		CallingHours: CallingHours{Start: 9, End: 21},
		Tips: []string{
			"Most restaurants are happy to take phone bookings",
			"Lunch is typically 12-2pm, dinner from 6pm",
			"Casual tone is fine for most places",
		},
		UTCOffset: 10,
	},
	"uk": {
		Key:             "uk",
		Country:         "United Kingdom",
		Language:        "English",
		Greeting:        "Hello, sorry to trouble you.",
		SelfIntro:       "I'm calling on behalf of a client.",
		PolitenessLevel: PolitenessPolite,
		EtiquetteNotes: []string{
			"Be polite and slightly formal",
			"Use 'please' and 'thank you' generously",
			"Don't be overly pushy",
		},
		ClosingPhrase: "Lovely, thank you very much. Goodbye.",
		CommonPhrases: map[string]string{
			"availability": "Would you happen to have availability?",
			"reservation":  "I'd like to make a reservation, please.",
			"confirmation": "Could I just confirm the details?",
			"thankyou":     "Thank you very much.",
		},
		CallingHours: CallingHours{Start: 9, End: 21},
		Tips: []string{
			"British restaurants appreciate politeness",
			"Lunch is typically 12-2pm, dinner from 6:30pm",
			"A slightly formal tone works well",
		},
		UTCOffset: 0,
	},
	"usa": {
		Key:             "usa",
		Country:         "United States",
		Language:        "English",
		Greeting:        "Hi, how are you?",
		SelfIntro:       "I'm calling on behalf of a client.",
		PolitenessLevel: PolitenessCasual,
		EtiquetteNotes: []string{
			"Be friendly and direct",
			"A casual, warm tone works well",
			"Get to the point after a brief greeting",
		},
		ClosingPhrase: "Awesome, thanks so much! Have a great day.",
		CommonPhrases: map[string]string{
			"availability": "Do you have any availability?",
			"reservation":  "I'd like to make a reservation.",
			"confirmation": "Can I just confirm those details?",
			"thankyou":     "Thanks so much!",
		},
		CallingHours: CallingHours{Start: 9, End: 22},
		Tips: []string{
			"Most US restaurants use OpenTable but many still take phone bookings",
			"Tipping culture is important — not relevant for booking calls",
			"Friendly and direct is the norm",
		},
		UTCOffset: -5,
	},
}

// Lookup resolves a profile by registry key ("japan") or by country display
// name ("Japan"), case-insensitively.
func Lookup(country string) (Profile, bool) {
	key := strings.ToLower(strings.TrimSpace(country))
	if p, ok := profiles[key]; ok {
		return p, true
	}
	for _, p := range profiles {
		if strings.EqualFold(p.Country, country) {
			return p, true
		}
	}
	return Profile{}, false
}

// Keys returns all registry keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(profiles))
	for k := range profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CountryOptions returns the selectable countries for clients.
func CountryOptions() []CountryOption {
	opts := make([]CountryOption, 0, len(profiles))
	for key, p := range profiles {
		opts = append(opts, CountryOption{
			Value:    key,
			Label:    fmt.Sprintf("%s (%s)", p.Country, p.Language),
			Country:  p.Country,
			Language: p.Language,
		})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Value < opts[j].Value })
	return opts
}

// Briefing renders a human-readable cultural briefing for a country.
func Briefing(country string) string {
	p, ok := Lookup(country)
	if !ok {
		return "No cultural briefing available."
	}

	lines := []string{
		fmt.Sprintf("**Country:** %s", p.Country),
		fmt.Sprintf("**Language:** %s", p.Language),
		fmt.Sprintf("**Politeness Level:** %s", p.PolitenessLevel),
		"",
		"**Etiquette Notes:**",
	}
	for _, n := range p.EtiquetteNotes {
		lines = append(lines, "• "+n)
	}
	lines = append(lines, "", "**Tips:**")
	for _, t := range p.Tips {
		lines = append(lines, "• "+t)
	}
	lines = append(lines, "",
		fmt.Sprintf("**Best Calling Hours:** %d:00 - %d:00 local time", p.CallingHours.Start, p.CallingHours.End))
	return strings.Join(lines, "\n")
}

// LocalHour converts a UTC hour to the profile's local hour using its fixed
// integer offset.
func (p Profile) LocalHour(utcHour int) int {
	return ((utcHour+p.UTCOffset)%24 + 24) % 24
}

// WithinCallingHours reports whether the given UTC hour falls inside the
// profile's [start,end) local calling window.
func (p Profile) WithinCallingHours(utcHour int) bool {
	local := p.LocalHour(utcHour)
	return local >= p.CallingHours.Start && local < p.CallingHours.End
}
