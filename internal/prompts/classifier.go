package prompts

import (
	"regexp"
	"strings"
)

// Category is the task type inferred from the objective text. It selects
// the call checklist injected into the system prompt.
type Category string

const (
	CategoryMedical     Category = "medical"
	CategoryRestaurant  Category = "restaurant"
	CategorySalon       Category = "salon"
	CategoryMaintenance Category = "maintenance"
	CategoryBilling     Category = "billing"
	CategoryDelivery    Category = "delivery"
	CategorySchool      Category = "school"
	CategoryGeneral     Category = "general"
)

type categoryRule struct {
	category Category
	pattern  *regexp.Regexp
	prompt   string
}

// Rules are ordered: the first matching category wins, so "book a table at
// the clinic restaurant" classifies as medical.
var categoryRules = []categoryRule{
	{CategoryMedical, regexp.MustCompile(`doctor|clinic|medical|appointment|checkup|dentist|physio|therapist|hospital`), PromptCategoryMedical},
	{CategoryRestaurant, regexp.MustCompile(`restaurant|table|reservation|book.*dinner|book.*lunch|izakaya|sushi|ramen`), PromptCategoryRestaurant},
	{CategorySalon, regexp.MustCompile(`haircut|salon|barber|cut|style|color|nails|spa|massage`), PromptCategorySalon},
	{CategoryMaintenance, regexp.MustCompile(`landlord|plumber|repair|maintenance|broken|leak|fix|pipe|heater|air.?con`), PromptCategoryMaintenance},
	{CategoryBilling, regexp.MustCompile(`bill|charge|fee|statement|account|payment|invoice|dispute|overcharge`), PromptCategoryBilling},
	{CategoryDelivery, regexp.MustCompile(`delivery|package|parcel|tracking|shipment|courier`), PromptCategoryDelivery},
	{CategorySchool, regexp.MustCompile(`school|enrollment|class|student|tuition|semester`), PromptCategorySchool},
}

// Classify maps an objective to its task category. Matching is done over
// the lowercased text and is fully deterministic.
func Classify(objective string) Category {
	text := strings.ToLower(objective)
	for _, rule := range categoryRules {
		if rule.pattern.MatchString(text) {
			return rule.category
		}
	}
	return CategoryGeneral
}

func categoryPrompt(c Category) string {
	for _, rule := range categoryRules {
		if rule.category == c {
			return rule.prompt
		}
	}
	return PromptCategoryGeneral
}
