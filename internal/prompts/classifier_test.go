package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		objective string
		want      Category
	}{
		{"Book a dentist appointment for next Tuesday", CategoryMedical},
		{"Reserve a table for 4 at the izakaya", CategoryRestaurant},
		{"Book dinner for two on Friday", CategoryRestaurant},
		{"Get a haircut booked at the barber", CategorySalon},
		{"Ask the landlord about the broken heater", CategoryMaintenance},
		{"The aircon is leaking again", CategoryMaintenance},
		{"Dispute an overcharge on my last invoice", CategoryBilling},
		{"Where is my parcel, tracking says delivered", CategoryDelivery},
		{"Ask about enrollment for the spring semester", CategorySchool},
		{"Ask what time they open tomorrow", CategoryGeneral},
		{"", CategoryGeneral},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.objective), tc.objective)
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Matches both medical and restaurant keyword sets; medical is checked first.
	assert.Equal(t, CategoryMedical, Classify("book a table at the clinic restaurant"))
}

func TestClassifyCaseInsensitive(t *testing.T) {
	assert.Equal(t, CategoryMedical, Classify("CALL THE DOCTOR"))
}
