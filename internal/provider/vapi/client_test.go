package vapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveplatform/mosh/pkg/twilio"
)

type stubPhones struct{}

func (stubPhones) GetPhoneConfig() (*twilio.PhoneConfig, error) {
	return &twilio.PhoneConfig{
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "token",
		Number:           "+15550001111",
	}, nil
}

func TestVoiceForCountry(t *testing.T) {
	v := VoiceForCountry("japan")
	assert.Equal(t, "11labs", v.Provider)
	assert.Equal(t, "ja", v.Language)

	// Unknown countries fall back to English with the same voice.
	fallback := VoiceForCountry("atlantis")
	assert.Equal(t, "en", fallback.Language)
	assert.Equal(t, v.VoiceID, fallback.VoiceID)
}

func TestTranscriberLanguage(t *testing.T) {
	assert.Equal(t, "ko", TranscriberLanguage("korea"))
	assert.Equal(t, "en", TranscriberLanguage("UK"))
	assert.Equal(t, "multi", TranscriberLanguage("atlantis"))
}

func TestPlaceCallPayload(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/call", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "call-abc", "status": "queued"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "https://mosh.example.com", stubPhones{})
	resp, err := client.PlaceCall(context.Background(), PlaceCallRequest{
		TaskID:       "11111111-2222-3333-4444-555555555555",
		PhoneNumber:  "+81312345678",
		Country:      "japan",
		SystemPrompt: "You are making a phone call.",
		FirstMessage: "お忙しいところ恐れ入ります。",
	})
	require.NoError(t, err)
	assert.Equal(t, "call-abc", resp.ID)
	assert.Equal(t, "queued", resp.Status)

	phone := captured["phoneNumber"].(map[string]any)
	assert.Equal(t, "AC123", phone["twilioAccountSid"])
	assert.Equal(t, "+15550001111", phone["number"])

	cust := captured["customer"].(map[string]any)
	assert.Equal(t, "+81312345678", cust["number"])

	asst := captured["assistant"].(map[string]any)
	assert.Equal(t, "assistant-speaks-first", asst["firstMessageMode"])
	assert.Equal(t, float64(300), asst["maxDurationSeconds"])
	assert.Equal(t, float64(30), asst["silenceTimeoutSeconds"])

	tr := asst["transcriber"].(map[string]any)
	assert.Equal(t, "deepgram", tr["provider"])
	assert.Equal(t, "ja", tr["language"])

	mdl := asst["model"].(map[string]any)
	assert.Equal(t, "gpt-4o", mdl["model"])
	assert.Equal(t, 0.3, mdl["temperature"])
	assert.Equal(t, float64(300), mdl["maxTokens"])

	server := asst["server"].(map[string]any)
	assert.Equal(t, "https://mosh.example.com/webhooks/vapi", server["url"])

	meta := asst["metadata"].(map[string]any)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", meta["taskId"])

	name := captured["name"].(string)
	assert.True(t, strings.HasPrefix(name, "mosh-"))
	assert.LessOrEqual(t, len(name), 40)
}

func TestPlaceCallAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "invalid number"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "https://mosh.example.com", stubPhones{})
	_, err := client.PlaceCall(context.Background(), PlaceCallRequest{
		TaskID:      "task-1",
		PhoneNumber: "not-a-number",
		Country:     "usa",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vapi API error (400)")
}
