package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/coveplatform/mosh/pkg/logger"
	"github.com/coveplatform/mosh/pkg/twilio"
)

// PhoneConfigProvider supplies the BYO outbound phone block, normally the
// pkg/twilio caller-id service.
type PhoneConfigProvider interface {
	GetPhoneConfig() (*twilio.PhoneConfig, error)
}

// Client talks to the Vapi voice-agent API. A single POST starts the call;
// Vapi drives the realtime conversation loop and reports back over the
// server webhook.
type Client struct {
	baseURL    string
	apiKey     string
	serverURL  string
	httpClient *http.Client
	limiter    *rate.Limiter
	phones     PhoneConfigProvider
}

// NewClient creates a Vapi API client. serverURL is the public base URL this
// service receives webhooks on.
func NewClient(baseURL, apiKey, serverURL string, phones PhoneConfigProvider) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		// Vapi rate-limits call creation; stay well under it.
		limiter: rate.NewLimiter(rate.Limit(2), 5),
		phones:  phones,
	}
}

// PlaceCallRequest carries everything needed to start one outbound call.
type PlaceCallRequest struct {
	TaskID             string
	PhoneNumber        string
	Country            string
	SystemPrompt       string
	FirstMessage       string
	MaxDurationSeconds int
}

// PlaceCallResponse is the provider's acknowledgement of a started call.
type PlaceCallResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type callPayload struct {
	PhoneNumber twilio.PhoneConfig `json:"phoneNumber"`
	Customer    customer           `json:"customer"`
	Assistant   assistant          `json:"assistant"`
	Name        string             `json:"name"`
}

type customer struct {
	Number string `json:"number"`
}

type assistant struct {
	Transcriber           transcriber    `json:"transcriber"`
	Model                 model          `json:"model"`
	Voice                 voiceConfig    `json:"voice"`
	FirstMessage          string         `json:"firstMessage"`
	FirstMessageMode      string         `json:"firstMessageMode"`
	VoicemailDetection    string         `json:"voicemailDetection"`
	MaxDurationSeconds    int            `json:"maxDurationSeconds"`
	BackgroundSound       string         `json:"backgroundSound"`
	SilenceTimeoutSeconds int            `json:"silenceTimeoutSeconds"`
	EndCallPhrases        []string       `json:"endCallPhrases"`
	AnalysisPlan          analysisPlan   `json:"analysisPlan"`
	ArtifactPlan          artifactPlan   `json:"artifactPlan"`
	Server                serverConfig   `json:"server"`
	Metadata              map[string]any `json:"metadata"`
}

type transcriber struct {
	Provider string `json:"provider"`
	Language string `json:"language"`
}

type model struct {
	Provider                  string    `json:"provider"`
	Model                     string    `json:"model"`
	Messages                  []message `json:"messages"`
	Temperature               float64   `json:"temperature"`
	MaxTokens                 int       `json:"maxTokens"`
	EmotionRecognitionEnabled bool      `json:"emotionRecognitionEnabled"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type voiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type analysisPlan struct {
	SummaryPlan           summaryPlan        `json:"summaryPlan"`
	StructuredDataPlan    structuredDataPlan `json:"structuredDataPlan"`
	SuccessEvaluationPlan successPlan        `json:"successEvaluationPlan"`
}

type summaryPlan struct {
	Enabled  bool      `json:"enabled"`
	Messages []message `json:"messages"`
}

type structuredDataPlan struct {
	Enabled bool           `json:"enabled"`
	Schema  map[string]any `json:"schema"`
}

type successPlan struct {
	Enabled bool   `json:"enabled"`
	Rubric  string `json:"rubric"`
}

type artifactPlan struct {
	RecordingEnabled bool           `json:"recordingEnabled"`
	TranscriptPlan   transcriptPlan `json:"transcriptPlan"`
}

type transcriptPlan struct {
	Enabled       bool   `json:"enabled"`
	AssistantName string `json:"assistantName"`
	UserName      string `json:"userName"`
}

type serverConfig struct {
	URL string `json:"url"`
}

var endCallPhrases = []string{
	"goodbye",
	"さようなら",
	"감사합니다",
	"再见",
	"au revoir",
	"arrivederci",
	"adiós",
	"auf wiedersehen",
	"ลาก่อน",
}

const summaryInstruction = `Summarize this phone call. The call was made by an AI assistant (Mosh) on behalf of a client. Include:
1. OUTCOME: success / partial / failed / callback_needed
2. What was requested
3. What was agreed/confirmed
4. Any action items for the client
5. Key details (dates, times, names, reference numbers)
Keep it concise — 3-5 sentences max.`

// PlaceCall starts an outbound call with a transient per-call assistant.
func (c *Client) PlaceCall(ctx context.Context, req PlaceCallRequest) (*PlaceCallResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	phoneConfig, err := c.phones.GetPhoneConfig()
	if err != nil {
		return nil, fmt.Errorf("outbound phone number unavailable: %w", err)
	}

	voice := VoiceForCountry(req.Country)
	maxDuration := req.MaxDurationSeconds
	if maxDuration <= 0 {
		maxDuration = 300
	}

	payload := callPayload{
		PhoneNumber: *phoneConfig,
		Customer:    customer{Number: req.PhoneNumber},
		Assistant: assistant{
			Transcriber: transcriber{Provider: "deepgram", Language: TranscriberLanguage(req.Country)},
			Model: model{
				Provider:                  "openai",
				Model:                     "gpt-4o",
				Messages:                  []message{{Role: "system", Content: req.SystemPrompt}},
				Temperature:               0.3,
				MaxTokens:                 300,
				EmotionRecognitionEnabled: true,
			},
			Voice:                 voiceConfig{Provider: voice.Provider, VoiceID: voice.VoiceID},
			FirstMessage:          req.FirstMessage,
			FirstMessageMode:      "assistant-speaks-first",
			VoicemailDetection:    "off",
			MaxDurationSeconds:    maxDuration,
			BackgroundSound:       "off",
			SilenceTimeoutSeconds: 30,
			EndCallPhrases:        endCallPhrases,
			AnalysisPlan: analysisPlan{
				SummaryPlan: summaryPlan{
					Enabled:  true,
					Messages: []message{{Role: "system", Content: summaryInstruction}},
				},
				StructuredDataPlan: structuredDataPlan{
					Enabled: true,
					Schema: map[string]any{
						"type": "object",
						"properties": map[string]any{
							"outcome": map[string]any{
								"type":        "string",
								"enum":        []string{"success", "partial", "failed", "callback_needed"},
								"description": "The overall outcome of the call",
							},
							"actionItems": map[string]any{
								"type":        "string",
								"description": "Comma-separated list of action items for the client",
							},
							"confirmed": map[string]any{
								"type":        "string",
								"description": "What was confirmed/booked (date, time, name, etc.)",
							},
						},
					},
				},
				SuccessEvaluationPlan: successPlan{Enabled: true, Rubric: "NumericScale"},
			},
			ArtifactPlan: artifactPlan{
				RecordingEnabled: true,
				TranscriptPlan:   transcriptPlan{Enabled: true, AssistantName: "Mosh", UserName: "Business"},
			},
			Server:   serverConfig{URL: c.serverURL + "/webhooks/vapi"},
			Metadata: map[string]any{"taskId": req.TaskID},
		},
		// Call name is capped at 40 characters by the API.
		Name: truncate("mosh-"+req.TaskID, 40),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vapi request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Base().Error("vapi call creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("task_id", req.TaskID),
			zap.ByteString("body", respBody))
		return nil, fmt.Errorf("vapi API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var out PlaceCallResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode vapi response: %w", err)
	}

	logger.Base().Info("vapi call placed",
		zap.String("task_id", req.TaskID),
		zap.String("call_id", out.ID),
		zap.String("status", out.Status))
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
