package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/coveplatform/mosh/pkg/logger"
)

const defaultBaseURL = "https://api.resend.com"

// Client sends transactional email through the Resend HTTP API. Without an
// API key it runs in dev mode: nothing is sent and a synthetic message id
// is returned so the rest of the pipeline behaves normally.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a Resend client. from is the default sender, e.g.
// "Mosh <noreply@mosh.app>".
func NewClient(apiKey, from string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

// SendRequest describes one outbound email.
type SendRequest struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

type apiPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
}

type apiResponse struct {
	ID string `json:"id"`
}

// Send delivers the email and returns the provider message id.
func (c *Client) Send(ctx context.Context, req SendRequest) (string, error) {
	if c.apiKey == "" {
		logger.Base().Warn("RESEND_API_KEY not set, email not actually sent (dev mode)",
			zap.String("to", req.To))
		return fmt.Sprintf("dev-%d", c.now().UnixMilli()), nil
	}

	body, err := json.Marshal(apiPayload{
		From:    c.from,
		To:      []string{req.To},
		ReplyTo: req.ReplyTo,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode email payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Base().Error("resend rejected email",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return "", fmt.Errorf("resend API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var out apiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode resend response: %w", err)
	}
	return out.ID, nil
}
