package handler

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/coveplatform/mosh/internal/repository"
	"github.com/coveplatform/mosh/internal/services/webhook"
	"github.com/coveplatform/mosh/pkg/logger"
	"github.com/coveplatform/mosh/pkg/redis"
)

const webhookDedupTTL = 10 * time.Minute

// VapiWebhookHandler receives call events from the voice provider. Every
// accepted request is acknowledged with 200 regardless of processing
// outcome, so the provider never retries into a poison loop.
type VapiWebhookHandler struct {
	ingester *webhook.Ingester
	repos    repository.RepositoryManager
	redisSvc redis.RedisServiceInterface
	secret   string
}

func NewVapiWebhookHandler(ingester *webhook.Ingester, repos repository.RepositoryManager, redisSvc redis.RedisServiceInterface, secret string) *VapiWebhookHandler {
	return &VapiWebhookHandler{
		ingester: ingester,
		repos:    repos,
		redisSvc: redisSvc,
		secret:   secret,
	}
}

// SetupVapiWebhookRoutes registers the provider webhook route.
func (h *VapiWebhookHandler) SetupVapiWebhookRoutes(router *mux.Router) {
	router.HandleFunc("/webhooks/vapi", h.HandleWebhook).Methods("POST")
}

type vapiCall struct {
	ID       string `json:"id"`
	Metadata struct {
		TaskID string `json:"taskId"`
	} `json:"metadata"`
	AssistantOverrides struct {
		Metadata struct {
			TaskID string `json:"taskId"`
		} `json:"metadata"`
	} `json:"assistantOverrides"`
}

type vapiStructuredData struct {
	Outcome     string   `json:"outcome"`
	ActionItems []string `json:"actionItems"`
}

type vapiMessage struct {
	Type        string   `json:"type"`
	Status      string   `json:"status"`
	EndedReason string   `json:"endedReason"`
	Metadata    struct {
		TaskID string `json:"taskId"`
	} `json:"metadata"`
	Call vapiCall `json:"call"`
	Artifact    struct {
		Transcript   string `json:"transcript"`
		RecordingURL string `json:"recordingUrl"`
	} `json:"artifact"`
	Analysis struct {
		Summary        string             `json:"summary"`
		StructuredData vapiStructuredData `json:"structuredData"`
	} `json:"analysis"`
	Transcript   string `json:"transcript"`
	Summary      string `json:"summary"`
	RecordingURL string `json:"recordingUrl"`
	StartedAt    string `json:"startedAt"`
	EndedAt      string `json:"endedAt"`
}

type vapiEnvelope struct {
	Message vapiMessage `json:"message"`
}

func (h *VapiWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		supplied := r.Header.Get("x-vapi-secret")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(h.secret)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid webhook secret")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	// Byte-identical redeliveries are dropped fast; the ingester's own
	// idempotency covers semantically duplicate events with differing
	// payloads.
	if h.isDuplicate(r, body) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	var envelope vapiEnvelope
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&envelope); err != nil {
		logger.Base().Warn("unparseable provider webhook", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	msg := envelope.Message
	taskID := h.resolveTaskID(r, msg)
	if taskID == "" {
		logger.Base().Warn("provider webhook without task reference",
			zap.String("type", msg.Type), zap.String("call_id", msg.Call.ID))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	switch msg.Type {
	case "status-update":
		err = h.ingester.HandleStatusUpdate(r.Context(), taskID, msg.Status)
	case "end-of-call-report":
		err = h.ingester.HandleEndOfCallReport(r.Context(), buildReport(taskID, msg))
	case "hang":
		err = h.ingester.HandleHang(r.Context(), taskID)
	default:
		logger.Base().Debug("ignoring provider webhook type",
			zap.String("type", msg.Type), zap.String("task_id", taskID))
	}
	if err != nil {
		// Acknowledged anyway; the task state machine rejected the event
		// or the datastore hiccuped, and a provider retry cannot fix
		// either.
		logger.Base().Error("provider webhook processing failed",
			zap.String("type", msg.Type),
			zap.String("task_id", taskID),
			zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *VapiWebhookHandler) isDuplicate(r *http.Request, body []byte) bool {
	if h.redisSvc == nil {
		return false
	}
	sum := sha256.Sum256(body)
	key := h.redisSvc.GenerateKey(redis.WEBHOOK_DEDUP, hex.EncodeToString(sum[:]))
	fresh, err := h.redisSvc.SetNX(r.Context(), key, "1", webhookDedupTTL)
	if err != nil {
		logger.Base().Warn("webhook dedup check failed, processing anyway", zap.Error(err))
		return false
	}
	return !fresh
}

// resolveTaskID prefers the metadata stamped onto the call at dispatch
// time, then the message-level metadata some event types carry instead,
// falling back to a provider-handle lookup.
func (h *VapiWebhookHandler) resolveTaskID(r *http.Request, msg vapiMessage) string {
	call := msg.Call
	if call.Metadata.TaskID != "" {
		return call.Metadata.TaskID
	}
	if call.AssistantOverrides.Metadata.TaskID != "" {
		return call.AssistantOverrides.Metadata.TaskID
	}
	if msg.Metadata.TaskID != "" {
		return msg.Metadata.TaskID
	}
	if call.ID == "" {
		return ""
	}
	task, err := h.repos.Tasks().GetByProviderHandle(r.Context(), call.ID)
	if err != nil {
		return ""
	}
	return task.ID
}

func buildReport(taskID string, msg vapiMessage) webhook.Report {
	report := webhook.Report{
		TaskID:            taskID,
		Transcript:        firstNonEmpty(msg.Artifact.Transcript, msg.Transcript),
		RecordingURL:      firstNonEmpty(msg.Artifact.RecordingURL, msg.RecordingURL),
		Summary:           firstNonEmpty(msg.Analysis.Summary, msg.Summary),
		StructuredOutcome: msg.Analysis.StructuredData.Outcome,
		ActionItems:       strings.Join(msg.Analysis.StructuredData.ActionItems, "\n"),
		EndedReason:       msg.EndedReason,
	}
	if t, err := time.Parse(time.RFC3339, msg.StartedAt); err == nil {
		report.StartedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, msg.EndedAt); err == nil {
		report.EndedAt = &t
	}
	return report
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
