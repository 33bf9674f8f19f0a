package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/repository"
	"github.com/coveplatform/mosh/pkg/logger"
)

// Report is the normalized end-of-call payload from the voice provider.
type Report struct {
	TaskID            string
	Transcript        string
	RecordingURL      string
	Summary           string
	StructuredOutcome string
	ActionItems       string
	EndedReason       string
	StartedAt         *time.Time
	EndedAt           *time.Time
}

// Ingester folds provider webhook events into task state. All handlers are
// idempotent: a task already terminal is never re-transitioned or
// re-refunded, so duplicate deliveries are harmless.
type Ingester struct {
	repos  repository.RepositoryManager
	ledger *ledger.Service
	now    func() time.Time
}

// NewIngester creates a webhook ingester.
func NewIngester(repos repository.RepositoryManager, ledgerSvc *ledger.Service) *Ingester {
	return &Ingester{repos: repos, ledger: ledgerSvc, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (i *Ingester) WithClock(now func() time.Time) *Ingester {
	i.now = now
	return i
}

// HandleStatusUpdate mirrors the provider's live call status onto the task.
// It never drives the task state machine.
func (i *Ingester) HandleStatusUpdate(ctx context.Context, taskID, status string) error {
	return i.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		task, err := repos.Tasks().GetByIDForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if task.Status.Terminal() {
			return nil
		}
		task.ProviderStatus = domain.ProviderStatus(status)
		if status == string(domain.ProviderStatusInProgress) && task.StartedAt == nil {
			started := i.now()
			task.StartedAt = &started
		}
		task.UpdatedAt = i.now()
		return repos.Tasks().Update(ctx, task)
	})
}

// HandleEndOfCallReport finalizes the task from the provider's report:
// derive the outcome, append duration to the transcript, set the terminal
// status, and refund when the call never connected.
func (i *Ingester) HandleEndOfCallReport(ctx context.Context, report Report) error {
	outcome := deriveOutcome(report.StructuredOutcome, report.EndedReason)

	var task *domain.Task
	err := i.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		locked, err := repos.Tasks().GetByIDForUpdate(ctx, report.TaskID)
		if err != nil {
			return err
		}
		if locked.Status.Terminal() {
			if locked.Outcome != outcome {
				logger.Base().Warn("duplicate end-of-call report with different outcome ignored",
					zap.String("task_id", locked.ID),
					zap.String("stored", string(locked.Outcome)),
					zap.String("reported", string(outcome)))
			}
			return nil
		}

		locked.Outcome = outcome
		locked.Status = domain.TaskStatusCompleted
		if outcome == domain.OutcomeFailed {
			locked.Status = domain.TaskStatusFailed
		}
		locked.Transcript = buildTranscript(report)
		locked.Summary = report.Summary
		if locked.Summary == "" {
			locked.Summary = fmt.Sprintf("Call ended: %s", report.EndedReason)
		}
		if report.ActionItems != "" {
			locked.ActionItems = report.ActionItems
		}
		locked.RecordingURL = report.RecordingURL
		locked.ProviderStatus = domain.ProviderStatusCompleted

		completed := i.now()
		if report.EndedAt != nil {
			completed = *report.EndedAt
		}
		locked.CompletedAt = &completed
		locked.UpdatedAt = i.now()

		task = locked
		return repos.Tasks().Update(ctx, locked)
	})
	if err != nil || task == nil {
		return err
	}

	if outcome.Refundable() {
		if err := i.refund(ctx, task, outcome); err != nil {
			return err
		}
	}

	logger.Base().Info("call finalized",
		zap.String("task_id", task.ID),
		zap.String("outcome", string(outcome)),
		zap.String("ended_reason", report.EndedReason))
	return nil
}

// HandleHang finalizes a call the provider could only classify as
// not answered or voicemail, with no report attached.
func (i *Ingester) HandleHang(ctx context.Context, taskID string) error {
	var task *domain.Task
	err := i.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		locked, err := repos.Tasks().GetByIDForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if locked.Status.Terminal() {
			return nil
		}
		now := i.now()
		locked.Status = domain.TaskStatusFailed
		locked.Outcome = domain.OutcomeNoAnswer
		locked.Summary = "Call was not answered or went to voicemail."
		locked.CompletedAt = &now
		locked.UpdatedAt = now
		task = locked
		return repos.Tasks().Update(ctx, locked)
	})
	if err != nil || task == nil {
		return err
	}
	return i.refund(ctx, task, domain.OutcomeNoAnswer)
}

func (i *Ingester) refund(ctx context.Context, task *domain.Task, outcome domain.Outcome) error {
	err := i.ledger.RefundIfEligible(ctx, task, refundDescription(outcome))
	if err != nil && !errors.Is(err, domain.ErrRefundAlreadyIssued) {
		return err
	}
	return nil
}

// deriveOutcome prefers the analysis's explicit structured outcome; only
// when that is absent is the provider's ended reason mapped.
func deriveOutcome(structured, endedReason string) domain.Outcome {
	if structured != "" {
		return domain.Outcome(structured)
	}

	switch {
	case endedReason == "voicemail" || endedReason == "machine-detected":
		return domain.OutcomeVoicemail
	case endedReason == "customer-busy" || endedReason == "customer-did-not-answer":
		return domain.OutcomeNoAnswer
	case strings.HasPrefix(endedReason, "call-start-error"):
		return domain.OutcomeFailed
	}
	return domain.OutcomeUnknown
}

func buildTranscript(report Report) string {
	transcript := report.Transcript
	if report.StartedAt != nil && report.EndedAt != nil {
		duration := int(report.EndedAt.Sub(*report.StartedAt).Round(time.Second).Seconds())
		transcript += fmt.Sprintf("\n\n[Call duration: %ds]", duration)
	}
	if report.EndedReason != "" {
		transcript += fmt.Sprintf("\n[Ended: %s]", report.EndedReason)
	}
	return transcript
}

func refundDescription(outcome domain.Outcome) string {
	switch outcome {
	case domain.OutcomeVoicemail:
		return "Credit refunded — call went to voicemail"
	case domain.OutcomeNoAnswer:
		return "Credit refunded — call was not answered"
	default:
		return "Credit refunded — call failed to connect"
	}
}
