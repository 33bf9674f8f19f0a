package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/provider/resend"
	"github.com/coveplatform/mosh/internal/repository"
	"github.com/coveplatform/mosh/pkg/logger"
)

const creditCost = 1

// Sender delivers an email and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, req resend.SendRequest) (string, error)
}

// Service sends outreach emails on the client's behalf. Unlike calls, an
// email task is created already completed: delivery happens before the
// task row exists, and the row records what was sent.
type Service struct {
	repos  repository.RepositoryManager
	ledger *ledger.Service
	sender Sender
	now    func() time.Time
}

func NewService(repos repository.RepositoryManager, ledgerSvc *ledger.Service, sender Sender) *Service {
	return &Service{
		repos:  repos,
		ledger: ledgerSvc,
		sender: sender,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SendRequest carries the caller-supplied fields for a new email task.
type SendRequest struct {
	OwnerID      string `json:"-"`
	To           string `json:"to"`
	BusinessName string `json:"businessName"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	Description  string `json:"description"`
	ReplyTo      string `json:"replyTo"`
}

func (r *SendRequest) validate() error {
	if !strings.Contains(r.To, "@") {
		return fmt.Errorf("a valid recipient email is required")
	}
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(r.Body) == "" {
		return fmt.Errorf("email body is required")
	}
	return nil
}

// Send debits one credit, delivers the email, and records the completed
// task. The debit and the task row commit together; a delivery failure
// leaves the ledger untouched.
func (s *Service) Send(ctx context.Context, req SendRequest) (*domain.Task, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	business := strings.TrimSpace(req.BusinessName)
	if business == "" {
		business = req.To
	}

	// Fail fast before delivery; the authoritative check is the debit below.
	balance, err := s.ledger.Balance(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if balance < creditCost {
		return nil, domain.ErrInsufficientCredits
	}

	messageID, err := s.sender.Send(ctx, resend.SendRequest{
		To:      req.To,
		ReplyTo: req.ReplyTo,
		Subject: req.Subject,
		Text:    req.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("email delivery failed: %w", err)
	}

	now := s.now()
	sentAt := now
	t := &domain.Task{
		ID:             uuid.NewString(),
		OwnerID:        req.OwnerID,
		Kind:           domain.TaskKindEmail,
		Tier:           domain.TierSimple,
		Status:         domain.TaskStatusCompleted,
		Outcome:        domain.OutcomeSuccess,
		BusinessName:   business,
		ContactEmail:   req.To,
		Objective:      strings.TrimSpace(req.Description),
		CreditsUsed:    creditCost,
		Summary:        buildSummary(business, req.Description),
		ActionItems:    "Wait for a reply. Check your inbox for responses.",
		EmailSubject:   req.Subject,
		EmailBody:      req.Body,
		EmailMessageID: messageID,
		EmailSentAt:    &sentAt,
		CreatedAt:      now,
		CompletedAt:    &now,
		UpdatedAt:      now,
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, repos repository.RepositoryManager) error {
		debitDesc := fmt.Sprintf("Email: %s", business)
		if err := s.ledger.DebitInTx(ctx, repos, req.OwnerID, creditCost, debitDesc, &t.ID); err != nil {
			return err
		}
		return repos.Tasks().Create(ctx, t)
	})
	if err != nil {
		// The email already went out; the ledger stays clean but the send
		// is unrecorded. Log loudly so it can be reconciled.
		logger.Base().Error("email sent but task record failed",
			zap.String("owner_id", req.OwnerID),
			zap.String("message_id", messageID),
			zap.Error(err))
		return nil, err
	}
	return t, nil
}

func buildSummary(business, description string) string {
	desc := strings.TrimSpace(description)
	if len(desc) > 100 {
		desc = desc[:100]
	}
	return fmt.Sprintf("Email sent to %s regarding: %s", business, desc)
}
