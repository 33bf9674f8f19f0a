package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/provider/resend"
	"github.com/coveplatform/mosh/internal/repository"
)

type stubSender struct {
	sent []resend.SendRequest
	id   string
	err  error
}

func (s *stubSender) Send(ctx context.Context, req resend.SendRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, req)
	return s.id, nil
}

func newTestService(t *testing.T, credits int, sender *stubSender) (*Service, repository.RepositoryManager, *ledger.Service) {
	t.Helper()
	repos := repository.NewMemoryRepositoryManager()
	require.NoError(t, repos.Accounts().Create(context.Background(), &domain.Account{
		ID:      "owner-1",
		Plan:    "free",
		Credits: credits,
	}))
	ledgerSvc := ledger.NewService(repos)
	return NewService(repos, ledgerSvc, sender), repos, ledgerSvc
}

func TestSendCreatesCompletedTaskAndDebits(t *testing.T) {
	sender := &stubSender{id: "msg-123"}
	svc, repos, _ := newTestService(t, 3, sender)

	created, err := svc.Send(context.Background(), SendRequest{
		OwnerID:      "owner-1",
		To:           "bookings@sushisaito.jp",
		BusinessName: "Sushi Saito",
		Subject:      "Reservation inquiry",
		Body:         "Hello, I would like to book a table for two.",
		Description:  "Ask about availability for Friday dinner",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TaskKindEmail, created.Kind)
	assert.Equal(t, domain.TaskStatusCompleted, created.Status)
	assert.Equal(t, domain.OutcomeSuccess, created.Outcome)
	assert.Equal(t, "msg-123", created.EmailMessageID)
	require.NotNil(t, created.EmailSentAt)
	require.NotNil(t, created.CompletedAt)
	assert.Equal(t, "Email sent to Sushi Saito regarding: Ask about availability for Friday dinner", created.Summary)
	assert.Equal(t, "Wait for a reply. Check your inbox for responses.", created.ActionItems)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "bookings@sushisaito.jp", sender.sent[0].To)

	account, err := repos.Accounts().GetByID(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 2, account.Credits)

	txns, err := repos.Credits().ListByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Email: Sushi Saito", txns[0].Description)
}

func TestSendTruncatesLongDescriptionInSummary(t *testing.T) {
	sender := &stubSender{id: "msg-1"}
	svc, _, _ := newTestService(t, 3, sender)

	longDesc := strings.Repeat("a", 150)
	created, err := svc.Send(context.Background(), SendRequest{
		OwnerID:     "owner-1",
		To:          "info@example.com",
		Subject:     "Hello",
		Body:        "Body text",
		Description: longDesc,
	})
	require.NoError(t, err)
	assert.Equal(t, "Email sent to info@example.com regarding: "+strings.Repeat("a", 100), created.Summary)
}

func TestSendInsufficientCreditsSkipsDelivery(t *testing.T) {
	sender := &stubSender{id: "msg-1"}
	svc, repos, _ := newTestService(t, 0, sender)

	_, err := svc.Send(context.Background(), SendRequest{
		OwnerID: "owner-1",
		To:      "info@example.com",
		Subject: "Hello",
		Body:    "Body text",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Empty(t, sender.sent, "no email may go out without credit cover")

	tasks, err := repos.Tasks().GetByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSendDeliveryFailureLeavesLedgerUntouched(t *testing.T) {
	sender := &stubSender{err: errors.New("provider down")}
	svc, repos, _ := newTestService(t, 3, sender)

	_, err := svc.Send(context.Background(), SendRequest{
		OwnerID: "owner-1",
		To:      "info@example.com",
		Subject: "Hello",
		Body:    "Body text",
	})
	require.Error(t, err)

	account, err := repos.Accounts().GetByID(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 3, account.Credits)

	txns, err := repos.Credits().ListByOwner(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestSendValidation(t *testing.T) {
	sender := &stubSender{id: "msg-1"}
	svc, _, _ := newTestService(t, 3, sender)

	cases := []SendRequest{
		{OwnerID: "owner-1", To: "not-an-email", Subject: "Hi", Body: "Body"},
		{OwnerID: "owner-1", To: "a@b.com", Subject: "", Body: "Body"},
		{OwnerID: "owner-1", To: "a@b.com", Subject: "Hi", Body: "  "},
	}
	for _, req := range cases {
		_, err := svc.Send(context.Background(), req)
		assert.Error(t, err)
	}
	assert.Empty(t, sender.sent)
}
