package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/coveplatform/mosh/internal/config"
	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/services/account"
	"github.com/coveplatform/mosh/pkg/logger"
)

// BillingWebhookHandler applies subscription lifecycle events to the
// credit ledger. Events arrive pre-normalized from the payment gateway's
// edge function.
type BillingWebhookHandler struct {
	accounts *account.Service
	ledger   *ledger.Service
}

func NewBillingWebhookHandler(accounts *account.Service, ledgerSvc *ledger.Service) *BillingWebhookHandler {
	return &BillingWebhookHandler{accounts: accounts, ledger: ledgerSvc}
}

// SetupBillingWebhookRoutes registers the billing webhook route on its
// prefix subrouter.
func (h *BillingWebhookHandler) SetupBillingWebhookRoutes(router *mux.Router) {
	router.HandleFunc("", h.HandleWebhook).Methods("POST")
}

type billingEvent struct {
	Type          string `json:"type"`
	OwnerID       string `json:"ownerId"`
	Plan          string `json:"plan"`
	BillingReason string `json:"billingReason"`
}

func (h *BillingWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var event billingEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if event.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	var err error
	switch event.Type {
	case "checkout.completed":
		plan := config.PlanByKey(event.Plan)
		err = h.accounts.ApplyPlan(r.Context(), event.OwnerID, plan,
			fmt.Sprintf("Subscription activated: %s plan", plan.Name))

	case "subscription.renewed":
		// The initial invoice fires alongside checkout.completed; applying
		// both would double-grant.
		if event.BillingReason == "subscription_create" {
			break
		}
		plan := config.PlanByKey(event.Plan)
		err = h.accounts.ApplyPlan(r.Context(), event.OwnerID, plan,
			fmt.Sprintf("Monthly credit refresh: %s plan", plan.Name))

	case "subscription.cancelled":
		err = h.accounts.ApplyPlan(r.Context(), event.OwnerID, config.FreePlan(),
			"Subscription cancelled, reverted to free plan")

	case "payment.failed":
		// Zero-amount marker so the failure shows up in the history
		// without touching the balance.
		err = h.ledger.Credit(r.Context(), event.OwnerID, 0,
			domain.TransactionKindSubscription, "Payment failed, credits unchanged", nil)

	default:
		logger.Base().Debug("ignoring billing event", zap.String("type", event.Type))
	}

	if err != nil {
		logger.Base().Error("billing event processing failed",
			zap.String("type", event.Type),
			zap.String("owner_id", event.OwnerID),
			zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
