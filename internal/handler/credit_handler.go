package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coveplatform/mosh/internal/config"
	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/ledger"
	"github.com/coveplatform/mosh/internal/services/account"
)

// CreditHandler exposes the account's credit balance and transaction
// history.
type CreditHandler struct {
	ledger   *ledger.Service
	accounts *account.Service
}

func NewCreditHandler(ledgerSvc *ledger.Service, accounts *account.Service) *CreditHandler {
	return &CreditHandler{ledger: ledgerSvc, accounts: accounts}
}

// SetupCreditRoutes registers credit routes on the given router.
func (h *CreditHandler) SetupCreditRoutes(router *mux.Router) {
	router.HandleFunc("/credits", h.GetCredits).Methods("GET")
	router.HandleFunc("/plans", h.ListPlans).Methods("GET")
}

// ListPlans returns the subscription tiers for the pricing page.
func (h *CreditHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"plans": config.Plans(),
	})
}

func (h *CreditHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	acct, err := h.accounts.Ensure(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	balance, txns, err := h.ledger.BalanceWithHistory(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if txns == nil {
		txns = []*domain.CreditTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"credits":      balance,
		"creditsMax":   acct.CreditsMax,
		"plan":         acct.Plan,
		"transactions": txns,
	})
}
