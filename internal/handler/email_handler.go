package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/services/account"
	"github.com/coveplatform/mosh/internal/services/email"
)

// EmailHandler handles HTTP requests for email tasks.
type EmailHandler struct {
	emails   *email.Service
	accounts *account.Service
}

func NewEmailHandler(emails *email.Service, accounts *account.Service) *EmailHandler {
	return &EmailHandler{emails: emails, accounts: accounts}
}

// SetupEmailRoutes registers email routes on the given router.
func (h *EmailHandler) SetupEmailRoutes(router *mux.Router) {
	router.HandleFunc("/tasks/email", h.SendEmail).Methods("POST")
}

func (h *EmailHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req email.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OwnerID = ownerID(r)

	if _, err := h.accounts.Ensure(r.Context(), req.OwnerID); err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := h.emails.Send(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			writeDomainError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
