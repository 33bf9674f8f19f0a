package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coveplatform/mosh/internal/domain"
	"github.com/coveplatform/mosh/internal/services/account"
	"github.com/coveplatform/mosh/internal/services/task"
)

// TaskHandler handles HTTP requests for call tasks.
type TaskHandler struct {
	tasks    *task.Service
	accounts *account.Service
}

func NewTaskHandler(tasks *task.Service, accounts *account.Service) *TaskHandler {
	return &TaskHandler{tasks: tasks, accounts: accounts}
}

// SetupTaskRoutes registers task routes on the given router.
func (h *TaskHandler) SetupTaskRoutes(router *mux.Router) {
	router.HandleFunc("/tasks", h.CreateTask).Methods("POST")
	router.HandleFunc("/tasks", h.ListTasks).Methods("GET")
	router.HandleFunc("/tasks/{id}", h.GetTask).Methods("GET")
	router.HandleFunc("/tasks/{id}", h.DeleteTask).Methods("DELETE")
	router.HandleFunc("/tasks/{id}/call", h.DispatchTask).Methods("POST")
	router.HandleFunc("/tasks/{id}/fail", h.FailCall).Methods("POST")
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req task.CreateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OwnerID = ownerID(r)

	if _, err := h.accounts.Ensure(r.Context(), req.OwnerID); err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := h.tasks.Create(r.Context(), req)
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

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List(r.Context(), ownerID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.tasks.Get(r.Context(), ownerID(r), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.Delete(r.Context(), ownerID(r), mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DispatchTask places (or retries) the call for a task.
func (h *TaskHandler) DispatchTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.tasks.Dispatch(r.Context(), ownerID(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	t, err := h.tasks.Get(r.Context(), ownerID(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// FailCall manually marks a stuck call as failed and refunds its credit.
func (h *TaskHandler) FailCall(w http.ResponseWriter, r *http.Request) {
	failed, err := h.tasks.ManualFail(r.Context(), ownerID(r), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, failed)
}
