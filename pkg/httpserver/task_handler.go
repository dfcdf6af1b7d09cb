package httpserver

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/taskstore"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// TaskHandler exposes the operator-approval wire boundary. It carries no
// dashboard-specific schema, only the typed TaskCreateInput already in
// pkg/types, so it stays inside the core's Non-goal boundary for dashboard
// *rendering* while still giving an approved opportunity somewhere to go.
type TaskHandler struct {
	store  *taskstore.Store
	logger *zap.Logger
}

func NewTaskHandler(store *taskstore.Store, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{store: store, logger: logger}
}

// HandleCreate accepts a TaskCreateInput and creates a task from it,
// equivalent to an operator approving a scanned opportunity.
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input types.TaskCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	task, err := h.store.Create(r.Context(), input)
	if err != nil {
		h.writeCreateError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(task); err != nil {
		h.logger.Warn("task-create-response-encode-failed", zap.Error(err))
	}
}

func (h *TaskHandler) writeCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, taskstore.ErrCircuitBreakerOpen):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, taskstore.ErrActiveTaskExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// HandleCancel cancels a task by id (the URL's {id} chi route param).
func (h *TaskHandler) HandleCancel(w http.ResponseWriter, r *http.Request, id string) {
	task, err := h.store.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(task); err != nil {
		h.logger.Warn("task-cancel-response-encode-failed", zap.Error(err))
	}
}

// HandleList returns every task currently held by the store.
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.store.List()); err != nil {
		h.logger.Warn("task-list-response-encode-failed", zap.Error(err))
	}
}
