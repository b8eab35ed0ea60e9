package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/unosend/unosend/internal/service/broadcast"
	"github.com/unosend/unosend/internal/service/dispatch"
)

// EmailRunner runs one scheduled-email batch.
type EmailRunner interface {
	Run(ctx context.Context) (*dispatch.BatchResult, error)
}

// BroadcastRunner runs one broadcast batch and handles cancellation.
type BroadcastRunner interface {
	Run(ctx context.Context) (*broadcast.RunResult, error)
	Cancel(ctx context.Context, orgID, broadcastID string) error
}

// Handlers holds the HTTP handlers for the cron and broadcast endpoints.
type Handlers struct {
	emails     EmailRunner
	broadcasts BroadcastRunner
}

// NewHandlers creates the handler set.
func NewHandlers(emails EmailRunner, broadcasts BroadcastRunner) *Handlers {
	return &Handlers{emails: emails, broadcasts: broadcasts}
}

// handleHealth reports liveness.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScheduledEmails runs one scheduled-email batch. Per-email failures
// are reported in the body, not the status code: the run itself succeeded.
func (h *Handlers) handleScheduledEmails(w http.ResponseWriter, r *http.Request) {
	res, err := h.emails.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "batch run failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleBroadcasts runs one broadcast batch.
func (h *Handlers) handleBroadcasts(w http.ResponseWriter, r *http.Request) {
	res, err := h.broadcasts.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "batch run failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCancelBroadcast cancels a scheduled broadcast for the caller's
// organization.
func (h *Handlers) handleCancelBroadcast(w http.ResponseWriter, r *http.Request) {
	org := orgID(r)
	if org == "" {
		writeError(w, http.StatusUnauthorized, "missing organization")
		return
	}
	id := chi.URLParam(r, "id")

	err := h.broadcasts.Cancel(r.Context(), org, id)
	switch {
	case errors.Is(err, broadcast.ErrNotFound):
		writeError(w, http.StatusNotFound, "broadcast not found")
	case errors.Is(err, broadcast.ErrNotCancellable):
		writeError(w, http.StatusConflict, "broadcast is not cancellable")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "cancel failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "cancelled"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
