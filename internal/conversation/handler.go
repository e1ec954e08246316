package conversation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service Service
	logger  *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(service Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// MessageRequest is the body of POST /conversations/{id}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// Start handles POST /conversations.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Start(r.Context())
	if err != nil {
		h.fail(w, "failed to start conversation", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// Message handles POST /conversations/{id}/messages.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Message(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		h.fail(w, "failed to process message", err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Reset handles POST /conversations/{id}/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "failed to reset conversation", err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /conversations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "failed to load conversation", err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	status := apperr.HTTPStatus(err)
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error(msg, "error", err)
		http.Error(w, "Internal error", status)
	case errors.Is(err, apperr.ErrNotFound):
		http.Error(w, "Conversation not found", status)
	default:
		http.Error(w, err.Error(), status)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
