package schedule

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

// Handler serves the day overview and availability endpoints.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

// NewHandler creates a new schedule handler
func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// AvailabilityResponse is returned by GET /schedule/{date}/availability.
type AvailabilityResponse struct {
	Date       string   `json:"date"`
	Duration   int      `json:"duration"`
	StartTimes []string `json:"start_times"`
}

// GetDay handles GET /schedule/{date}
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	overview, err := h.engine.Overview(r.Context(), date)
	if err != nil {
		h.fail(w, "failed to load day overview", err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// GetAvailability handles GET /schedule/{date}/availability?duration=N.
// The day is initialized on first reference, as the conversation does.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	duration := h.engine.Grid().Step
	if raw := r.URL.Query().Get("duration"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "duration must be an integer number of minutes", http.StatusBadRequest)
			return
		}
		duration = parsed
	}

	if err := h.engine.EnsureDay(r.Context(), date); err != nil {
		h.fail(w, "failed to initialize day", err)
		return
	}
	starts, err := h.engine.AvailableStartTimes(r.Context(), date, duration)
	if err != nil {
		h.fail(w, "failed to compute availability", err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{Date: date, Duration: duration, StartTimes: starts})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
