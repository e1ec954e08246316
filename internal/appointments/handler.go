package appointments

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

// Handler exposes the confirmed appointment log.
type Handler struct {
	store  Store
	logger *logging.Logger
}

func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ListResponse is the response for listing records
type ListResponse struct {
	Records []Record `json:"records"`
	Count   int      `json:"count"`
}

// List handles GET /appointments?date=YYYY-MM-DD&limit=N
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Date: r.URL.Query().Get("date")}
	if filter.Date != "" {
		if _, err := time.Parse("2006-01-02", filter.Date); err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	records, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointment records", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ListResponse{Records: records, Count: len(records)})
}
