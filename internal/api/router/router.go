package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/medical-appointment-scheduler/internal/appointments"
	"github.com/wolfman30/medical-appointment-scheduler/internal/conversation"
	httpmiddleware "github.com/wolfman30/medical-appointment-scheduler/internal/http/middleware"
	"github.com/wolfman30/medical-appointment-scheduler/internal/schedule"
	"github.com/wolfman30/medical-appointment-scheduler/internal/webchat"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

// HealthCheck probes one dependency for GET /health.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	ScheduleHandler     *schedule.Handler
	AppointmentsHandler *appointments.Handler
	WebChatHandler      *webchat.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// ChatRateLimitRPS limits message endpoints per client IP. Zero disables it.
	ChatRateLimitRPS   float64
	ChatRateLimitBurst int

	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	limited := httpmiddleware.RateLimit(cfg.ChatRateLimitRPS, cfg.ChatRateLimitBurst)

	if h := cfg.ConversationHandler; h != nil {
		r.Route("/conversations", func(conv chi.Router) {
			conv.Post("/", h.Start)
			conv.Route("/{id}", func(session chi.Router) {
				session.Get("/", h.Get)
				session.With(limited).Post("/messages", h.Message)
				session.Post("/reset", h.Reset)
			})
		})
	}

	if h := cfg.ScheduleHandler; h != nil {
		r.Route("/schedule/{date}", func(day chi.Router) {
			day.Get("/", h.GetDay)
			day.Get("/availability", h.GetAvailability)
		})
	}

	if h := cfg.AppointmentsHandler; h != nil {
		r.Get("/appointments", h.List)
	}

	if h := cfg.WebChatHandler; h != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Get("/ws", h.HandleWebSocket)
			chat.With(limited).Post("/message", h.HandleMessage)
			chat.Get("/history", h.HandleHistory)
		})
	}

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(names) > 0 {
			resp.Checks = make(map[string]string, len(names))
		}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
