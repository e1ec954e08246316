package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medical-appointment-scheduler/internal/appointments"
	"github.com/wolfman30/medical-appointment-scheduler/internal/conversation"
	"github.com/wolfman30/medical-appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/medical-appointment-scheduler/internal/patients"
	"github.com/wolfman30/medical-appointment-scheduler/internal/schedule"
	"github.com/wolfman30/medical-appointment-scheduler/internal/webchat"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

func newTestRouter(t *testing.T, checks map[string]HealthCheck) http.Handler {
	t.Helper()

	logger := logging.New("error")
	reg := prometheus.NewRegistry()
	m := metrics.NewSchedulingMetrics(reg)
	engine := schedule.NewEngine(schedule.NewMemoryStore(), schedule.DefaultGrid(), logger, schedule.WithMetrics(m))
	records := appointments.NewMemoryStore()
	driver := conversation.NewDriver(engine, patients.NewMemoryDirectory(), records, nil, logger, conversation.WithDriverMetrics(m))
	svc := conversation.NewService(driver, conversation.NewMemorySessionStore(), logger)

	return New(&Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(svc, logger),
		ScheduleHandler:     schedule.NewHandler(engine, logger),
		AppointmentsHandler: appointments.NewHandler(records, logger),
		WebChatHandler:      webchat.NewHandler(svc, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  []string{"*"},
		ChatRateLimitRPS:    100,
		ChatRateLimitBurst:  100,
		HealthChecks:        checks,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", resp.Status)
	}
}

func TestRouterHealthReportsFailingDependency(t *testing.T) {
	router := newTestRouter(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp.Checks["postgres"] != "ok" || resp.Checks["redis"] != "connection refused" {
		t.Fatalf("unexpected checks %v", resp.Checks)
	}
}

func TestRouterConversationRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/conversations", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	var started conversation.Response
	if err := json.NewDecoder(rr.Body).Decode(&started); err != nil {
		t.Fatalf("failed to decode start response: %v", err)
	}

	body := `{"text":"Name: Jane Doe, DOB: 1990-01-15, Email: jane@x.com, Phone: +15551234567"}`
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/conversations/"+started.SessionID+"/messages", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/conversations/"+started.SessionID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/conversations/"+started.SessionID+"/reset", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRouterOperationalRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	for path, want := range map[string]int{
		"/schedule/2026-11-02/availability?duration=30": http.StatusOK,
		"/schedule/2026-11-02":                          http.StatusOK,
		"/appointments":                                 http.StatusOK,
		"/appointments?date=nope":                       http.StatusBadRequest,
		"/chat/history":                                 http.StatusBadRequest,
		"/metrics":                                      http.StatusOK,
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != want {
			t.Errorf("%s: expected status %d, got %d", path, want, rr.Code)
		}
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat/message", nil)
	req.Header.Set("Origin", "https://clinic.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
}
