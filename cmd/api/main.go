package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/medical-appointment-scheduler/cmd/mainconfig"
	"github.com/wolfman30/medical-appointment-scheduler/internal/api/router"
	"github.com/wolfman30/medical-appointment-scheduler/internal/appointments"
	appconfig "github.com/wolfman30/medical-appointment-scheduler/internal/config"
	"github.com/wolfman30/medical-appointment-scheduler/internal/conversation"
	"github.com/wolfman30/medical-appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/medical-appointment-scheduler/internal/schedule"
	"github.com/wolfman30/medical-appointment-scheduler/internal/webchat"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting appointment scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	reg := newRegistry()
	app, err := mainconfig.Build(context.Background(), cfg, logger, mainconfig.Options{
		Metrics: metrics.NewSchedulingMetrics(reg),
	})
	if err != nil {
		logger.Error("failed to initialize booking stack", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := newServer(cfg, app, reg, logger)

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newServer mounts every handler on the router. WriteTimeout stays zero when
// the web chat socket is mounted so long-lived connections are not cut.
func newServer(cfg *appconfig.Config, app *mainconfig.App, reg *prometheus.Registry, logger *logging.Logger) *http.Server {
	r := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(app.Conversations, logger),
		ScheduleHandler:     schedule.NewHandler(app.Engine, logger),
		AppointmentsHandler: appointments.NewHandler(app.Records, logger),
		WebChatHandler:      webchat.NewHandler(app.Conversations, logger),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ChatRateLimitRPS:    cfg.ChatRateLimitRPS,
		ChatRateLimitBurst:  cfg.ChatRateLimitBurst,
		HealthChecks:        app.HealthChecks,
	})

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
