package mainconfig

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medical-appointment-scheduler/internal/api/router"
	"github.com/wolfman30/medical-appointment-scheduler/internal/appointments"
	appconfig "github.com/wolfman30/medical-appointment-scheduler/internal/config"
	"github.com/wolfman30/medical-appointment-scheduler/internal/conversation"
	"github.com/wolfman30/medical-appointment-scheduler/internal/notify"
	"github.com/wolfman30/medical-appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/medical-appointment-scheduler/internal/patients"
	"github.com/wolfman30/medical-appointment-scheduler/internal/schedule"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

// LoadAWSConfig centralizes AWS SDK initialization so both binaries share the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}
	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}
	return awsCfg, nil
}

// NewEmailSender picks the email provider. With EMAIL_PROVIDER=auto SendGrid
// wins when an API key is set, then SES when a sender address is set.
// A nil sender means email is not configured.
func NewEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	if !cfg.EmailEnabled {
		return nil, nil
	}

	provider := cfg.EmailProvider
	if provider == "" || provider == "auto" {
		switch {
		case cfg.SendGridAPIKey != "":
			provider = "sendgrid"
		case cfg.SESFromEmail != "":
			provider = "ses"
		default:
			return nil, nil
		}
	}

	switch provider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil, nil
		}
		return sender, nil
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: load aws config: %w", err)
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			return nil, nil
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("mainconfig: unknown EMAIL_PROVIDER %q", provider)
	}
}

// NewSMSSender returns the Twilio sender, or nil when SMS is disabled or unconfigured.
func NewSMSSender(cfg *appconfig.Config, logger *logging.Logger) notify.SMSSender {
	if !cfg.SMSEnabled {
		return nil
	}
	sender := notify.NewTwilioSender(notify.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
	}, logger)
	if sender == nil {
		return nil
	}
	return sender
}

// NewRedisClient builds the client shared by the session and slot stores.
func NewRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// App is the wired booking stack shared by the API server and the terminal client.
type App struct {
	Engine        *schedule.Engine
	Directory     patients.Directory
	Records       appointments.Store
	Notifier      *notify.Service
	Conversations conversation.Service
	HealthChecks  map[string]router.HealthCheck

	closers []func()
}

// Close releases database and cache connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Options tweak Build for callers that do not want the configured senders.
type Options struct {
	Metrics     *metrics.SchedulingMetrics
	EmailSender notify.EmailSender
	SMSSender   notify.SMSSender
	// StubNotifications logs notifications instead of sending them.
	StubNotifications bool
}

// Build connects the configured backends and wires the booking stack.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mainconfig: invalid configuration: %w", err)
	}
	if logger == nil {
		logger = logging.Default()
	}

	app := &App{HealthChecks: map[string]router.HealthCheck{}}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	needs := map[string]bool{}
	for _, backend := range []string{cfg.StorageBackend, cfg.EffectiveScheduleBackend(), cfg.SessionBackend} {
		needs[backend] = true
	}

	var pool *pgxpool.Pool
	var db *sql.DB
	if needs[appconfig.BackendPostgres] {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: connect postgres: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		app.HealthChecks["postgres"] = pool.Ping

		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: open postgres: %w", err)
		}
		app.closers = append(app.closers, func() { _ = db.Close() })
		db.SetMaxOpenConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	var rdb *redis.Client
	if needs[appconfig.BackendRedis] {
		rdb = NewRedisClient(cfg)
		app.closers = append(app.closers, func() { _ = rdb.Close() })
		app.HealthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var slots schedule.Store
	switch cfg.EffectiveScheduleBackend() {
	case appconfig.BackendPostgres:
		slots = schedule.NewPostgresStore(pool)
	case appconfig.BackendRedis:
		slots = schedule.NewRedisStore(rdb)
	default:
		slots = schedule.NewMemoryStore()
	}

	switch cfg.StorageBackend {
	case appconfig.BackendPostgres:
		app.Directory = patients.NewPostgresDirectory(pool)
		app.Records = appointments.NewSQLStore(db)
	default:
		app.Directory = patients.NewMemoryDirectory()
		app.Records = appointments.NewMemoryStore()
	}

	var sessions conversation.SessionStore
	if cfg.SessionBackend == appconfig.BackendRedis {
		sessions = conversation.NewRedisSessionStore(rdb, cfg.SessionTTL)
	} else {
		sessions = conversation.NewMemorySessionStore()
	}

	grid, err := schedule.NewGrid(cfg.ClinicOpen, cfg.ClinicClose, cfg.SlotStepMinutes)
	if err != nil {
		return nil, fmt.Errorf("mainconfig: clinic grid: %w", err)
	}
	app.Engine = schedule.NewEngine(slots, grid, logger, schedule.WithMetrics(opts.Metrics))
	if cfg.PrewarmDays > 0 {
		if err := app.Engine.Prewarm(ctx, time.Now(), cfg.PrewarmDays); err != nil {
			logger.Warn("schedule prewarm failed", "days", cfg.PrewarmDays, "error", err)
		}
	}

	email, sms := opts.EmailSender, opts.SMSSender
	switch {
	case opts.StubNotifications:
		if email == nil {
			email = notify.NewStubEmailSender(logger)
		}
		if sms == nil {
			sms = notify.NewStubSMSSender(logger)
		}
	default:
		if email == nil {
			if email, err = NewEmailSender(ctx, cfg, logger); err != nil {
				return nil, err
			}
		}
		if sms == nil {
			sms = NewSMSSender(cfg, logger)
		}
	}
	if email == nil {
		logger.Warn("email notifications not configured")
	}
	if sms == nil {
		logger.Warn("sms notifications not configured")
	}
	app.Notifier = notify.NewService(email, sms, notify.Config{
		EmailEnabled:  cfg.EmailEnabled,
		SMSEnabled:    cfg.SMSEnabled,
		FallbackPhone: cfg.PatientNotifyPhone,
		Timeout:       cfg.NotifyTimeout,
	}, logger, opts.Metrics)

	driver := conversation.NewDriver(app.Engine, app.Directory, app.Records, app.Notifier, logger,
		conversation.WithAssigner(conversation.NewLengthAssigner(cfg.Doctors, cfg.Locations)),
		conversation.WithDurations(cfg.NewPatientMinutes, cfg.ReturningPatientMinutes),
		conversation.WithDriverMetrics(opts.Metrics),
	)
	app.Conversations = conversation.NewService(driver, sessions, logger)

	logger.Info("booking stack ready",
		"storage_backend", cfg.StorageBackend,
		"schedule_backend", cfg.EffectiveScheduleBackend(),
		"session_backend", cfg.SessionBackend,
	)
	return app, nil
}
