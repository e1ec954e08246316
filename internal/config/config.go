package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// HTTP surface
	CORSAllowedOrigins []string
	ChatRateLimitRPS   float64
	ChatRateLimitBurst int

	// StorageBackend selects where patients, records and (by default) slot rows live.
	StorageBackend string
	// ScheduleBackend overrides StorageBackend for slot rows only. Empty means inherit.
	ScheduleBackend string
	SessionBackend  string
	SessionTTL      time.Duration
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool

	// Clinic grid and booking policy
	ClinicOpen              string
	ClinicClose             string
	SlotStepMinutes         int
	NewPatientMinutes       int
	ReturningPatientMinutes int
	PrewarmDays             int
	Doctors                 []string
	Locations               []string

	// Email notifications
	EmailEnabled      bool
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// SMS notifications
	SMSEnabled         bool
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string
	PatientNotifyPhone string

	NotifyTimeout time.Duration
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		ChatRateLimitRPS:   getEnvAsFloat("CHAT_RATE_LIMIT_RPS", 2),
		ChatRateLimitBurst: getEnvAsInt("CHAT_RATE_LIMIT_BURST", 10),

		StorageBackend:  strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", BackendMemory))),
		ScheduleBackend: strings.ToLower(strings.TrimSpace(getEnv("SCHEDULE_BACKEND", ""))),
		SessionBackend:  strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", BackendMemory))),
		SessionTTL:      getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),

		ClinicOpen:              getEnv("CLINIC_OPEN", "10:00"),
		ClinicClose:             getEnv("CLINIC_CLOSE", "21:00"),
		SlotStepMinutes:         getEnvAsInt("SLOT_STEP_MINUTES", 30),
		NewPatientMinutes:       getEnvAsInt("NEW_PATIENT_MINUTES", 60),
		ReturningPatientMinutes: getEnvAsInt("RETURNING_PATIENT_MINUTES", 30),
		PrewarmDays:             getEnvAsInt("PREWARM_DAYS", 7),
		Doctors:                 getEnvAsList("DOCTORS", []string{"Dr. Smith", "Dr. Johnson", "Dr. Lee"}),
		Locations:               getEnvAsList("LOCATIONS", []string{"Main Clinic", "Downtown Office", "Uptown Branch"}),

		EmailEnabled:      getEnvAsBool("EMAIL_ENABLED", true),
		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Clinic Scheduling"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SMSEnabled:         getEnvAsBool("SMS_ENABLED", true),
		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:   getEnv("TWILIO_FROM_NUMBER", ""),
		PatientNotifyPhone: getEnv("PATIENT_NOTIFY_PHONE", ""),

		NotifyTimeout: getEnvAsDuration("NOTIFY_TIMEOUT", 15*time.Second),
	}
}

// EffectiveScheduleBackend returns the backend used for slot rows.
func (c *Config) EffectiveScheduleBackend() string {
	if c.ScheduleBackend == "" || c.ScheduleBackend == "inherit" {
		return c.StorageBackend
	}
	return c.ScheduleBackend
}

// Validate reports configuration that would make the scheduler misbehave.
func (c *Config) Validate() error {
	var errs []error

	open, errOpen := parseClock(c.ClinicOpen)
	if errOpen != nil {
		errs = append(errs, fmt.Errorf("CLINIC_OPEN: %w", errOpen))
	}
	closing, errClose := parseClock(c.ClinicClose)
	if errClose != nil {
		errs = append(errs, fmt.Errorf("CLINIC_CLOSE: %w", errClose))
	}
	if errOpen == nil && errClose == nil && open >= closing {
		errs = append(errs, errors.New("CLINIC_OPEN must be before CLINIC_CLOSE"))
	}

	if c.SlotStepMinutes <= 0 {
		errs = append(errs, errors.New("SLOT_STEP_MINUTES must be positive"))
	} else {
		for name, minutes := range map[string]int{
			"NEW_PATIENT_MINUTES":       c.NewPatientMinutes,
			"RETURNING_PATIENT_MINUTES": c.ReturningPatientMinutes,
		} {
			if minutes <= 0 || minutes%c.SlotStepMinutes != 0 {
				errs = append(errs, fmt.Errorf("%s must be a positive multiple of %d", name, c.SlotStepMinutes))
			}
		}
	}
	if len(c.Doctors) == 0 {
		errs = append(errs, errors.New("DOCTORS must not be empty"))
	}
	if len(c.Locations) == 0 {
		errs = append(errs, errors.New("LOCATIONS must not be empty"))
	}

	for _, backend := range []string{c.StorageBackend, c.EffectiveScheduleBackend(), c.SessionBackend} {
		switch backend {
		case BackendMemory:
		case BackendPostgres:
			if strings.TrimSpace(c.DatabaseURL) == "" {
				errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
			}
		case BackendRedis:
			if strings.TrimSpace(c.RedisAddr) == "" {
				errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown backend %q", backend))
		}
	}
	if c.StorageBackend == BackendRedis {
		errs = append(errs, errors.New("STORAGE_BACKEND does not support redis; use SCHEDULE_BACKEND or SESSION_BACKEND"))
	}
	if c.SessionBackend == BackendPostgres {
		errs = append(errs, errors.New("SESSION_BACKEND supports memory or redis"))
	}

	return errors.Join(errs...)
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
