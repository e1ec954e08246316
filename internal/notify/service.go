package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
	"github.com/wolfman30/medical-appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

var tracer = otel.Tracer("scheduler.internal.notify")

// Channel names a delivery route.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

var (
	ErrEmailNotConfigured = fmt.Errorf("notify: email channel not configured: %w", apperr.ErrNotification)
	ErrSMSNotConfigured   = fmt.Errorf("notify: sms channel not configured: %w", apperr.ErrNotification)
	ErrUnknownChannel     = fmt.Errorf("notify: unknown channel: %w", apperr.ErrNotification)
)

// Message is one outbound notification. Subject is used by email only.
type Message struct {
	Channel   Channel
	Recipient string
	Subject   string
	Body      string
}

// Result reports the outcome of one Send. Err is nil when Delivered is true.
type Result struct {
	Channel   Channel
	Recipient string
	Delivered bool
	Err       error
}

// StatusLine is the human-readable outcome appended to a conversation transcript.
func (r Result) StatusLine() string {
	switch {
	case r.Channel == ChannelEmail && r.Delivered:
		return "📧 Email sent to " + r.Recipient
	case r.Channel == ChannelEmail:
		return "❌ Email failed to send"
	case r.Channel == ChannelSMS && r.Delivered:
		return "📱 SMS sent to " + r.Recipient
	default:
		return "❌ SMS failed to send"
	}
}

// Confirmation carries what the patient is told about a finalized booking.
type Confirmation struct {
	PatientName      string
	Email            string
	Phone            string
	Date             string
	Time             string
	Duration         int
	Doctor           string
	Location         string
	InsuranceCarrier string
}

// Subject is the confirmation email subject line.
func (c Confirmation) Subject() string {
	return fmt.Sprintf("Appointment Confirmation - %s at %s", c.Date, c.Time)
}

// Body is the text shared by the email and SMS confirmations.
func (c Confirmation) Body() string {
	return fmt.Sprintf(
		"Hi %s, your %d-minute appointment is confirmed for %s at %s with %s at %s. Insurance: %s.",
		c.PatientName, c.Duration, c.Date, c.Time, c.Doctor, c.Location, c.InsuranceCarrier,
	)
}

// Config toggles channels and sets the SMS fallback recipient.
type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	// FallbackPhone receives the SMS when the patient has no phone on file.
	FallbackPhone string
	// Timeout bounds the whole confirmation fan-out. Zero means no extra bound.
	Timeout time.Duration
}

// Service sends confirmation notifications. Failures are reported, never raised.
type Service struct {
	email   EmailSender
	sms     SMSSender
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
}

// NewService creates a notification service. A nil sender disables its channel.
func NewService(email EmailSender, sms SMSSender, cfg Config, logger *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, sms: sms, cfg: cfg, logger: logger, metrics: m}
}

// Send delivers msg on its channel and reports whether it went out.
func (s *Service) Send(ctx context.Context, msg Message) Result {
	ctx, span := tracer.Start(ctx, "notify.send")
	defer span.End()
	span.SetAttributes(attribute.String("notify.channel", string(msg.Channel)))

	res := Result{Channel: msg.Channel, Recipient: msg.Recipient}
	switch msg.Channel {
	case ChannelEmail:
		if !s.cfg.EmailEnabled || s.email == nil {
			res.Err = ErrEmailNotConfigured
			break
		}
		if err := s.email.Send(ctx, EmailMessage{To: msg.Recipient, Subject: msg.Subject, Body: msg.Body}); err != nil {
			res.Err = apperr.New(apperr.ErrNotification, "notify: email", err)
		}
	case ChannelSMS:
		if !s.cfg.SMSEnabled || s.sms == nil {
			res.Err = ErrSMSNotConfigured
			break
		}
		if err := s.sms.SendSMS(ctx, msg.Recipient, msg.Body); err != nil {
			res.Err = apperr.New(apperr.ErrNotification, "notify: sms", err)
		}
	default:
		res.Err = ErrUnknownChannel
	}

	res.Delivered = res.Err == nil
	s.metrics.ObserveNotification(string(msg.Channel), res.Delivered)
	if res.Err != nil {
		span.RecordError(res.Err)
		level := s.logger.Warn
		if !errors.Is(res.Err, ErrEmailNotConfigured) && !errors.Is(res.Err, ErrSMSNotConfigured) {
			level = s.logger.Error
		}
		level("notification not delivered", "channel", msg.Channel, "recipient", msg.Recipient, "error", res.Err)
	}
	return res
}

// NotifyConfirmation emails the patient when an address is on file and texts
// the patient phone, or the fallback number when none is on file.
func (s *Service) NotifyConfirmation(ctx context.Context, c Confirmation) []Result {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	body := c.Body()
	var results []Result
	if email := strings.TrimSpace(c.Email); email != "" {
		results = append(results, s.Send(ctx, Message{Channel: ChannelEmail, Recipient: email, Subject: c.Subject(), Body: body}))
	}

	phone := strings.TrimSpace(c.Phone)
	if phone == "" {
		phone = strings.TrimSpace(s.cfg.FallbackPhone)
	}
	if phone != "" {
		results = append(results, s.Send(ctx, Message{Channel: ChannelSMS, Recipient: phone, Body: body}))
	}
	return results
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
