package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/medical-appointment-scheduler/internal/appointments"
	"github.com/wolfman30/medical-appointment-scheduler/internal/notify"
	"github.com/wolfman30/medical-appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/medical-appointment-scheduler/internal/patients"
	"github.com/wolfman30/medical-appointment-scheduler/internal/schedule"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

// Scheduler is the part of the schedule engine the dialogue needs.
type Scheduler interface {
	EnsureDay(ctx context.Context, date string) error
	AvailableStartTimes(ctx context.Context, date string, durationMinutes int) ([]string, error)
	Book(ctx context.Context, req schedule.BookingRequest) error
}

// Notifier sends the booking confirmation and reports per-channel results.
type Notifier interface {
	NotifyConfirmation(ctx context.Context, c notify.Confirmation) []notify.Result
}

// Durations sets the appointment length per patient category.
type Durations struct {
	New       int
	Returning int
}

const defaultMaxSteps = 16

type handlerFunc func(d *Driver, ctx context.Context, s State, input string) Transition

var handlers = map[Phase]handlerFunc{
	PhaseGreet:     (*Driver).greet,
	PhaseDoctor:    (*Driver).doctor,
	PhaseDate:      (*Driver).date,
	PhaseSlots:     (*Driver).slots,
	PhaseBook:      (*Driver).book,
	PhaseInsurance: (*Driver).insurance,
	PhaseFinalize:  (*Driver).finalize,
	PhaseDone:      (*Driver).done,
}

// Driver runs the booking state machine. It holds no session state.
type Driver struct {
	scheduler Scheduler
	directory patients.Directory
	records   appointments.Store
	notifier  Notifier
	assigner  Assigner
	durations Durations
	now       func() time.Time
	maxSteps  int
	logger    *logging.Logger
	metrics   *metrics.SchedulingMetrics
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithAssigner replaces the length-based doctor and location assignment.
func WithAssigner(a Assigner) DriverOption {
	return func(d *Driver) {
		if a != nil {
			d.assigner = a
		}
	}
}

// WithDurations overrides the 60/30 minute defaults. Non-positive values are ignored.
func WithDurations(newPatient, returning int) DriverOption {
	return func(d *Driver) {
		if newPatient > 0 {
			d.durations.New = newPatient
		}
		if returning > 0 {
			d.durations.Returning = returning
		}
	}
}

// WithClock sets the clock used to resolve relative dates and timestamps.
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDriverMetrics counts turns by resulting phase.
func WithDriverMetrics(m *metrics.SchedulingMetrics) DriverOption {
	return func(d *Driver) {
		d.metrics = m
	}
}

// NewDriver wires the collaborators. A nil notifier skips confirmations.
func NewDriver(scheduler Scheduler, directory patients.Directory, records appointments.Store, notifier Notifier, logger *logging.Logger, opts ...DriverOption) *Driver {
	if scheduler == nil || directory == nil || records == nil {
		panic("conversation: scheduler, directory and records are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	d := &Driver{
		scheduler: scheduler,
		directory: directory,
		records:   records,
		notifier:  notifier,
		assigner:  NewLengthAssigner(nil, nil),
		durations: Durations{New: 60, Returning: 30},
		now:       time.Now,
		maxSteps:  defaultMaxSteps,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Turn feeds one utterance to the machine. Phases that do not read input run
// back to back with the utterance held for the first phase that does. The
// turn ends once that phase has run and produced a message, when a phase
// replies without moving on, or when the session reaches done. The caller's
// state is not modified.
func (d *Driver) Turn(ctx context.Context, s State, input string) (State, []string) {
	s = s.clone()
	if !s.Phase.Valid() {
		s.Phase = PhaseGreet
	}
	input = strings.TrimSpace(input)
	if input != "" {
		s = s.record(RoleUser, input, d.now())
	}

	var messages []string
	pending := true
	for step := 0; ; step++ {
		if step == d.maxSteps {
			d.logger.Error("conversation: turn exceeded step limit", "session_id", s.SessionID, "phase", s.Phase)
			messages = append(messages, msgStuck)
			break
		}

		phase := s.Phase
		var tr Transition
		if phase.consumesInput() {
			tr = handlers[phase](d, ctx, s, input)
			pending = false
		} else {
			tr = handlers[phase](d, ctx, s, "")
		}
		d.metrics.ObserveTurn(string(phase))

		s = tr.State
		if tr.Message != "" {
			messages = append(messages, tr.Message)
			s = s.record(RoleAssistant, tr.Message, d.now())
		}
		d.logger.Debug("conversation: transition", "session_id", s.SessionID, "from", phase, "phase", s.Phase)

		// A reply without a phase change is an error prompt; it waits for the user.
		if tr.Message != "" && (!pending || s.Phase == phase || s.Phase == PhaseDone) {
			break
		}
	}
	s.UpdatedAt = d.now()
	return s, messages
}
