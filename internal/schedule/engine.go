package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
	"github.com/wolfman30/medical-appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

var tracer = otel.Tracer("scheduler.internal.schedule")

// BookingRequest asks for Duration minutes of consecutive rows starting at Start on Date.
type BookingRequest struct {
	Date        string
	Start       string
	Patient     string
	Duration    int
	PatientType string
}

// DayOverview summarizes one day of the grid.
type DayOverview struct {
	Date        string `json:"date"`
	Booked      []Slot `json:"booked"`
	BookedCount int    `json:"booked_count"`
	FreeCount   int    `json:"free_count"`
	Initialized bool   `json:"initialized"`
}

// Engine answers availability queries and performs bookings on top of a Store.
type Engine struct {
	store   Store
	grid    Grid
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records booking and availability observations.
func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides time.Now, used for latency and pre-warm dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine wires an engine over store using grid.
func NewEngine(store Store, grid Grid, logger *logging.Logger, opts ...Option) *Engine {
	if store == nil {
		panic("schedule: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{store: store, grid: grid, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Grid returns the engine's opening window.
func (e *Engine) Grid() Grid {
	return e.grid
}

// EnsureDay creates the free rows for date if they do not exist yet.
func (e *Engine) EnsureDay(ctx context.Context, date string) error {
	day, err := NormalizeDate(date)
	if err != nil {
		return err
	}
	created, err := e.store.EnsureDay(ctx, day, e.grid.EmptyDay(day))
	if err != nil {
		return err
	}
	if created {
		e.logger.Debug("slot grid initialized", "date", day)
	}
	return nil
}

// Prewarm initializes days consecutive dates starting at from.
func (e *Engine) Prewarm(ctx context.Context, from time.Time, days int) error {
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format(DateLayout)
		if err := e.EnsureDay(ctx, date); err != nil {
			return fmt.Errorf("schedule: prewarm %s: %w", date, err)
		}
	}
	return nil
}

// AvailableStartTimes lists, in ascending order, every free row of date whose
// following rows needed for durationMinutes all exist and are free.
// A date without rows yields an empty result.
func (e *Engine) AvailableStartTimes(ctx context.Context, date string, durationMinutes int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "schedule.available_start_times")
	defer span.End()
	span.SetAttributes(attribute.String("schedule.date", date), attribute.Int("schedule.duration", durationMinutes))

	day, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := e.grid.Span(durationMinutes)
	if err != nil {
		return nil, err
	}
	slots, err := e.store.ReadDay(ctx, day)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read day failed")
		return nil, err
	}

	byTime := indexSlots(slots)
	starts := []string{}
	for _, slot := range slots {
		if !slot.Free() {
			continue
		}
		if _, ok := e.freeRun(byTime, slot.Time, rows); ok {
			starts = append(starts, slot.Time)
		}
	}
	e.metrics.ObserveAvailability(len(starts) > 0)
	return starts, nil
}

// Book re-reads the day, re-validates that every required row is free, and
// asks the store to occupy them atomically. The first row records the full
// duration and continuation rows record zero.
func (e *Engine) Book(ctx context.Context, req BookingRequest) (err error) {
	ctx, span := tracer.Start(ctx, "schedule.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("schedule.date", req.Date),
		attribute.String("schedule.start", req.Start),
		attribute.Int("schedule.duration", req.Duration),
	)

	started := e.now()
	defer func() {
		e.metrics.ObserveBooking(bookingOutcome(err), e.now().Sub(started).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "booking failed")
		}
	}()

	day, err := NormalizeDate(req.Date)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.Patient) == "" {
		return apperr.Validation("schedule: book", "patient is required")
	}
	n, err := e.grid.Span(req.Duration)
	if err != nil {
		return err
	}
	startMinutes, err := ParseClock(req.Start)
	if err != nil {
		return err
	}
	start := FormatClock(startMinutes)

	slots, err := e.store.ReadDay(ctx, day)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		return ErrDayNotInitialized
	}

	required, ok := e.freeRun(indexSlots(slots), start, n)
	if !ok {
		e.logger.Info("booking rejected on re-validation", "date", day, "time", start, "duration", req.Duration)
		return ErrSlotNoLongerAvailable
	}

	claims := make([]Slot, 0, n)
	for i, t := range required {
		duration := 0
		if i == 0 {
			duration = req.Duration
		}
		claims = append(claims, Slot{
			Date:        day,
			Time:        t,
			Patient:     strings.TrimSpace(req.Patient),
			Duration:    duration,
			PatientType: req.PatientType,
		})
	}

	if err := e.store.Reserve(ctx, day, claims); err != nil {
		if errors.Is(err, ErrSlotNoLongerAvailable) {
			e.logger.Info("booking lost race", "date", day, "time", start, "duration", req.Duration)
		} else {
			e.logger.Error("booking write failed", "date", day, "time", start, "error", err)
		}
		return err
	}

	e.logger.Info("appointment slots booked", "date", day, "time", start, "duration", req.Duration, "rows", n)
	return nil
}

// Overview lists the booked rows of date together with booked and free counts.
func (e *Engine) Overview(ctx context.Context, date string) (DayOverview, error) {
	day, err := NormalizeDate(date)
	if err != nil {
		return DayOverview{}, err
	}
	slots, err := e.store.ReadDay(ctx, day)
	if err != nil {
		return DayOverview{}, err
	}
	overview := DayOverview{Date: day, Booked: []Slot{}, Initialized: len(slots) > 0}
	for _, slot := range slots {
		if slot.Free() {
			overview.FreeCount++
			continue
		}
		overview.BookedCount++
		overview.Booked = append(overview.Booked, slot)
	}
	return overview, nil
}

// freeRun returns the n grid times starting at start when each one exists and is free.
func (e *Engine) freeRun(byTime map[string]Slot, start string, n int) ([]string, bool) {
	startMinutes, err := ParseClock(start)
	if err != nil {
		return nil, false
	}
	times := make([]string, 0, n)
	for i := 0; i < n; i++ {
		t := FormatClock(startMinutes + i*e.grid.Step)
		slot, ok := byTime[t]
		if !ok || !slot.Free() {
			return nil, false
		}
		times = append(times, t)
	}
	return times, true
}

func indexSlots(slots []Slot) map[string]Slot {
	byTime := make(map[string]Slot, len(slots))
	for _, slot := range slots {
		byTime[slot.Time] = slot
	}
	return byTime
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrNotFound):
		return "invalid"
	default:
		return "error"
	}
}
