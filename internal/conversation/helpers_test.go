package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medical-appointment-scheduler/internal/appointments"
	"github.com/wolfman30/medical-appointment-scheduler/internal/notify"
	"github.com/wolfman30/medical-appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/medical-appointment-scheduler/internal/patients"
	"github.com/wolfman30/medical-appointment-scheduler/internal/schedule"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

const (
	testToday        = "2026-10-14"
	newPatientInput  = "Name: Jane Doe, DOB: 1990-01-15, Email: jane@x.com, Phone: +15551234567"
	insuranceInput   = "Insurance: Blue Cross, Member ID: 123, Group Number: G1"
	sessionIDForTest = "session-1"
)

var testNow = time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

// countingScheduler forwards to a real engine and counts calls.
type countingScheduler struct {
	next Scheduler

	mu         sync.Mutex
	ensure     int
	available  int
	book       int
	beforeBook func(req schedule.BookingRequest)
}

func (c *countingScheduler) EnsureDay(ctx context.Context, date string) error {
	c.mu.Lock()
	c.ensure++
	c.mu.Unlock()
	return c.next.EnsureDay(ctx, date)
}

func (c *countingScheduler) AvailableStartTimes(ctx context.Context, date string, duration int) ([]string, error) {
	c.mu.Lock()
	c.available++
	c.mu.Unlock()
	return c.next.AvailableStartTimes(ctx, date, duration)
}

func (c *countingScheduler) Book(ctx context.Context, req schedule.BookingRequest) error {
	c.mu.Lock()
	c.book++
	hook := c.beforeBook
	c.mu.Unlock()
	if hook != nil {
		hook(req)
	}
	return c.next.Book(ctx, req)
}

func (c *countingScheduler) calls() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensure, c.available, c.book
}

// stubScheduler returns canned results.
type stubScheduler struct {
	times     []string
	ensureErr error
	availErr  error
	bookErr   error
}

func (s *stubScheduler) EnsureDay(context.Context, string) error { return s.ensureErr }

func (s *stubScheduler) AvailableStartTimes(context.Context, string, int) ([]string, error) {
	return s.times, s.availErr
}

func (s *stubScheduler) Book(context.Context, schedule.BookingRequest) error { return s.bookErr }

// flakyRecords fails Append while err is set.
type flakyRecords struct {
	appointments.Store
	err     error
	appends int
}

func (f *flakyRecords) Append(ctx context.Context, r appointments.Record) (appointments.Record, error) {
	f.appends++
	if f.err != nil {
		return appointments.Record{}, f.err
	}
	return f.Store.Append(ctx, r)
}

type failingDirectory struct {
	patients.Directory
	lookupErr error
	upsertErr error
}

func (f *failingDirectory) Lookup(ctx context.Context, name, dob string) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.Directory.Lookup(ctx, name, dob)
}

func (f *failingDirectory) UpsertIfAbsent(ctx context.Context, p patients.Patient) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	return f.Directory.UpsertIfAbsent(ctx, p)
}

type fixture struct {
	driver    *Driver
	engine    *schedule.Engine
	scheduler *countingScheduler
	directory *patients.MemoryDirectory
	records   *appointments.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.Default()
	m := metrics.NewSchedulingMetrics(prometheus.NewRegistry())

	engine := schedule.NewEngine(schedule.NewMemoryStore(), schedule.DefaultGrid(), logger, schedule.WithMetrics(m))
	scheduler := &countingScheduler{next: engine}
	directory := patients.NewMemoryDirectory()
	records := appointments.NewMemoryStore()
	notifier := notify.NewService(notify.NewStubEmailSender(logger), notify.NewStubSMSSender(logger),
		notify.Config{EmailEnabled: true, SMSEnabled: true}, logger, m)

	driver := NewDriver(scheduler, directory, records, notifier, logger,
		WithClock(testClock), WithDriverMetrics(m))
	return &fixture{driver: driver, engine: engine, scheduler: scheduler, directory: directory, records: records}
}

// play runs each input as its own turn and returns the final state and the
// messages of the last turn.
func play(t *testing.T, d *Driver, s State, inputs ...string) (State, []string) {
	t.Helper()
	var msgs []string
	for _, in := range inputs {
		s, msgs = d.Turn(context.Background(), s, in)
		require.NotEmpty(t, msgs, "turn %q produced no message", in)
	}
	return s, msgs
}

var errBoom = errors.New("boom")
