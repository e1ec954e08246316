package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
	"github.com/wolfman30/medical-appointment-scheduler/internal/observability/metrics"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

const testDate = "2026-10-15"

func newTestEngine(t *testing.T) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	engine := NewEngine(store, DefaultGrid(), logging.Default(),
		WithMetrics(metrics.NewSchedulingMetrics(prometheus.NewRegistry())))
	require.NoError(t, engine.EnsureDay(context.Background(), testDate))
	return engine, store
}

func TestEnsureDayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	require.NoError(t, engine.Book(ctx, BookingRequest{Date: testDate, Start: "10:00", Patient: "Jane Doe", Duration: 30, PatientType: PatientTypeNew}))
	require.NoError(t, engine.EnsureDay(ctx, testDate))
	require.NoError(t, engine.EnsureDay(ctx, testDate))

	slots, err := store.ReadDay(ctx, testDate)
	require.NoError(t, err)
	assert.Len(t, slots, 23)
	assert.Equal(t, "Jane Doe", slots[0].Patient, "re-initialization must not clear bookings")
	for _, slot := range slots[1:] {
		assert.True(t, slot.Free())
		assert.Equal(t, DefaultGrid().Step, slot.Duration, "free rows default to one step")
	}
}

func TestAvailableStartTimesEmptyDay(t *testing.T) {
	engine := NewEngine(NewMemoryStore(), DefaultGrid(), nil)
	starts, err := engine.AvailableStartTimes(context.Background(), "2026-12-01", 60)
	require.NoError(t, err)
	assert.Empty(t, starts)
}

func TestAvailableStartTimesFreshDay(t *testing.T) {
	engine, _ := newTestEngine(t)

	starts, err := engine.AvailableStartTimes(context.Background(), testDate, 30)
	require.NoError(t, err)
	assert.Len(t, starts, 23)

	starts, err = engine.AvailableStartTimes(context.Background(), testDate, 60)
	require.NoError(t, err)
	assert.Len(t, starts, 22, "21:00 has no following row for a 60-minute booking")
	assert.Equal(t, "10:00", starts[0])
	assert.Equal(t, "20:30", starts[len(starts)-1])
}

func TestAvailableStartTimesRejectsBadDuration(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.AvailableStartTimes(context.Background(), testDate, 45)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAvailabilityWithGaps(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	// Occupy 10:30 and 11:30 so only 10:00 and 11:00 are isolated free rows before noon.
	require.NoError(t, engine.Book(ctx, BookingRequest{Date: testDate, Start: "10:30", Patient: "A", Duration: 30, PatientType: PatientTypeReturning}))
	require.NoError(t, engine.Book(ctx, BookingRequest{Date: testDate, Start: "11:30", Patient: "B", Duration: 30, PatientType: PatientTypeReturning}))

	starts, err := engine.AvailableStartTimes(ctx, testDate, 60)
	require.NoError(t, err)
	assert.NotContains(t, starts, "10:00")
	assert.NotContains(t, starts, "11:00")
	assert.Contains(t, starts, "12:00")

	starts, err = engine.AvailableStartTimes(ctx, testDate, 30)
	require.NoError(t, err)
	assert.Contains(t, starts, "10:00")
	assert.Contains(t, starts, "11:00")
}

func TestBookWritesContinuationRows(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	require.NoError(t, engine.Book(ctx, BookingRequest{Date: testDate, Start: "14:00", Patient: "Jane Doe", Duration: 90, PatientType: PatientTypeNew}))

	slots, err := store.ReadDay(ctx, testDate)
	require.NoError(t, err)
	byTime := indexSlots(slots)
	assert.Equal(t, 90, byTime["14:00"].Duration)
	assert.Equal(t, 0, byTime["14:30"].Duration)
	assert.Equal(t, 0, byTime["15:00"].Duration)
	for _, tm := range []string{"14:00", "14:30", "15:00"} {
		assert.Equal(t, "Jane Doe", byTime[tm].Patient)
		assert.Equal(t, PatientTypeNew, byTime[tm].PatientType)
	}
	assert.True(t, byTime["15:30"].Free())
	assert.True(t, byTime["13:30"].Free())
}

func TestBookedRowsNeverOfferedAgain(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.Book(ctx, BookingRequest{Date: testDate, Start: "12:00", Patient: "Jane", Duration: 60, PatientType: PatientTypeNew}))

	for _, duration := range []int{30, 60, 90} {
		starts, err := engine.AvailableStartTimes(ctx, testDate, duration)
		require.NoError(t, err)
		assert.NotContains(t, starts, "12:00")
		assert.NotContains(t, starts, "12:30")
	}

	starts, err := engine.AvailableStartTimes(ctx, testDate, 30)
	require.NoError(t, err)
	assert.Len(t, starts, 21, "every untouched row stays available")
}

func TestBookConflictLeavesDayUnchanged(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)
	require.NoError(t, engine.Book(ctx, BookingRequest{Date: testDate, Start: "10:30", Patient: "First", Duration: 30, PatientType: PatientTypeReturning}))

	err := engine.Book(ctx, BookingRequest{Date: testDate, Start: "10:00", Patient: "Second", Duration: 60, PatientType: PatientTypeNew})
	require.ErrorIs(t, err, ErrSlotNoLongerAvailable)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	slots, err := store.ReadDay(ctx, testDate)
	require.NoError(t, err)
	byTime := indexSlots(slots)
	assert.True(t, byTime["10:00"].Free(), "partial booking must not be written")
	assert.Equal(t, "First", byTime["10:30"].Patient)
}

func TestBookRunningPastClose(t *testing.T) {
	engine, _ := newTestEngine(t)
	err := engine.Book(context.Background(), BookingRequest{Date: testDate, Start: "21:00", Patient: "Late", Duration: 60, PatientType: PatientTypeNew})
	assert.ErrorIs(t, err, ErrSlotNoLongerAvailable)
}

func TestBookDayNotInitialized(t *testing.T) {
	engine := NewEngine(NewMemoryStore(), DefaultGrid(), nil)
	err := engine.Book(context.Background(), BookingRequest{Date: "2026-11-01", Start: "10:00", Patient: "Jane", Duration: 30})
	require.ErrorIs(t, err, ErrDayNotInitialized)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBookValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	tests := []struct {
		name string
		req  BookingRequest
	}{
		{"bad date", BookingRequest{Date: "15/10/2026", Start: "10:00", Patient: "A", Duration: 30}},
		{"no patient", BookingRequest{Date: testDate, Start: "10:00", Patient: " ", Duration: 30}},
		{"bad duration", BookingRequest{Date: testDate, Start: "10:00", Patient: "A", Duration: 20}},
		{"bad start", BookingRequest{Date: testDate, Start: "noon", Patient: "A", Duration: 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, engine.Book(ctx, tt.req), apperr.ErrValidation)
		})
	}
}

func TestConcurrentOverlappingBookings(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t)

	requests := []BookingRequest{
		{Date: testDate, Start: "16:00", Patient: "Alpha", Duration: 60, PatientType: PatientTypeNew},
		{Date: testDate, Start: "16:30", Patient: "Bravo", Duration: 60, PatientType: PatientTypeNew},
		{Date: testDate, Start: "16:00", Patient: "Charlie", Duration: 30, PatientType: PatientTypeReturning},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(requests))
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req BookingRequest) {
			defer wg.Done()
			errs[i] = engine.Book(ctx, req)
		}(i, req)
	}
	wg.Wait()

	// Alpha overlaps both others. Bravo and Charlie are disjoint.
	succeeded := map[string]bool{}
	for i, err := range errs {
		if err == nil {
			succeeded[requests[i].Patient] = true
			continue
		}
		assert.True(t, errors.Is(err, ErrSlotNoLongerAvailable), "unexpected error %v", err)
	}
	if succeeded["Alpha"] {
		assert.Len(t, succeeded, 1)
	} else {
		assert.True(t, succeeded["Bravo"] || succeeded["Charlie"])
	}

	slots, err := store.ReadDay(ctx, testDate)
	require.NoError(t, err)
	byTime := indexSlots(slots)
	for patient := range succeeded {
		for _, req := range requests {
			if req.Patient != patient {
				continue
			}
			n := req.Duration / 30
			start, _ := ParseClock(req.Start)
			for i := 0; i < n; i++ {
				assert.Equal(t, patient, byTime[FormatClock(start+i*30)].Patient)
			}
		}
	}
	for _, slot := range slots {
		if !slot.Free() {
			assert.True(t, succeeded[slot.Patient], "row %s written by a losing booking", slot.Time)
		}
	}
}

func TestConcurrentSameSlotExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- engine.Book(ctx, BookingRequest{Date: testDate, Start: "18:00", Patient: string(rune('A' + i)), Duration: 60, PatientType: PatientTypeNew})
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.Book(ctx, BookingRequest{Date: testDate, Start: "10:00", Patient: "Jane", Duration: 60, PatientType: PatientTypeNew}))

	overview, err := engine.Overview(ctx, testDate)
	require.NoError(t, err)
	assert.True(t, overview.Initialized)
	assert.Equal(t, 2, overview.BookedCount)
	assert.Equal(t, 21, overview.FreeCount)
	require.Len(t, overview.Booked, 2)
	assert.Equal(t, 60, overview.Booked[0].Duration)

	empty, err := engine.Overview(ctx, "2027-01-01")
	require.NoError(t, err)
	assert.False(t, empty.Initialized)
	assert.Empty(t, empty.Booked)
}

func TestPrewarm(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	engine := NewEngine(store, DefaultGrid(), nil)
	from, err := parseTestDate("2026-10-14")
	require.NoError(t, err)

	require.NoError(t, engine.Prewarm(ctx, from, 7))
	for _, date := range []string{"2026-10-14", "2026-10-17", "2026-10-20"} {
		slots, err := store.ReadDay(ctx, date)
		require.NoError(t, err)
		assert.Len(t, slots, 23, date)
	}
	slots, err := store.ReadDay(ctx, "2026-10-21")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

type failingStore struct{ MemoryStore }

func (*failingStore) ReadDay(context.Context, string) ([]Slot, error) {
	return nil, apperr.Persistence("schedule: read day", errors.New("disk gone"))
}

func TestPersistenceFailureSurfaces(t *testing.T) {
	engine := NewEngine(&failingStore{}, DefaultGrid(), nil)
	_, err := engine.AvailableStartTimes(context.Background(), testDate, 30)
	assert.ErrorIs(t, err, apperr.ErrPersistence)

	err = engine.Book(context.Background(), BookingRequest{Date: testDate, Start: "10:00", Patient: "A", Duration: 30})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}
