package schedule

import (
	"context"
	"sort"
	"sync"
)

// Store persists slot rows keyed by (date, time).
type Store interface {
	// EnsureDay inserts any missing rows for date. Existing rows are left untouched.
	// It reports whether any row was created.
	EnsureDay(ctx context.Context, date string, slots []Slot) (bool, error)
	// ReadDay returns the rows for date sorted by time. A date with no rows yields an empty slice.
	ReadDay(ctx context.Context, date string) ([]Slot, error)
	// Reserve writes every claim in one atomic step. It fails with ErrSlotNoLongerAvailable,
	// leaving all rows unchanged, when any claimed row is missing or not free.
	Reserve(ctx context.Context, date string, claims []Slot) error
}

// MemoryStore keeps rows in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	days map[string]map[string]Slot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{days: make(map[string]map[string]Slot)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) EnsureDay(_ context.Context, date string, slots []Slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.days[date]
	if !ok {
		day = make(map[string]Slot, len(slots))
		s.days[date] = day
	}
	created := false
	for _, slot := range slots {
		if _, exists := day[slot.Time]; exists {
			continue
		}
		slot.Date = date
		day[slot.Time] = slot
		created = true
	}
	return created, nil
}

func (s *MemoryStore) ReadDay(_ context.Context, date string) ([]Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.days[date]
	out := make([]Slot, 0, len(day))
	for _, slot := range day {
		out = append(out, slot)
	}
	sortSlots(out)
	return out, nil
}

func (s *MemoryStore) Reserve(_ context.Context, date string, claims []Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.days[date]
	for _, claim := range claims {
		current, ok := day[claim.Time]
		if !ok || !current.Free() {
			return ErrSlotNoLongerAvailable
		}
	}
	for _, claim := range claims {
		claim.Date = date
		day[claim.Time] = claim
	}
	return nil
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
}
