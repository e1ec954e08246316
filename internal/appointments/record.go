// Package appointments stores the append-only log of confirmed appointments.
package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one confirmed appointment.
type Record struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	DOB              string    `json:"dob"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Date             string    `json:"date"`
	Time             string    `json:"time"`
	Duration         int       `json:"duration"`
	PatientType      string    `json:"patient_type"`
	Doctor           string    `json:"doctor"`
	Location         string    `json:"location"`
	InsuranceCarrier string    `json:"insurance_carrier"`
	MemberID         string    `json:"member_id"`
	GroupNumber      string    `json:"group_number"`
	Confirmed        string    `json:"confirmed"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
}

// ConfirmedYes is the value of Record.Confirmed for finalized bookings.
const ConfirmedYes = "Yes"

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Date  string
	Limit int
}

// Store appends and lists records. Records are never updated or deleted.
type Store interface {
	Append(ctx context.Context, r Record) (Record, error)
	List(ctx context.Context, filter Filter) ([]Record, error)
}

// prepare fills the generated fields of a record.
func prepare(r Record, now time.Time) Record {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
	if r.Confirmed == "" {
		r.Confirmed = ConfirmedYes
	}
	return r
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Append(_ context.Context, r Record) (Record, error) {
	r = prepare(r, s.now())
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
	return r, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Record{}
	for _, r := range s.records {
		if filter.Date != "" && r.Date != filter.Date {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
