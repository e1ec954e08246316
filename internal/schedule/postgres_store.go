package schedule

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
)

type pgxQuerier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps slot rows in the schedule_slots table.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("schedule: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db pgxQuerier) *PostgresStore {
	if db == nil {
		panic("schedule: querier required")
	}
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) EnsureDay(ctx context.Context, date string, slots []Slot) (bool, error) {
	times := make([]string, 0, len(slots))
	durations := make([]int, 0, len(slots))
	for _, slot := range slots {
		times = append(times, slot.Time)
		durations = append(durations, slot.Duration)
	}
	query := `
		INSERT INTO schedule_slots (date, time, patient, duration, patient_type)
		SELECT $1, t, '', d, '' FROM unnest($2::text[], $3::int[]) AS u(t, d)
		ON CONFLICT (date, time) DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, date, times, durations)
	if err != nil {
		return false, apperr.Persistence("schedule: ensure day", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (s *PostgresStore) ReadDay(ctx context.Context, date string) ([]Slot, error) {
	query := `
		SELECT date, time, patient, duration, patient_type
		FROM schedule_slots
		WHERE date = $1
		ORDER BY time
	`
	rows, err := s.db.Query(ctx, query, date)
	if err != nil {
		return nil, apperr.Persistence("schedule: read day", err)
	}
	defer rows.Close()

	slots := []Slot{}
	for rows.Next() {
		var slot Slot
		if err := rows.Scan(&slot.Date, &slot.Time, &slot.Patient, &slot.Duration, &slot.PatientType); err != nil {
			return nil, apperr.Persistence("schedule: scan slot", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("schedule: read day", err)
	}
	return slots, nil
}

// Reserve claims every row inside one transaction. Each UPDATE only matches a
// free row, so a concurrent winner leaves zero affected rows and the whole
// transaction rolls back.
func (s *PostgresStore) Reserve(ctx context.Context, date string, claims []Slot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return apperr.Persistence("schedule: begin reserve", err)
	}

	query := `
		UPDATE schedule_slots
		SET patient = $3, duration = $4, patient_type = $5
		WHERE date = $1 AND time = $2 AND patient = ''
	`
	for _, claim := range claims {
		ct, err := tx.Exec(ctx, query, date, claim.Time, claim.Patient, claim.Duration, claim.PatientType)
		if err != nil {
			_ = tx.Rollback(ctx)
			return apperr.Persistence(fmt.Sprintf("schedule: reserve %s %s", date, claim.Time), err)
		}
		if ct.RowsAffected() != 1 {
			_ = tx.Rollback(ctx)
			return ErrSlotNoLongerAvailable
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Persistence("schedule: commit reserve", err)
	}
	return nil
}
