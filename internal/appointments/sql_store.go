package appointments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
)

// SQLStore writes records to the appointment_records table through database/sql.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	if db == nil {
		panic("appointments: sql db required")
	}
	return &SQLStore{db: db, now: time.Now}
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) Append(ctx context.Context, r Record) (Record, error) {
	r = prepare(r, s.now())
	query := `
		INSERT INTO appointment_records (
			id, name, dob, email, phone, date, time, duration, patient_type,
			doctor, location, insurance_carrier, member_id, group_number,
			confirmed, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.DOB, r.Email, r.Phone, r.Date, r.Time, r.Duration, r.PatientType,
		r.Doctor, r.Location, r.InsuranceCarrier, r.MemberID, r.GroupNumber,
		r.Confirmed, r.Notes, r.CreatedAt,
	)
	if err != nil {
		return Record{}, apperr.Persistence("appointments: append", err)
	}
	return r, nil
}

func (s *SQLStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := `
		SELECT id, name, dob, email, phone, date, time, duration, patient_type,
			   doctor, location, insurance_carrier, member_id, group_number,
			   confirmed, notes, created_at
		FROM appointment_records
	`
	var args []any
	if filter.Date != "" {
		query += " WHERE date = $1"
		args = append(args, filter.Date)
	}
	query += " ORDER BY date, time, created_at"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Persistence("appointments: list", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.Name, &r.DOB, &r.Email, &r.Phone, &r.Date, &r.Time, &r.Duration, &r.PatientType,
			&r.Doctor, &r.Location, &r.InsuranceCarrier, &r.MemberID, &r.GroupNumber,
			&r.Confirmed, &r.Notes, &r.CreatedAt,
		); err != nil {
			return nil, apperr.Persistence("appointments: scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("appointments: list", err)
	}
	return out, nil
}
