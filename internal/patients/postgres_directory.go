package patients

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDirectory stores patients in the patients table.
type PostgresDirectory struct {
	db rowQuerier
}

// NewPostgresDirectory creates a directory backed by pool.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresDirectory{db: pool}
}

func newPostgresDirectoryWithQuerier(db rowQuerier) *PostgresDirectory {
	if db == nil {
		panic("patients: querier required")
	}
	return &PostgresDirectory{db: db}
}

var _ Directory = (*PostgresDirectory)(nil)

func (d *PostgresDirectory) Lookup(ctx context.Context, name, dob string) (bool, error) {
	key := KeyFor(name, dob)
	var exists int
	err := d.db.QueryRow(ctx, `SELECT 1 FROM patients WHERE name_key = $1 AND dob = $2`, key.Name, key.DOB).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, apperr.Persistence("patients: lookup", err)
	}
	return true, nil
}

func (d *PostgresDirectory) FetchContact(ctx context.Context, name, dob string) (Contact, error) {
	key := KeyFor(name, dob)
	var c Contact
	err := d.db.QueryRow(ctx, `SELECT email, phone FROM patients WHERE name_key = $1 AND dob = $2`, key.Name, key.DOB).
		Scan(&c.Email, &c.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, nil
		}
		return Contact{}, apperr.Persistence("patients: fetch contact", err)
	}
	return c, nil
}

func (d *PostgresDirectory) UpsertIfAbsent(ctx context.Context, p Patient) (bool, error) {
	key := KeyFor(p.Name, p.DOB)
	query := `
		INSERT INTO patients (name_key, dob, name, email, phone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name_key, dob) DO NOTHING
	`
	ct, err := d.db.Exec(ctx, query, key.Name, key.DOB, strings.TrimSpace(p.Name), p.Email, p.Phone)
	if err != nil {
		return false, apperr.Persistence("patients: upsert", err)
	}
	return ct.RowsAffected() > 0, nil
}
