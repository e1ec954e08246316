package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPostgresStoreWithQuerier(mock), mock
}

func TestPostgresEnsureDay(t *testing.T) {
	store, mock := newMockStore(t)
	slots := DefaultGrid().EmptyDay(testDate)
	durations := make([]int, len(slots))
	for i := range durations {
		durations[i] = 30
	}

	mock.ExpectExec("INSERT INTO schedule_slots").
		WithArgs(testDate, DefaultGrid().Times(), durations).
		WillReturnResult(pgxmock.NewResult("INSERT", 23))
	mock.ExpectExec("INSERT INTO schedule_slots").
		WithArgs(testDate, DefaultGrid().Times(), durations).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := store.EnsureDay(context.Background(), testDate, slots)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.EnsureDay(context.Background(), testDate, slots)
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReadDay(t *testing.T) {
	store, mock := newMockStore(t)
	rows := pgxmock.NewRows([]string{"date", "time", "patient", "duration", "patient_type"}).
		AddRow(testDate, "10:00", "Jane Doe", 60, PatientTypeNew).
		AddRow(testDate, "10:30", "Jane Doe", 0, PatientTypeNew).
		AddRow(testDate, "11:00", "", 0, "")
	mock.ExpectQuery("SELECT date, time, patient, duration, patient_type").
		WithArgs(testDate).
		WillReturnRows(rows)

	slots, err := store.ReadDay(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, 60, slots[0].Duration)
	assert.True(t, slots[2].Free())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReadDayError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT date, time").WithArgs(testDate).WillReturnError(errors.New("connection refused"))

	_, err := store.ReadDay(context.Background(), testDate)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReserveCommits(t *testing.T) {
	store, mock := newMockStore(t)
	claims := []Slot{
		{Time: "10:00", Patient: "Jane Doe", Duration: 60, PatientType: PatientTypeNew},
		{Time: "10:30", Patient: "Jane Doe", Duration: 0, PatientType: PatientTypeNew},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE schedule_slots").
		WithArgs(testDate, "10:00", "Jane Doe", 60, PatientTypeNew).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE schedule_slots").
		WithArgs(testDate, "10:30", "Jane Doe", 0, PatientTypeNew).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, store.Reserve(context.Background(), testDate, claims))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReserveRollsBackOnTakenRow(t *testing.T) {
	store, mock := newMockStore(t)
	claims := []Slot{
		{Time: "10:00", Patient: "Jane Doe", Duration: 60, PatientType: PatientTypeNew},
		{Time: "10:30", Patient: "Jane Doe", Duration: 0, PatientType: PatientTypeNew},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE schedule_slots").
		WithArgs(testDate, "10:00", "Jane Doe", 60, PatientTypeNew).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE schedule_slots").
		WithArgs(testDate, "10:30", "Jane Doe", 0, PatientTypeNew).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.Reserve(context.Background(), testDate, claims)
	assert.ErrorIs(t, err, ErrSlotNoLongerAvailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReserveWriteError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE schedule_slots").
		WithArgs(testDate, "10:00", "Jane", 30, PatientTypeReturning).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := store.Reserve(context.Background(), testDate, []Slot{{Time: "10:00", Patient: "Jane", Duration: 30, PatientType: PatientTypeReturning}})
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.NotErrorIs(t, err, apperr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStorePanicsOnNilPool(t *testing.T) {
	assert.Panics(t, func() { NewPostgresStore(nil) })
}
