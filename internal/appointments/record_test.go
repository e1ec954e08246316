package appointments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(date, at string) Record {
	return Record{
		Name: "Jane Doe", DOB: "1990-01-15", Email: "jane@example.com", Phone: "555-123-4567",
		Date: date, Time: at, Duration: 60, PatientType: "New",
		Doctor: "Dr. Lee", Location: "Downtown Office",
		InsuranceCarrier: "Aetna", MemberID: "ABC123", GroupNumber: "G-77",
	}
}

func TestMemoryStoreAppendFillsGeneratedFields(t *testing.T) {
	store := NewMemoryStore()
	rec, err := store.Append(context.Background(), sampleRecord("2026-10-14", "10:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, ConfirmedYes, rec.Confirmed)
	assert.Empty(t, rec.Notes)
}

func TestMemoryStoreListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, r := range []Record{
		sampleRecord("2026-10-15", "12:00"),
		sampleRecord("2026-10-14", "15:00"),
		sampleRecord("2026-10-14", "10:00"),
	} {
		_, err := store.Append(ctx, r)
		require.NoError(t, err)
	}

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "10:00", all[0].Time)
	assert.Equal(t, "2026-10-15", all[2].Date)

	day, err := store.List(ctx, Filter{Date: "2026-10-14", Limit: 1})
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, "10:00", day[0].Time)
}
