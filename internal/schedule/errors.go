package schedule

import (
	"fmt"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
)

var (
	// ErrSlotNoLongerAvailable is returned when a required row was taken or is missing at booking time.
	ErrSlotNoLongerAvailable = fmt.Errorf("schedule: slot no longer available: %w", apperr.ErrConflict)
	// ErrDayNotInitialized is returned when booking against a date with no rows.
	ErrDayNotInitialized = fmt.Errorf("schedule: day not initialized: %w", apperr.ErrNotFound)
	// ErrInvalidDuration is returned for durations that are not a positive multiple of the step.
	ErrInvalidDuration = fmt.Errorf("schedule: invalid duration: %w", apperr.ErrValidation)
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = fmt.Errorf("schedule: invalid date: %w", apperr.ErrValidation)
	// ErrInvalidStartTime is returned for start times not in HH:MM form or off the grid.
	ErrInvalidStartTime = fmt.Errorf("schedule: invalid start time: %w", apperr.ErrValidation)
)
