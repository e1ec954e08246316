// Package schedule owns the per-day slot grid: lazy initialization,
// availability search and atomic multi-slot booking.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
)

// DateLayout and TimeLayout are the persisted formats of a slot's date and start time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Patient type labels stored on occupied rows.
const (
	PatientTypeNew       = "New"
	PatientTypeReturning = "Recurring"
)

// Slot is one row of a day's grid. A row with an empty Patient is free.
// The first row of a booking carries the full duration; continuation rows carry 0.
type Slot struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Patient     string `json:"patient"`
	Duration    int    `json:"duration"`
	PatientType string `json:"patient_type"`
}

// Free reports whether the row is unoccupied.
func (s Slot) Free() bool {
	return strings.TrimSpace(s.Patient) == ""
}

// Grid describes the opening window. Open and Close are minutes after midnight,
// both inclusive as start times.
type Grid struct {
	Open  int
	Close int
	Step  int
}

// DefaultGrid is 10:00 to 21:00 in 30-minute steps.
func DefaultGrid() Grid {
	return Grid{Open: 10 * 60, Close: 21 * 60, Step: 30}
}

// NewGrid builds a grid from HH:MM bounds and a step in minutes.
func NewGrid(openAt, closeAt string, stepMinutes int) (Grid, error) {
	o, err := ParseClock(openAt)
	if err != nil {
		return Grid{}, err
	}
	c, err := ParseClock(closeAt)
	if err != nil {
		return Grid{}, err
	}
	if stepMinutes <= 0 {
		return Grid{}, apperr.Validation("schedule: grid", "step must be positive")
	}
	if o >= c {
		return Grid{}, apperr.Validation("schedule: grid", "open must be before close")
	}
	return Grid{Open: o, Close: c, Step: stepMinutes}, nil
}

// Times lists every start time of the grid in ascending order.
func (g Grid) Times() []string {
	var out []string
	for m := g.Open; m <= g.Close; m += g.Step {
		out = append(out, FormatClock(m))
	}
	return out
}

// Span returns how many consecutive rows a booking of the given duration occupies.
func (g Grid) Span(durationMinutes int) (int, error) {
	if durationMinutes <= 0 || durationMinutes%g.Step != 0 {
		return 0, fmt.Errorf("%w: %d minutes is not a positive multiple of %d", ErrInvalidDuration, durationMinutes, g.Step)
	}
	return durationMinutes / g.Step, nil
}

// EmptyDay generates the free rows for a date, each with a one-step duration.
func (g Grid) EmptyDay(date string) []Slot {
	times := g.Times()
	slots := make([]Slot, 0, len(times))
	for _, t := range times {
		slots = append(slots, Slot{Date: date, Time: t, Duration: g.Step})
	}
	return slots
}

// ParseClock converts HH:MM into minutes after midnight.
func ParseClock(value string) (int, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStartTime, value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock converts minutes after midnight into HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeDate validates an ISO date and returns its canonical form.
func NormalizeDate(date string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t.Format(DateLayout), nil
}
