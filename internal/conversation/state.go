// Package conversation drives the booking dialogue: one utterance in, the next prompt out.
package conversation

import (
	"time"

	"github.com/wolfman30/medical-appointment-scheduler/internal/intake"
)

// Phase names a step of the booking dialogue.
type Phase string

const (
	PhaseGreet     Phase = "greet"
	PhaseDoctor    Phase = "doctor"
	PhaseDate      Phase = "date"
	PhaseSlots     Phase = "slots"
	PhaseBook      Phase = "book"
	PhaseInsurance Phase = "insurance"
	PhaseFinalize  Phase = "finalize"
	PhaseDone      Phase = "done"
)

// consumesInput reports whether the phase reads the user's utterance.
// The others run on what earlier phases collected and leave the utterance
// for the next phase.
func (p Phase) consumesInput() bool {
	switch p {
	case PhaseDoctor, PhaseSlots, PhaseFinalize:
		return false
	default:
		return true
	}
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseGreet, PhaseDoctor, PhaseDate, PhaseSlots, PhaseBook, PhaseInsurance, PhaseFinalize, PhaseDone:
		return true
	}
	return false
}

// Roles used in transcript entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one line of the session transcript.
type Entry struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Reminder is a scheduled nudge relative to the appointment start.
type Reminder struct {
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// State is everything a session has collected so far. Handlers receive it by
// value and return a new one; slices are cloned before they are modified.
type State struct {
	SessionID string `json:"session_id"`
	Phase     Phase  `json:"phase"`

	Patient     intake.PatientInfo `json:"patient"`
	Existing    bool               `json:"existing"`
	PatientType string             `json:"patient_type"`
	Duration    int                `json:"duration"`
	Doctor      string             `json:"doctor"`
	Location    string             `json:"location"`

	Date           string   `json:"date"`
	Time           string   `json:"time"`
	AvailableTimes []string `json:"available_times,omitempty"`

	Insurance     intake.InsuranceInfo `json:"insurance"`
	Completed     bool                 `json:"completed"`
	Reminders     []Reminder           `json:"reminders,omitempty"`
	Notifications []string             `json:"notifications,omitempty"`

	Transcript []Entry   `json:"transcript"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewState returns a session positioned at greet.
func NewState(sessionID string, now time.Time) State {
	return State{
		SessionID: sessionID,
		Phase:     PhaseGreet,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s State) clone() State {
	s.AvailableTimes = append([]string(nil), s.AvailableTimes...)
	s.Reminders = append([]Reminder(nil), s.Reminders...)
	s.Notifications = append([]string(nil), s.Notifications...)
	s.Transcript = append([]Entry(nil), s.Transcript...)
	return s
}

func (s State) record(role, text string, at time.Time) State {
	s.Transcript = append(s.Transcript, Entry{Role: role, Text: text, Timestamp: at})
	return s
}

// Transition is a handler's result. An empty Message means the next phase
// runs in the same turn.
type Transition struct {
	State   State
	Message string
}

func moveTo(s State, next Phase, msg string) Transition {
	s.Phase = next
	return Transition{State: s, Message: msg}
}
