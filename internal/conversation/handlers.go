package conversation

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
	"github.com/wolfman30/medical-appointment-scheduler/internal/appointments"
	"github.com/wolfman30/medical-appointment-scheduler/internal/intake"
	"github.com/wolfman30/medical-appointment-scheduler/internal/notify"
	"github.com/wolfman30/medical-appointment-scheduler/internal/patients"
	"github.com/wolfman30/medical-appointment-scheduler/internal/schedule"
)

var reminderOffsets = []struct {
	label  string
	before time.Duration
}{
	{"⏰ Reminder: 24h before", 24 * time.Hour},
	{"⏰ Reminder: 3h before", 3 * time.Hour},
	{"⏰ Reminder: 30min before", 30 * time.Minute},
}

func (d *Driver) greet(ctx context.Context, s State, input string) Transition {
	if input == "" {
		return moveTo(s, PhaseGreet, msgGreetEmpty)
	}
	info := intake.ParsePatient(input)
	if !info.HasIdentity() {
		return moveTo(s, PhaseGreet, msgMissingIdentity)
	}

	existing, err := d.directory.Lookup(ctx, info.Name, info.DOB)
	if err != nil {
		d.logger.Error("conversation: patient lookup failed", "session_id", s.SessionID, "error", err)
		return moveTo(s, PhaseGreet, msgLookupFailed)
	}

	var msg string
	if existing {
		contact, err := d.directory.FetchContact(ctx, info.Name, info.DOB)
		if err != nil {
			d.logger.Error("conversation: fetch contact failed", "session_id", s.SessionID, "error", err)
			return moveTo(s, PhaseGreet, msgLookupFailed)
		}
		if contact.Email != "" {
			info.Email = contact.Email
		}
		if contact.Phone != "" {
			info.Phone = contact.Phone
		}
		s.PatientType = schedule.PatientTypeReturning
		s.Duration = d.durations.Returning
		msg = welcomeBackMessage(info.Name, s.Duration)
	} else {
		if !info.HasContact() {
			return moveTo(s, PhaseGreet, msgNewPatientContact)
		}
		s.PatientType = schedule.PatientTypeNew
		s.Duration = d.durations.New
		msg = welcomeNewMessage(info.Name, s.Duration)
	}

	s.Patient = info
	s.Existing = existing
	return moveTo(s, PhaseDoctor, msg)
}

func (d *Driver) doctor(_ context.Context, s State, _ string) Transition {
	if !s.Patient.HasIdentity() {
		return moveTo(s, PhaseGreet, msgMissingIdentity)
	}
	s.Doctor, s.Location = d.assigner.Assign(s.Patient.Name, s.Patient.DOB)
	return moveTo(s, PhaseDate, assignmentMessage(s.Doctor, s.Location, s.Duration))
}

func (d *Driver) date(_ context.Context, s State, input string) Transition {
	day, err := intake.ParseDate(input, d.now())
	switch {
	case errors.Is(err, intake.ErrPastDate):
		return moveTo(s, PhaseDate, msgPastDate)
	case err != nil:
		return moveTo(s, PhaseDate, msgInvalidDate)
	}
	s.Date = day.Format(intake.DateLayout)
	s.AvailableTimes = nil
	return moveTo(s, PhaseSlots, "")
}

func (d *Driver) slots(ctx context.Context, s State, _ string) Transition {
	if s.Date == "" {
		return moveTo(s, PhaseDate, msgInvalidDate)
	}
	times, err := d.availability(ctx, s)
	if err != nil {
		d.logger.Error("conversation: availability failed", "session_id", s.SessionID, "date", s.Date, "error", err)
		return moveTo(s, PhaseDate, msgScheduleFailed)
	}
	if len(times) == 0 {
		return moveTo(s, PhaseDate, noSlotsMessage(s.Duration))
	}
	s.AvailableTimes = times
	return moveTo(s, PhaseBook, slotsMessage(s.Date, s.Duration, times))
}

func (d *Driver) availability(ctx context.Context, s State) ([]string, error) {
	if err := d.scheduler.EnsureDay(ctx, s.Date); err != nil {
		return nil, err
	}
	return d.scheduler.AvailableStartTimes(ctx, s.Date, s.Duration)
}

// book re-reads availability instead of trusting the list shown earlier.
func (d *Driver) book(ctx context.Context, s State, input string) Transition {
	times, err := d.scheduler.AvailableStartTimes(ctx, s.Date, s.Duration)
	if err != nil {
		d.logger.Error("conversation: availability failed", "session_id", s.SessionID, "date", s.Date, "error", err)
		return moveTo(s, PhaseBook, msgBookError)
	}
	s.AvailableTimes = times
	if len(times) == 0 {
		return moveTo(s, PhaseDate, noSlotsMessage(s.Duration))
	}

	start, err := intake.ParseSlotTime(input)
	if err != nil || !slices.Contains(times, start) {
		return moveTo(s, PhaseBook, unavailableTimeMessage(times))
	}

	err = d.scheduler.Book(ctx, schedule.BookingRequest{
		Date:        s.Date,
		Start:       start,
		Patient:     s.Patient.Name,
		Duration:    s.Duration,
		PatientType: s.PatientType,
	})
	switch {
	case errors.Is(err, apperr.ErrConflict):
		d.logger.Info("conversation: slot taken before booking", "session_id", s.SessionID, "date", s.Date, "time", start)
		return moveTo(s, PhaseBook, msgBookFailed)
	case err != nil:
		d.logger.Error("conversation: booking failed", "session_id", s.SessionID, "date", s.Date, "time", start, "error", err)
		return moveTo(s, PhaseBook, msgBookError)
	}

	s.Time = start
	s.AvailableTimes = nil
	return moveTo(s, PhaseInsurance, bookedMessage(s.Date, start, s.Duration))
}

func (d *Driver) insurance(_ context.Context, s State, input string) Transition {
	info := intake.ParseInsurance(input)
	if !info.Complete() {
		return moveTo(s, PhaseInsurance, msgMissingInsurance)
	}
	s.Insurance = info
	return moveTo(s, PhaseFinalize, "")
}

// finalize persists the patient and the record, then notifies. The slot
// stays booked when persistence fails here.
func (d *Driver) finalize(ctx context.Context, s State, _ string) Transition {
	if !s.Existing {
		_, err := d.directory.UpsertIfAbsent(ctx, patients.Patient{
			Name:  s.Patient.Name,
			DOB:   s.Patient.DOB,
			Email: s.Patient.Email,
			Phone: s.Patient.Phone,
		})
		if err != nil {
			d.logger.Error("conversation: save patient failed", "session_id", s.SessionID, "error", err)
			return moveTo(s, PhaseFinalize, msgSavePatientFailed)
		}
	}

	_, err := d.records.Append(ctx, appointments.Record{
		Name:             s.Patient.Name,
		DOB:              s.Patient.DOB,
		Email:            s.Patient.Email,
		Phone:            s.Patient.Phone,
		Date:             s.Date,
		Time:             s.Time,
		Duration:         s.Duration,
		PatientType:      s.PatientType,
		Doctor:           s.Doctor,
		Location:         s.Location,
		InsuranceCarrier: s.Insurance.Carrier,
		MemberID:         s.Insurance.MemberID,
		GroupNumber:      s.Insurance.GroupNumber,
		Confirmed:        appointments.ConfirmedYes,
	})
	if err != nil {
		d.logger.Error("conversation: save appointment failed", "session_id", s.SessionID, "error", err)
		return moveTo(s, PhaseFinalize, msgFinalizeFailed)
	}

	s.Completed = true
	s.Reminders = d.reminders(s.Date, s.Time)
	s.Notifications = nil
	if d.notifier != nil {
		results := d.notifier.NotifyConfirmation(ctx, notify.Confirmation{
			PatientName:      s.Patient.Name,
			Email:            s.Patient.Email,
			Phone:            s.Patient.Phone,
			Date:             s.Date,
			Time:             s.Time,
			Duration:         s.Duration,
			Doctor:           s.Doctor,
			Location:         s.Location,
			InsuranceCarrier: s.Insurance.Carrier,
		})
		for _, r := range results {
			s.Notifications = append(s.Notifications, r.StatusLine())
		}
	}

	d.logger.Info("conversation: appointment finalized", "session_id", s.SessionID, "date", s.Date, "time", s.Time, "duration", s.Duration)
	return moveTo(s, PhaseDone, summaryMessage(s))
}

func (d *Driver) done(_ context.Context, s State, _ string) Transition {
	return moveTo(s, PhaseDone, msgDone)
}

func (d *Driver) reminders(date, start string) []Reminder {
	at, err := time.ParseInLocation(intake.DateLayout+" "+schedule.TimeLayout, date+" "+start, d.now().Location())
	out := make([]Reminder, 0, len(reminderOffsets))
	for _, r := range reminderOffsets {
		rem := Reminder{Label: r.label}
		if err == nil {
			rem.At = at.Add(-r.before)
		}
		out = append(out, rem)
	}
	return out
}
