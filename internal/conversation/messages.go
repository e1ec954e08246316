package conversation

import (
	"fmt"
	"strings"
)

const welcomeMessage = `👋 Welcome to the Medical Appointment Scheduler!

Please provide your information in the following format:

**For New Patients:**
• Name: [Full Name], DOB: [YYYY-MM-DD], Email: [email@example.com], Phone: [+1234567890]

**For Returning Patients:**
• Name: [Full Name], DOB: [YYYY-MM-DD]

**Example:** Name: John Doe, DOB: 1990-01-15, Email: john@email.com, Phone: +1234567890`

const (
	msgGreetEmpty        = "👋 Welcome! Please provide your information."
	msgMissingIdentity   = "❌ Please provide at least your name and date of birth."
	msgNewPatientContact = "❌ New patients must provide email and phone. Please include: Name, DOB, Email, and Phone."
	msgLookupFailed      = "❌ We could not look up your record right now. Please try again."
	msgInvalidDate       = "❌ Invalid date. Use today/tomorrow/day after or YYYY-MM-DD."
	msgPastDate          = "❌ That date is in the past. Pick today or a later date."
	msgScheduleFailed    = "❌ We could not load the schedule for that date. Please try again."
	msgBookFailed        = "❌ Failed to book the slot. Please try another time."
	msgBookError         = "❌ Something went wrong while booking. Please try again."
	msgMissingInsurance  = "❌ Missing insurance info. Please provide:\n**Insurance:** [Carrier Name], **Member ID:** [ID], **Group Number:** [Number]"
	msgSavePatientFailed = "❌ Error saving patient information."
	msgFinalizeFailed    = "❌ Error finalizing appointment."
	msgDone              = "✅ Appointment completed. Start a new appointment to begin again."
	msgStuck             = "❌ Something went wrong. Please start a new appointment."
)

func welcomeBackMessage(name string, minutes int) string {
	return fmt.Sprintf("✅ Welcome back, %s! (Returning Patient - %d min appointment)\n\nChecking doctor and location assignment...", name, minutes)
}

func welcomeNewMessage(name string, minutes int) string {
	return fmt.Sprintf("✅ Welcome %s! (New Patient - %d min appointment)\n\nChecking doctor and location assignment...", name, minutes)
}

func assignmentMessage(doctor, location string, minutes int) string {
	return fmt.Sprintf("👨‍⚕️ **Doctor:** %s\n📍 **Location:** %s\n⏱️ **Duration:** %d minutes\n\n📅 **Choose date:** today / tomorrow / day after / YYYY-MM-DD",
		doctor, location, minutes)
}

func noSlotsMessage(minutes int) string {
	return fmt.Sprintf("❌ No available %d-minute slots for this date. Pick another date.", minutes)
}

func slotsMessage(date string, minutes int, times []string) string {
	return fmt.Sprintf("🕒 **Available %d minutes slots** for %s:\n%s\n\nPick a time (e.g., 10:00).",
		minutes, date, strings.Join(times, ", "))
}

func unavailableTimeMessage(times []string) string {
	return "❌ That time slot is not available. Try one of: " + strings.Join(times, ", ")
}

func bookedMessage(date, start string, minutes int) string {
	return fmt.Sprintf("✅ **%d-minute appointment** booked for %s at %s!\n\n💳 Please provide your insurance information:\n**Example:** Insurance: Blue Cross, Member ID: 123456, Group Number: ABC123",
		minutes, date, start)
}

func summaryMessage(s State) string {
	var b strings.Builder
	b.WriteString("🎉 **Appointment Confirmed!**\n\n")
	fmt.Fprintf(&b, "**Patient:** %s (%s)\n", s.Patient.Name, s.PatientType)
	fmt.Fprintf(&b, "**Date:** %s\n", s.Date)
	fmt.Fprintf(&b, "**Time:** %s\n", s.Time)
	fmt.Fprintf(&b, "**Duration:** %d minutes\n", s.Duration)
	fmt.Fprintf(&b, "**Doctor:** %s\n", s.Doctor)
	fmt.Fprintf(&b, "**Location:** %s\n", s.Location)
	fmt.Fprintf(&b, "**Insurance:** %s", s.Insurance.Carrier)
	for _, line := range s.Notifications {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}
