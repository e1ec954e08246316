// Package intake extracts structured fields from free-text patient replies.
package intake

import (
	"regexp"
	"strings"
)

// PatientInfo is what a greeting reply yielded. Missing fields are empty.
type PatientInfo struct {
	Name  string `json:"name"`
	DOB   string `json:"dob"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// HasIdentity reports whether both name and dob were found.
func (p PatientInfo) HasIdentity() bool {
	return p.Name != "" && p.DOB != ""
}

// HasContact reports whether both email and phone were found.
func (p PatientInfo) HasContact() bool {
	return p.Email != "" && p.Phone != ""
}

var (
	nameRe  = regexp.MustCompile(`(?i)name[:\-]?\s*([A-Za-z][A-Za-z\s.'-]+)`)
	dobRe   = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})|(\d{2}-\d{2}-\d{4})|(\d{1,2}[/-]\d{1,2}[/-]\d{4})`)
	emailRe = regexp.MustCompile(`(?i)email[:\-]?\s*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	phoneRe = regexp.MustCompile(`(?i)phone[:\-]?\s*([+]?[\d\-\(\)\s]{10,15})`)

	// A captured name stops at the next field label.
	nameStopRe = regexp.MustCompile(`(?i)\b(dob|date of birth|birth|born|email|e-mail|phone|mobile)\b`)
)

// ParsePatient extracts name, dob, email and phone from text like
// "Name: Jane Doe, DOB: 1990-01-15, Email: jane@example.com, Phone: 555-123-4567".
// The dob is the first date-shaped token in any of YYYY-MM-DD, DD-MM-YYYY or M/D/YYYY.
func ParsePatient(text string) PatientInfo {
	var info PatientInfo
	if m := nameRe.FindStringSubmatch(text); m != nil {
		info.Name = cleanName(m[1])
	}
	info.DOB = dobRe.FindString(text)
	if m := emailRe.FindStringSubmatch(text); m != nil {
		info.Email = strings.TrimSpace(m[1])
	}
	if m := phoneRe.FindStringSubmatch(text); m != nil {
		info.Phone = strings.TrimSpace(m[1])
	}
	return info
}

func cleanName(raw string) string {
	if line, _, found := strings.Cut(raw, "\n"); found {
		raw = line
	}
	if loc := nameStopRe.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}
	fields := strings.Fields(raw)
	if len(fields) > 1 && strings.EqualFold(fields[0], "is") {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}
