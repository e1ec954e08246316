package intake

import (
	"strings"
	"time"

	"github.com/wolfman30/medical-appointment-scheduler/internal/apperr"
)

// DateLayout is the ISO date form the booking flow accepts and persists.
const DateLayout = "2006-01-02"

var (
	ErrUnrecognizedDate = apperr.Validation("intake: date", "use today/tomorrow/day after or YYYY-MM-DD")
	ErrPastDate         = apperr.Validation("intake: date", "date is in the past")
	ErrUnrecognizedTime = apperr.Validation("intake: time", "use HH:MM, for example 10:00")
)

// ParseDate resolves a date reply relative to today. It accepts today/t/1,
// tomorrow/2, day after/3 and YYYY-MM-DD. Dates before today are rejected.
func ParseDate(text string, today time.Time) (time.Time, error) {
	base := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	switch strings.Join(strings.Fields(strings.ToLower(text)), " ") {
	case "today", "t", "1":
		return base, nil
	case "tomorrow", "2":
		return base.AddDate(0, 0, 1), nil
	case "day after", "day after tomorrow", "3":
		return base.AddDate(0, 0, 2), nil
	}

	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(text), today.Location())
	if err != nil {
		return time.Time{}, ErrUnrecognizedDate
	}
	if parsed.Before(base) {
		return time.Time{}, ErrPastDate
	}
	return parsed, nil
}

// ParseSlotTime normalizes a time reply to HH:MM. A bare hour such as "10"
// becomes "10:00"; anything after the first five characters is ignored.
func ParseSlotTime(text string) (string, error) {
	value := strings.TrimSpace(text)
	if value != "" && isDigits(value) {
		value += ":00"
	}
	if len(value) > 5 {
		value = value[:5]
	}
	value = strings.TrimSpace(value)

	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return "", ErrUnrecognizedTime
	}
	return parsed.Format("15:04"), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
