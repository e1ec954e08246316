package schedule

import "time"

func parseTestDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}
