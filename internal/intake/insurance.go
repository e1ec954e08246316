package intake

import (
	"regexp"
	"strings"
)

// InsuranceInfo is what an insurance reply yielded.
type InsuranceInfo struct {
	Carrier     string `json:"insurance_carrier"`
	MemberID    string `json:"member_id"`
	GroupNumber string `json:"group_number"`
}

// Complete reports whether all three fields were found.
func (i InsuranceInfo) Complete() bool {
	return i.Carrier != "" && i.MemberID != "" && i.GroupNumber != ""
}

var (
	carrierRe = fieldPattern(`insurance\s+carrier|carrier|insurance`)
	memberRe  = fieldPattern(`member[_\s]?id`)
	groupRe   = fieldPattern(`group[_\s]?number`)

	insuranceStopRe = regexp.MustCompile(`(?i)\b(member[_\s]?id|group[_\s]?number|carrier|insurance)\b`)
)

func fieldPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:` + label + `)[:\-]?\s*([A-Za-z0-9\-\s]+)`)
}

// ParseInsurance extracts carrier, member id and group number from text like
// "Insurance: Blue Cross, Member ID: 123456, Group Number: ABC123".
func ParseInsurance(text string) InsuranceInfo {
	return InsuranceInfo{
		Carrier:     grab(carrierRe, text),
		MemberID:    grab(memberRe, text),
		GroupNumber: grab(groupRe, text),
	}
}

func grab(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	value := m[1]
	if line, _, found := strings.Cut(value, "\n"); found {
		value = line
	}
	if loc := insuranceStopRe.FindStringIndex(value); loc != nil {
		value = value[:loc[0]]
	}
	return strings.Join(strings.Fields(value), " ")
}
