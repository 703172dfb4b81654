package intent

import (
	"regexp"
	"strings"
)

var separatorRun = regexp.MustCompile(`[-_/]+`)

// Normalize lowercases msg, collapses runs of '-', '_' and '/' into a single
// space and trims surrounding whitespace.
func Normalize(msg string) string {
	msg = strings.ToLower(msg)
	msg = separatorRun.ReplaceAllString(msg, " ")
	return strings.TrimSpace(msg)
}

// Period names accepted by the catalog filter.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// periodTokens is checked in order so that "daily" wins over "day".
var periodTokens = []struct {
	token  string
	period string
}{
	{"daily", PeriodDay},
	{"weekly", PeriodWeek},
	{"monthly", PeriodMonth},
	{"day", PeriodDay},
	{"week", PeriodWeek},
	{"month", PeriodMonth},
}

// ParsePeriod returns the canonical period mentioned in a normalized
// message, or "" when none is present.
func ParsePeriod(msg string) string {
	for _, pt := range periodTokens {
		if strings.Contains(msg, pt.token) {
			return pt.period
		}
	}
	return ""
}
