// Package series materializes recurring meetings: it generates recurrence
// rules from the repeat presets and expands stored series into concrete
// occurrences within a query window.
package series

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/meetingsync/internal/meeting"
)

// ErrUnsupportedRepeat indicates the repeat preset has no rule mapping.
var ErrUnsupportedRepeat = errors.New("series: unsupported repeat preset")

var weekdayCodes = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// RuleForRepeat deterministically derives an RRULE string from a repeat preset
// and the first occurrence's start date. Weekly rules pin BYDAY to the start's
// weekday; monthly rules pin BYSETPOS to the start's week-of-month plus BYDAY.
func RuleForRepeat(repeat meeting.Repeat, start time.Time) (string, error) {
	switch repeat {
	case meeting.RepeatDaily:
		return "RRULE:FREQ=DAILY;INTERVAL=1", nil
	case meeting.RepeatWeekly:
		return fmt.Sprintf("RRULE:FREQ=WEEKLY;INTERVAL=1;BYDAY=%s", weekdayCodes[start.Weekday()]), nil
	case meeting.RepeatMonthly:
		weekOfMonth := (start.Day()-1)/7 + 1
		return fmt.Sprintf("RRULE:FREQ=MONTHLY;INTERVAL=1;BYSETPOS=%d;BYDAY=%s", weekOfMonth, weekdayCodes[start.Weekday()]), nil
	default:
		return "", ErrUnsupportedRepeat
	}
}
