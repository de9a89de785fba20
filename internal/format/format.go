// Package format renders durations and publish dates the way the site displays them.
package format

import (
	"fmt"
	"time"
)

var shortMonthsPtBR = [...]string{
	"jan", "fev", "mar", "abr", "mai", "jun",
	"jul", "ago", "set", "out", "nov", "dez",
}

// Duration formats a number of seconds as HH:MM:SS. Hours do not wrap.
func Duration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// PublishedDate formats t as a short Brazilian Portuguese date, e.g. "8 jan 21".
func PublishedDate(t time.Time) string {
	return fmt.Sprintf("%d %s %02d", t.Day(), shortMonthsPtBR[t.Month()-1], t.Year()%100)
}

// ParseISODate accepts the ISO forms the content API emits: a full RFC 3339
// timestamp, a timestamp without zone, or a bare date.
func ParseISODate(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO date: %q", value)
}
