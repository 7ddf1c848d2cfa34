package utils

import "time"

// genericDateFormats are the layouts tried, in order, when a mapping declares
// no explicit format for a timestamp column. Day-first layouts outrank
// month-first ones because most broker exports handled here are day-first.
var genericDateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// ParseFlexibleDate attempts best-effort date parsing: layouts from a
// mapping's heuristics block first, then the generic list. The second return
// reports whether any layout matched.
func ParseFlexibleDate(value string, extraFormats []string) (time.Time, bool) {
	for _, layout := range extraFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	for _, layout := range genericDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
