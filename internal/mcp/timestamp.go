package mcp

import (
	"errors"
	"strings"
	"time"
)

// TimestampLayout is how both sides render ISO-8601 instants that carry a
// sub-second part: six fraction digits and a numeric UTC offset (+00:00
// rather than Z). Whole seconds drop the fraction, see FormatTimestamp.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

const wholeSecondLayout = "2006-01-02T15:04:05-07:00"

var ErrInvalidTimestamp = errors.New("invalid ISO-8601 timestamp")

// ParseTimestamp parses an ISO-8601 date or date-time:
//
//	date    YYYY-MM-DD | YYYYMMDD
//	time    ('T' | ' ') HH[:MM[:SS[.f+]]] | HHMM[SS[.f+]]
//	offset  Z | ±HH | ±HHMM | ±HH:MM | ±HH:MM:SS
//
// The offset may follow a time of any precision. Timestamps without an
// offset are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	year, month, day, rest, ok := parseDate(s)
	if !ok {
		return time.Time{}, ErrInvalidTimestamp
	}
	if rest == "" {
		return newDate(year, month, day, 0, 0, 0, 0, time.UTC)
	}

	// Separator between date and time.
	if rest[0] != 'T' && rest[0] != ' ' {
		return time.Time{}, ErrInvalidTimestamp
	}
	rest = rest[1:]

	// Split the clock from a trailing offset, if any.
	clock, offset := rest, ""
	if i := strings.IndexAny(rest, "Z+-"); i >= 0 {
		clock, offset = rest[:i], rest[i:]
	}

	hour, min, sec, nsec, ok := parseClock(clock)
	if !ok {
		return time.Time{}, ErrInvalidTimestamp
	}

	loc := time.UTC
	if offset != "" {
		if loc, ok = parseOffset(offset); !ok {
			return time.Time{}, ErrInvalidTimestamp
		}
	}
	return newDate(year, month, day, hour, min, sec, nsec, loc)
}

// FormatTimestamp renders t keeping its location. A non-zero microsecond part
// is always printed with six digits; whole seconds print none.
func FormatTimestamp(t time.Time) string {
	t = t.Truncate(time.Microsecond)
	if t.Nanosecond() == 0 {
		return t.Format(wholeSecondLayout)
	}
	return t.Format(TimestampLayout)
}

func parseDate(s string) (year, month, day int, rest string, ok bool) {
	switch {
	case len(s) >= 10 && s[4] == '-' && s[7] == '-':
		year, ok1 := atoi(s[0:4])
		month, ok2 := atoi(s[5:7])
		day, ok3 := atoi(s[8:10])
		return year, month, day, s[10:], ok1 && ok2 && ok3
	case len(s) >= 8:
		year, ok1 := atoi(s[0:4])
		month, ok2 := atoi(s[4:6])
		day, ok3 := atoi(s[6:8])
		return year, month, day, s[8:], ok1 && ok2 && ok3
	}
	return 0, 0, 0, "", false
}

func parseClock(s string) (hour, min, sec, nsec int, ok bool) {
	// Fraction, only valid after seconds.
	frac := ""
	if i := strings.IndexAny(s, ".,"); i >= 0 {
		s, frac = s[:i], s[i+1:]
		if frac == "" {
			return 0, 0, 0, 0, false
		}
	}

	var parts []string
	if strings.Contains(s, ":") {
		parts = strings.Split(s, ":")
	} else {
		// Basic format: HH, HHMM or HHMMSS.
		if len(s)%2 != 0 {
			return 0, 0, 0, 0, false
		}
		for i := 0; i < len(s); i += 2 {
			parts = append(parts, s[i:i+2])
		}
	}
	if len(parts) == 0 || len(parts) > 3 || (frac != "" && len(parts) != 3) {
		return 0, 0, 0, 0, false
	}

	fields := [3]int{}
	for i, p := range parts {
		if len(p) != 2 {
			return 0, 0, 0, 0, false
		}
		v, ok := atoi(p)
		if !ok {
			return 0, 0, 0, 0, false
		}
		fields[i] = v
	}
	hour, min, sec = fields[0], fields[1], fields[2]
	if hour > 23 || min > 59 || sec > 59 {
		return 0, 0, 0, 0, false
	}

	if frac != "" {
		if _, ok := atoi(frac); !ok {
			return 0, 0, 0, 0, false
		}
		// Nanosecond precision; extra digits are dropped.
		frac = (frac + "000000000")[:9]
		nsec, _ = atoi(frac)
	}
	return hour, min, sec, nsec, true
}

func parseOffset(s string) (*time.Location, bool) {
	if s == "Z" {
		return time.UTC, true
	}

	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, false
	}

	hour, min, sec, _, ok := parseClock(s[1:])
	if !ok || strings.ContainsAny(s, ".,") {
		return nil, false
	}
	return time.FixedZone("", sign*(hour*3600+min*60+sec)), true
}

// newDate rejects dates time.Date would silently normalize, e.g. 2024-02-30.
func newDate(year, month, day, hour, min, sec, nsec int, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, ErrInvalidTimestamp
	}
	t := time.Date(year, time.Month(month), day, hour, min, sec, nsec, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, ErrInvalidTimestamp
	}
	return t, nil
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
