package util

import (
    "strconv"
    "time"
)

// DateLayout is the YYYY-MM-DD form used for trading dates everywhere.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// ParseDate parses a YYYY-MM-DD trading date in UTC.
func ParseDate(s string) (time.Time, bool) {
    t, err := time.Parse(DateLayout, s)
    if err != nil {
        return time.Time{}, false
    }
    return t, true
}

// FormatDate renders a time as a YYYY-MM-DD trading date.
func FormatDate(t time.Time) string {
    return t.Format(DateLayout)
}

// AddDays shifts a YYYY-MM-DD date by n calendar days. Invalid input comes
// back unchanged.
func AddDays(date string, n int) string {
    t, ok := ParseDate(date)
    if !ok {
        return date
    }
    return FormatDate(t.AddDate(0, 0, n))
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
    wd := t.Weekday()
    return wd == time.Saturday || wd == time.Sunday
}
