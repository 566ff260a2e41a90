package domain

import (
	"fmt"
	"strconv"
	"time"
)

// timestampLayout is the canonical wire form: YYYYMMDDHHMM, always UTC.
// Every component in the pipeline compares and orders time through this
// type so that provider filenames, chart valid times, and output paths
// all agree on minute precision.
const timestampLayout = "200601021504"

// Timestamp is a minute-granularity UTC instant.
//
// The zero value is "unset" and sorts before every valid timestamp.
type Timestamp struct {
	t time.Time
}

// ParseTimestamp parses the canonical 12-digit form. Inputs with trailing
// seconds (14 digits) are accepted and truncated to the minute, matching
// the tile provider's filename convention.
func ParseTimestamp(s string) (Timestamp, error) {
	switch len(s) {
	case 12:
	case 14:
		s = s[:12]
	default:
		return Timestamp{}, fmt.Errorf("parse timestamp %q: want 12 or 14 digits", s)
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return Timestamp{t: t}, nil
}

// ParseDayOfYearTimestamp parses the CDN provider's YYYYJJJHHMM form,
// where JJJ is the 1-based day of the year.
func ParseDayOfYearTimestamp(s string) (Timestamp, error) {
	if len(s) != 11 {
		return Timestamp{}, fmt.Errorf("parse day-of-year timestamp %q: want 11 digits", s)
	}
	year, err := strconv.Atoi(s[0:4])
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse day-of-year timestamp %q: %w", s, err)
	}
	doy, err := strconv.Atoi(s[4:7])
	if err != nil || doy < 1 || doy > 366 {
		return Timestamp{}, fmt.Errorf("parse day-of-year timestamp %q: bad day of year", s)
	}
	hour, err := strconv.Atoi(s[7:9])
	if err != nil || hour > 23 {
		return Timestamp{}, fmt.Errorf("parse day-of-year timestamp %q: bad hour", s)
	}
	minute, err := strconv.Atoi(s[9:11])
	if err != nil || minute > 59 {
		return Timestamp{}, fmt.Errorf("parse day-of-year timestamp %q: bad minute", s)
	}
	t := time.Date(year, time.January, 1, hour, minute, 0, 0, time.UTC).AddDate(0, 0, doy-1)
	return Timestamp{t: t}, nil
}

// TimestampOf truncates a time.Time to minute precision in UTC.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{t: t.UTC().Truncate(time.Minute)}
}

// NewTimestamp builds a Timestamp from calendar components, UTC.
func NewTimestamp(year int, month time.Month, day, hour, minute int) Timestamp {
	return Timestamp{t: time.Date(year, month, day, hour, minute, 0, 0, time.UTC)}
}

// IsZero reports whether the timestamp is unset.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// Time returns the underlying UTC time.
func (ts Timestamp) Time() time.Time { return ts.t }

// String returns the canonical 12-digit form.
func (ts Timestamp) String() string { return ts.t.Format(timestampLayout) }

// DateKey returns the YYYYMMDD form used for per-day storage directories.
func (ts Timestamp) DateKey() string { return ts.t.Format("20060102") }

// Display returns the human-readable UTC form used in frame labels,
// e.g. "2019-01-24 21:45Z".
func (ts Timestamp) Display() string { return ts.t.Format("2006-01-02 15:04Z") }

// DisplayIn returns the label form localized to loc, e.g. "2019-01-24 13:45 PST".
func (ts Timestamp) DisplayIn(loc *time.Location) string {
	return ts.t.In(loc).Format("2006-01-02 15:04 MST")
}

// Before reports whether ts is strictly earlier than other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// After reports whether ts is strictly later than other.
func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

// Equal reports whether ts and other name the same minute.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

// Compare returns -1, 0, or +1 ordering ts against other.
func (ts Timestamp) Compare(other Timestamp) int { return ts.t.Compare(other.t) }

// Sub returns ts - other.
func (ts Timestamp) Sub(other Timestamp) time.Duration { return ts.t.Sub(other.t) }

// DistanceTo returns the absolute separation between ts and other.
func (ts Timestamp) DistanceTo(other Timestamp) time.Duration {
	d := ts.t.Sub(other.t)
	if d < 0 {
		return -d
	}
	return d
}

// TruncateSynoptic rounds ts down to the most recent multiple of interval
// within its day, e.g. a 6h interval maps 14:37 to 12:00. Charts are filed
// under their synoptic valid time, not their fetch time.
func (ts Timestamp) TruncateSynoptic(interval time.Duration) Timestamp {
	return Timestamp{t: ts.t.Truncate(interval)}
}
