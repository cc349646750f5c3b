package domain

import (
	"fmt"
	"time"
)

// Request identifies one archival capture: a UTC calendar date plus hour.
// Immutable once constructed via NewRequest.
type Request struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// NewRequest validates the calendar fields and returns a Request.
// The date must be a real calendar date and the hour in [0, 23]; coverage
// against the satellite windows is checked separately by Resolve.
func NewRequest(year, month, day, hour int) (Request, error) {
	if hour < 0 || hour > 23 {
		return Request{}, fmt.Errorf("hour %d out of range [0, 23]", hour)
	}
	if month < 1 || month > 12 {
		return Request{}, fmt.Errorf("month %d out of range [1, 12]", month)
	}
	// time.Date normalizes overflow (Feb 30 -> Mar 2), so a round-trip
	// comparison catches impossible dates.
	t := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return Request{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return Request{Year: year, Month: month, Day: day, Hour: hour}, nil
}

// Time returns the request instant in UTC.
func (r Request) Time() time.Time {
	return time.Date(r.Year, time.Month(r.Month), r.Day, r.Hour, 0, 0, 0, time.UTC)
}

// Key returns the cache key for this request, e.g. "2000010100".
func (r Request) Key() string {
	return fmt.Sprintf("%04d%02d%02d%02d", r.Year, r.Month, r.Day, r.Hour)
}

func (r Request) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:00 UTC", r.Year, r.Month, r.Day, r.Hour)
}
