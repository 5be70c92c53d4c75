package domain

import (
	"strings"
	"time"
)

// Sample is one per-second reading of the raw instrument channels.
// T1 and T2 are sensor temperatures; NaN when the source row omitted them.
type Sample struct {
	HH int
	MM int
	SS int

	H float64
	D float64
	Z float64

	T1 float64
	T2 float64
}

// SecondOfDay returns the absolute second within the day (0..86399).
// Values outside that range mean the sample cannot be placed on the
// day grid and must be dropped by the assembler.
func (s Sample) SecondOfDay() int {
	return s.HH*3600 + s.MM*60 + s.SS
}

// HourlyRecord is one parsed archive member: a single station-hour of raw
// per-second readings plus the member's free-text header, carried only for
// diagnostics. Records are immutable after parsing.
type HourlyRecord struct {
	StationCode string // canonical lowercase 3-letter code
	Year        int
	DayOfYear   int // 1-based ordinal day
	Hour        int // 0-23, as encoded in the member filename
	Samples     []Sample
	HeaderLines []string
}

// Date returns the UTC midnight of the record's calendar day.
func (r HourlyRecord) Date() time.Time {
	return DateFromDOY(r.Year, r.DayOfYear)
}

// DateFromDOY converts a year and 1-based day-of-year to UTC midnight.
func DateFromDOY(year, doy int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
}

// CanonicalStationCode lowercases a station code for internal keying.
// Output surfaces (IAGA headers, calibration tables) use the uppercase form.
func CanonicalStationCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
