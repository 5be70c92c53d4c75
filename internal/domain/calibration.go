package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoCalibration signals that no calibration record was in force for a
// station on a given date. It is terminal for the affected hourly record
// only; the batch driver skips and logs, never aborts the run.
var ErrNoCalibration = errors.New("no calibration available")

// SlopeOffset is one versioned slope/offset calibration record: a linear
// slope LS and offset LO shared by all axes, plus per-axis offsets.
type SlopeOffset struct {
	StationCode string // uppercase, as listed in the table
	ValidFrom   time.Time

	LS float64
	LO float64
	H  float64
	D  float64
	Z  float64
}

// Scaling is one versioned per-axis scaling record: scale (divisor) and
// bias for each of the H, D, Z axes.
type Scaling struct {
	StationCode string // uppercase, as listed in the table
	ValidFrom   time.Time

	Hs float64
	Hb float64
	Ds float64
	Db float64
	Zs float64
	Zb float64
}

// CalibrationStore holds both calibration tables, loaded once at startup
// and read-only thereafter. The zero value is an empty store; use
// NewCalibrationStore.
type CalibrationStore struct {
	slopes   []SlopeOffset
	scalings []Scaling
}

// NewCalibrationStore builds a store from the two table histories. Station
// codes are canonicalized to uppercase; row order is preserved because it
// breaks effective-date ties (append order, last listed wins).
func NewCalibrationStore(slopes []SlopeOffset, scalings []Scaling) *CalibrationStore {
	s := &CalibrationStore{
		slopes:   make([]SlopeOffset, len(slopes)),
		scalings: make([]Scaling, len(scalings)),
	}
	for i, r := range slopes {
		r.StationCode = strings.ToUpper(strings.TrimSpace(r.StationCode))
		r.ValidFrom = dateOnly(r.ValidFrom)
		s.slopes[i] = r
	}
	for i, r := range scalings {
		r.StationCode = strings.ToUpper(strings.TrimSpace(r.StationCode))
		r.ValidFrom = dateOnly(r.ValidFrom)
		s.scalings[i] = r
	}
	return s
}

// Resolve returns the slope/offset and scaling records in force for a
// station on the target date: among rows for that station with
// effective-from ≤ target, the one with the maximum effective-from date,
// later-listed rows winning ties. Returns an error wrapping
// ErrNoCalibration when either table has no eligible row.
func (s *CalibrationStore) Resolve(stationCode string, target time.Time) (SlopeOffset, Scaling, error) {
	code := strings.ToUpper(strings.TrimSpace(stationCode))
	day := dateOnly(target)

	var (
		slope      SlopeOffset
		slopeFound bool
	)
	for _, r := range s.slopes {
		if r.StationCode != code || r.ValidFrom.After(day) {
			continue
		}
		if !slopeFound || !r.ValidFrom.Before(slope.ValidFrom) {
			slope = r
			slopeFound = true
		}
	}
	if !slopeFound {
		return SlopeOffset{}, Scaling{}, fmt.Errorf("%w: no slope/offset row for station %s on %s",
			ErrNoCalibration, code, day.Format("2006-01-02"))
	}

	var (
		scaling      Scaling
		scalingFound bool
	)
	for _, r := range s.scalings {
		if r.StationCode != code || r.ValidFrom.After(day) {
			continue
		}
		if !scalingFound || !r.ValidFrom.Before(scaling.ValidFrom) {
			scaling = r
			scalingFound = true
		}
	}
	if !scalingFound {
		return SlopeOffset{}, Scaling{}, fmt.Errorf("%w: no scaling row for station %s on %s",
			ErrNoCalibration, code, day.Format("2006-01-02"))
	}

	return slope, scaling, nil
}

// dateOnly truncates a timestamp to its UTC calendar date. Effective-from
// comparisons ignore any time-of-day component in the tables.
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
