package domain

import (
	"fmt"
	"time"
)

// SecondsPerDay is the number of slots in an assembled day.
const SecondsPerDay = 86400

// CollisionPolicy decides which sample wins when two hourly records claim
// the same second of day (overlapping archives).
type CollisionPolicy int

const (
	// CollisionLastWins keeps the later-processed sample, matching the
	// historical pipeline's behavior.
	CollisionLastWins CollisionPolicy = iota
	// CollisionFirstWins keeps the first sample written to a slot.
	CollisionFirstWins
)

// ParseCollisionPolicy maps the configuration strings "last" and "first".
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch s {
	case "", "last":
		return CollisionLastWins, nil
	case "first":
		return CollisionFirstWins, nil
	default:
		return CollisionLastWins, fmt.Errorf("unknown collision policy %q (want \"last\" or \"first\")", s)
	}
}

func (p CollisionPolicy) String() string {
	if p == CollisionFirstWins {
		return "first"
	}
	return "last"
}

// Slot is one second of an assembled day: calibrated values when Valid,
// an explicit missing marker otherwise.
type Slot struct {
	Values Converted
	Valid  bool
}

// AssembledDay is one station and one calendar date expanded to exactly
// 86,400 per-second slots, indexed by second of day. The slot count holds
// regardless of how much source data contributed.
type AssembledDay struct {
	StationCode string // canonical lowercase
	Date        time.Time
	Slots       []Slot // len == SecondsPerDay
}

// MissingCount returns the number of slots with no contributing sample.
func (d AssembledDay) MissingCount() int {
	n := 0
	for _, s := range d.Slots {
		if !s.Valid {
			n++
		}
	}
	return n
}

// Assemble merges zero or more converted hourly series for one station-day
// onto the full second-of-day grid. Left-join semantics: samples whose
// second falls outside [0, 86400) are dropped, and slots nothing maps to
// stay missing. Zero input series produce a valid all-missing day. The
// result depends only on the set of (second, value) pairs and the collision
// policy, not on series ordering, except that CollisionLastWins keeps the
// last sample in iteration order for a contested second.
func Assemble(stationCode string, date time.Time, series [][]ConvertedSample, policy CollisionPolicy) AssembledDay {
	day := AssembledDay{
		StationCode: CanonicalStationCode(stationCode),
		Date:        dateOnly(date),
		Slots:       make([]Slot, SecondsPerDay),
	}

	for _, samples := range series {
		for _, s := range samples {
			if s.SecondOfDay < 0 || s.SecondOfDay >= SecondsPerDay {
				continue
			}
			if policy == CollisionFirstWins && day.Slots[s.SecondOfDay].Valid {
				continue
			}
			day.Slots[s.SecondOfDay] = Slot{Values: s.Values, Valid: true}
		}
	}

	return day
}
