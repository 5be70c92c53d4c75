// Package pipeline drives the conversion batch: it derives station-day
// units of work, processes each unit through extraction, calibration,
// conversion, and assembly, and aggregates per-unit outcomes into a run
// report. Units are independent; a failure in one never aborts siblings.
package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/mag-data-etl/internal/domain"
)

// Unit is one station-day of work: all hourly archives for one station on
// one calendar date, merged into a single output file.
type Unit struct {
	StationCode string // canonical lowercase
	Dir         string // directory holding the station's archives for the year; may not exist
	Year        int
	DayOfYear   int
}

// Date returns the unit's UTC calendar date.
func (u Unit) Date() time.Time {
	return domain.DateFromDOY(u.Year, u.DayOfYear)
}

func (u Unit) String() string {
	return fmt.Sprintf("%s %d-%03d", u.StationCode, u.Year, u.DayOfYear)
}

// Archives lists the unit's hourly zip files in sorted order, following the
// naming convention {station}{doy:03d}*.zip. A missing directory yields an
// empty list, which is a valid all-missing day, not an error.
func (u Unit) Archives() ([]string, error) {
	if u.Dir == "" {
		return nil, nil
	}
	pattern := filepath.Join(u.Dir, fmt.Sprintf("%s%03d*.zip", u.StationCode, u.DayOfYear))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// UnitSpec selects the station-days a run covers. An empty Stations list
// means discover stations from the data tree per year.
type UnitSpec struct {
	Stations  []string
	YearStart int
	YearEnd   int
	DOYStart  int
	DOYEnd    int
}

// BuildUnits expands a spec against the data tree layout
// {dataPath}/{year}/{STATION}/. Every station-day in range becomes a unit,
// whether or not archives exist for it; day 366 of a non-leap year is
// skipped.
func BuildUnits(dataPath string, spec UnitSpec, logger *slog.Logger) []Unit {
	var units []Unit

	for year := spec.YearStart; year <= spec.YearEnd; year++ {
		dirs := discoverStations(dataPath, year)

		stations := spec.Stations
		if len(stations) == 0 {
			stations = sortedKeys(dirs)
			if len(stations) == 0 {
				logger.Info("no stations found for year", "year", year, "data_path", dataPath)
				continue
			}
		}

		for _, station := range stations {
			dir := dirs[station]
			if dir == "" {
				// Requested explicitly but absent from the tree: point at the
				// conventional location so the unit resolves to an empty day.
				dir = filepath.Join(dataPath, strconv.Itoa(year), strings.ToUpper(station))
			}
			for doy := spec.DOYStart; doy <= spec.DOYEnd; doy++ {
				u := Unit{StationCode: station, Dir: dir, Year: year, DayOfYear: doy}
				if u.Date().Year() != year {
					continue
				}
				units = append(units, u)
			}
		}
	}

	return units
}

// discoverStations maps canonical station codes to their archive
// directories under {dataPath}/{year}/. An unreadable year directory means
// no stations for that year.
func discoverStations(dataPath string, year int) map[string]string {
	yearDir := filepath.Join(dataPath, strconv.Itoa(year))
	entries, err := os.ReadDir(yearDir)
	if err != nil {
		return nil
	}

	dirs := make(map[string]string)
	for _, e := range entries {
		if !e.IsDir() || len(e.Name()) != 3 {
			continue
		}
		dirs[domain.CanonicalStationCode(e.Name())] = filepath.Join(yearDir, e.Name())
	}
	return dirs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
