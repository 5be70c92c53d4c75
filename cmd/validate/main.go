// Command validate performs integrity checks across the auxiliary tables
// the conversion depends on: the slope/offset table, the scaling table,
// and the station coordinate table. It verifies parseability, calibration
// coverage per station, non-zero conversion denominators, and
// cross-references between the three files.
//
// Usage:
//
//	go run ./cmd/validate -aux-dir ./aux_data [-date 2024-06-01]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/mag-data-etl/internal/adapter/table"
	"github.com/couchcryptid/mag-data-etl/internal/config"
	"github.com/couchcryptid/mag-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	auxDir := flag.String("aux-dir", "./aux_data", "directory containing the auxiliary calibration tables")
	dateStr := flag.String("date", "", "optional date (YYYY-MM-DD) to check calibration resolution against")
	flag.Parse()

	var target time.Time
	if *dateStr != "" {
		var err error
		target, err = time.Parse("2006-01-02", *dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: invalid -date: %v\n", err)
			os.Exit(1)
		}
	}

	if code := run(*auxDir, target); code != 0 {
		os.Exit(code)
	}
}

func run(auxDir string, target time.Time) int {
	fmt.Println("=== Auxiliary Table Integrity Validation ===")
	fmt.Println()

	slopes, err := table.LoadSlopeOffsets(filepath.Join(auxDir, config.SlopeOffsetTableFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load slope/offset table: %v\n", err)
		return 1
	}
	scalings, err := table.LoadScalings(filepath.Join(auxDir, config.ScalingTableFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load scaling table: %v\n", err)
		return 1
	}
	stations, err := table.LoadStations(filepath.Join(auxDir, config.StationTableFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load station table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateDenominators(scalings),
		validateChronology(slopes, scalings),
		validateCrossReferences(slopes, scalings, stations),
	}
	if !target.IsZero() {
		phases = append(phases, validateResolution(slopes, scalings, target))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d slope/offset, %d scaling, %d stations\n",
		len(slopes), len(scalings), len(stations))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Denominators ──
// Hs, Ds, Zs divide raw counts and Hb divides the declination term, so a
// zero in any of them turns whole days into non-finite output.

func validateDenominators(scalings []domain.Scaling) *phase {
	p := &phase{name: "Phase 1: Scaling Denominators"}

	for i, s := range scalings {
		check := func(name string, v float64) {
			if v == 0 {
				p.errorf("scaling record %d (%s, from %s): %s is zero",
					i, s.StationCode, s.ValidFrom.Format("2006-01-02"), name)
			}
		}
		check("Hs", s.Hs)
		check("Ds", s.Ds)
		check("Zs", s.Zs)
		check("Hb", s.Hb)
	}
	return p
}

// ── Phase 2: Chronology ──
// Per station, effective dates should be distinct and listed in ascending
// order. Both defects are legal (the later-listed record wins ties) but
// usually indicate an editing mistake in the append-only tables.

func validateChronology(slopes []domain.SlopeOffset, scalings []domain.Scaling) *phase {
	p := &phase{name: "Phase 2: Effective-Date Chronology"}

	checkDates := func(kind string, dates map[string][]time.Time) {
		for station, ds := range dates {
			seen := map[time.Time]int{}
			for i, d := range ds {
				seen[d]++
				if i > 0 && d.Before(ds[i-1]) {
					p.errorf("%s: station %s record effective %s is listed after %s",
						kind, station, d.Format("2006-01-02"), ds[i-1].Format("2006-01-02"))
				}
			}
			for d, n := range seen {
				if n > 1 {
					p.errorf("%s: station %s has %d records effective %s",
						kind, station, n, d.Format("2006-01-02"))
				}
			}
		}
	}

	slopeDates := map[string][]time.Time{}
	for _, s := range slopes {
		slopeDates[s.StationCode] = append(slopeDates[s.StationCode], s.ValidFrom)
	}
	scalingDates := map[string][]time.Time{}
	for _, s := range scalings {
		scalingDates[s.StationCode] = append(scalingDates[s.StationCode], s.ValidFrom)
	}

	checkDates("slope/offset", slopeDates)
	checkDates("scaling", scalingDates)
	return p
}

// ── Phase 3: Cross-References ──
// A station needs records in both calibration tables to convert at all,
// and a coordinate entry to emit a fully annotated header.

func validateCrossReferences(slopes []domain.SlopeOffset, scalings []domain.Scaling, stations domain.StationTable) *phase {
	p := &phase{name: "Phase 3: Cross-References"}

	slopeStations := map[string]bool{}
	for _, s := range slopes {
		slopeStations[s.StationCode] = true
	}
	scalingStations := map[string]bool{}
	for _, s := range scalings {
		scalingStations[s.StationCode] = true
	}

	for station := range slopeStations {
		if !scalingStations[station] {
			p.errorf("station %s has slope/offset records but no scaling records", station)
		}
	}
	for station := range scalingStations {
		if !slopeStations[station] {
			p.errorf("station %s has scaling records but no slope/offset records", station)
		}
	}

	for station := range slopeStations {
		if !scalingStations[station] {
			continue
		}
		meta, ok := stations[domain.CanonicalStationCode(station)]
		if !ok {
			p.errorf("station %s is calibrated but missing from %s", station, config.StationTableFile)
			continue
		}
		if meta.GeoLat < -90 || meta.GeoLat > 90 {
			p.errorf("station %s: geodetic latitude %g out of range", station, meta.GeoLat)
		}
		if meta.GeoLon < -180 || meta.GeoLon > 360 {
			p.errorf("station %s: geodetic longitude %g out of range", station, meta.GeoLon)
		}
	}
	return p
}

// ── Phase 4: Resolution ──
// With -date set, every calibrated station must resolve a record pair as
// of that date, the way the conversion will at run time.

func validateResolution(slopes []domain.SlopeOffset, scalings []domain.Scaling, target time.Time) *phase {
	p := &phase{name: fmt.Sprintf("Phase 4: Resolution as of %s", target.Format("2006-01-02"))}

	store := domain.NewCalibrationStore(slopes, scalings)

	stations := map[string]bool{}
	for _, s := range slopes {
		stations[s.StationCode] = true
	}
	for _, s := range scalings {
		stations[s.StationCode] = true
	}

	for station := range stations {
		if _, _, err := store.Resolve(station, target); err != nil {
			p.errorf("station %s: %v", station, err)
		}
	}
	return p
}
