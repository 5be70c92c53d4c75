// Package table loads the auxiliary CSV tables the pipeline consumes as
// given: the two calibration factor histories and the station metadata
// table produced by the coordinate-extraction collaborator.
package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/mag-data-etl/internal/domain"
)

// dateLayouts are the accepted effective-from formats. Any time-of-day
// component is ignored for comparisons; values are truncated to the date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// LoadSlopeOffsets reads the slope/offset factor history
// (station_code, Valid_from, LS, LO, H, D, Z). Row order is preserved:
// the tables are append-only and order breaks effective-date ties.
func LoadSlopeOffsets(path string) ([]domain.SlopeOffset, error) {
	rows, err := loadCSV(path)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SlopeOffset, 0, len(rows))
	for _, row := range rows {
		rec := domain.SlopeOffset{StationCode: row.fields["station_code"]}
		if rec.ValidFrom, err = parseDate(row.fields["Valid_from"]); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, row.lineNum, err)
		}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"LS", &rec.LS}, {"LO", &rec.LO}, {"H", &rec.H}, {"D", &rec.D}, {"Z", &rec.Z},
		} {
			if *f.dst, err = parseFloat(row.fields[f.col]); err != nil {
				return nil, fmt.Errorf("%s line %d: column %s: %w", path, row.lineNum, f.col, err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadScalings reads the scaling factor history
// (Station_code, valid_from_date, Hs, Hb, Ds, Db, Zs, Zb).
func LoadScalings(path string) ([]domain.Scaling, error) {
	rows, err := loadCSV(path)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Scaling, 0, len(rows))
	for _, row := range rows {
		rec := domain.Scaling{StationCode: row.fields["Station_code"]}
		if rec.ValidFrom, err = parseDate(row.fields["valid_from_date"]); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, row.lineNum, err)
		}
		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"Hs", &rec.Hs}, {"Hb", &rec.Hb}, {"Ds", &rec.Ds},
			{"Db", &rec.Db}, {"Zs", &rec.Zs}, {"Zb", &rec.Zb},
		} {
			if *f.dst, err = parseFloat(row.fields[f.col]); err != nil {
				return nil, fmt.Errorf("%s line %d: column %s: %w", path, row.lineNum, f.col, err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// LoadStations reads the station metadata table
// (station, active, geo_lon, geo_lat, mag_lon, mag_lat, l_shell).
// The display name defaults to the uppercased station code.
func LoadStations(path string) (domain.StationTable, error) {
	rows, err := loadCSV(path)
	if err != nil {
		return nil, err
	}

	out := make(domain.StationTable, len(rows))
	for _, row := range rows {
		code := domain.CanonicalStationCode(row.fields["station"])
		if code == "" {
			return nil, fmt.Errorf("%s line %d: empty station code", path, row.lineNum)
		}

		m := domain.StationMetadata{
			Code: code,
			Name: strings.ToUpper(code),
		}
		active, err := strconv.ParseBool(strings.ToLower(row.fields["active"]))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: column active: %w", path, row.lineNum, err)
		}
		m.Deactivated = !active

		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"geo_lon", &m.GeoLon}, {"geo_lat", &m.GeoLat},
			{"mag_lon", &m.MagLon}, {"mag_lat", &m.MagLat},
			{"l_shell", &m.LShell},
		} {
			if *f.dst, err = parseFloat(row.fields[f.col]); err != nil {
				return nil, fmt.Errorf("%s line %d: column %s: %w", path, row.lineNum, f.col, err)
			}
		}
		out[code] = m
	}
	return out, nil
}

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCSV(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	header := all[0]
	rows := make([]csvRow, 0, len(all)-1)
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[strings.TrimSpace(h)] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
