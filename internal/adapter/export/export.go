// Package export writes the secondary per-second tabular output: the
// merged calibrated series without the fixed-width IAGA header, as CSV
// (the historical layout) or Parquet for columnar consumers.
package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/mag-data-etl/internal/domain"
)

// Format selects the tabular output encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat maps the configuration strings "csv" and "parquet".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", string(FormatCSV):
		return FormatCSV, nil
	case string(FormatParquet):
		return FormatParquet, nil
	default:
		return FormatCSV, fmt.Errorf("unknown export format %q (want \"csv\" or \"parquet\")", s)
	}
}

// Writer serializes assembled days under
// {root}/{station}/{year}/{station}_{YYYYMMDD}_s.{csv|parquet}.
type Writer struct {
	root   string
	format Format
	withF  bool
}

// NewWriter creates a Writer. withF adds the derived total-field column to
// the output alongside H, D, Z.
func NewWriter(root string, format Format, withF bool) *Writer {
	return &Writer{root: root, format: format, withF: withF}
}

// Write renders one assembled day, creating directories and overwriting
// existing output. The station metadata is unused: the tabular export
// carries no header block. Returns the path written.
func (w *Writer) Write(day domain.AssembledDay, _ domain.StationMetadata) (string, error) {
	path := w.FilePath(day.StationCode, day.Date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}

	switch w.format {
	case FormatParquet:
		err = writeParquet(f, day, w.withF)
	default:
		err = writeCSV(f, day, w.withF)
	}
	if err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// FilePath returns the deterministic output path for a station-day.
func (w *Writer) FilePath(stationCode string, date time.Time) string {
	code := domain.CanonicalStationCode(stationCode)
	return filepath.Join(w.root,
		code,
		strconv.Itoa(date.Year()),
		fmt.Sprintf("%s_%s_s.%s", code, date.Format("20060102"), w.format))
}

func writeCSV(f *os.File, day domain.AssembledDay, withF bool) error {
	cw := csv.NewWriter(f)

	header := []string{"time", "H", "D", "Z"}
	if withF {
		header = append(header, "F")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for sec, slot := range day.Slots {
		ts := day.Date.Add(time.Duration(sec) * time.Second)
		row := []string{
			ts.Format("2006-01-02 15:04:05"),
			csvValue(slot.Values.H, slot.Valid),
			csvValue(slot.Values.D, slot.Valid),
			csvValue(slot.Values.Z, slot.Valid),
		}
		if withF {
			row = append(row, csvValue(slot.Values.F, slot.Valid))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvValue renders a component at full precision, or an empty cell for
// missing and non-finite values.
func csvValue(v float64, valid bool) string {
	if !valid || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// secondRow is the Parquet schema for one per-second sample. Pointer
// fields map to optional columns; nil marks a missing second.
type secondRow struct {
	Time int64    `parquet:"time,timestamp"`
	H    *float64 `parquet:"h"`
	D    *float64 `parquet:"d"`
	Z    *float64 `parquet:"z"`
	F    *float64 `parquet:"f"`
}

func writeParquet(f *os.File, day domain.AssembledDay, withF bool) error {
	pw := parquet.NewGenericWriter[secondRow](f)

	rows := make([]secondRow, 0, domain.SecondsPerDay)
	for sec, slot := range day.Slots {
		ts := day.Date.Add(time.Duration(sec) * time.Second)
		row := secondRow{
			Time: ts.UnixMilli(),
			H:    parquetValue(slot.Values.H, slot.Valid),
			D:    parquetValue(slot.Values.D, slot.Valid),
			Z:    parquetValue(slot.Values.Z, slot.Valid),
		}
		if withF {
			row.F = parquetValue(slot.Values.F, slot.Valid)
		}
		rows = append(rows, row)
	}

	if _, err := pw.Write(rows); err != nil {
		return err
	}
	return pw.Close()
}

func parquetValue(v float64, valid bool) *float64 {
	if !valid || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
