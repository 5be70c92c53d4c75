// Package iaga renders assembled station-days into the IAGA-2002-like
// fixed-width interchange format used by the EMBRACE/INPE archive. Field
// widths, padding, and the missing-value sentinel are load-bearing: files
// produced here must be byte-identical to the historical pipeline's output.
package iaga

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/mag-data-etl/internal/domain"
)

// MissingSentinel is the literal rendered for a missing or non-finite value.
const MissingSentinel = "99999.999999"

// Writer serializes assembled days under a fixed output tree:
// {root}/{station}/{year}/{station}{YYYYMMDD}psec.sec.
type Writer struct {
	root string
}

// NewWriter creates a Writer rooted at the given output directory.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Write renders one assembled day and its station metadata to the output
// tree, creating intermediate directories and overwriting any existing file
// so re-runs are idempotent. Returns the path written.
func (w *Writer) Write(day domain.AssembledDay, station domain.StationMetadata) (string, error) {
	path := FilePath(w.root, day.StationCode, day.Date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}

	bw := bufio.NewWriterSize(f, 1<<16)
	if err := render(bw, day, station); err != nil {
		f.Close()
		return "", err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// FilePath returns the deterministic output path for a station-day.
func FilePath(root, stationCode string, date time.Time) string {
	code := domain.CanonicalStationCode(stationCode)
	return filepath.Join(root,
		code,
		strconv.Itoa(date.Year()),
		fmt.Sprintf("%s%spsec.sec", code, date.Format("20060102")))
}

func render(bw *bufio.Writer, day domain.AssembledDay, station domain.StationMetadata) error {
	if _, err := bw.WriteString(Header(day.StationCode, station) + "\n"); err != nil {
		return err
	}

	for sec, slot := range day.Slots {
		if _, err := bw.WriteString(DataLine(day.Date, sec, slot)); err != nil {
			return err
		}
	}
	return nil
}

// Header builds the fixed-width metadata block: key/value lines padded to a
// 24-character key prefix and a 50-character value field, pipe-terminated,
// followed by the literal commentary and the per-station column header.
// Longitudes are normalized to the 0-360 convention. "L-shel" is spelled as
// the archive spells it.
func Header(stationCode string, station domain.StationMetadata) string {
	code := strings.ToUpper(domain.CanonicalStationCode(stationCode))

	lon360 := station.GeoLon
	if lon360 < 0 {
		lon360 += 360
	}

	var b strings.Builder
	kv := func(key, value string) {
		fmt.Fprintf(&b, " %-23s%-50s|\n", key, value)
	}

	kv("Format", "IAGA-2002")
	kv("Source of Data", "EMBRACE/INPE")
	kv("Station Name", station.Name)
	kv("IAGA CODE", code)
	kv("Geodetic Latitude", fmt.Sprintf("%.2f", station.GeoLat))
	kv("Geodetic Longitude", fmt.Sprintf("%.2f", lon360))
	kv("Magnetic Latitude", fmt.Sprintf("%.2f", station.MagLat))
	kv("Magnetic Longitude", fmt.Sprintf("%.2f", station.MagLon))
	kv("L-shel", fmt.Sprintf("%.2f", station.LShell))
	kv("Elevation", "0018")
	kv("Reported", "HDZF")
	kv("Sensor Orientation", "HDZ")
	kv("Digital Sampling", "1 second")
	kv("Data Interval Type", "1-Second (instantaneous)")
	kv("Data Type", "provisional")

	b.WriteString(" # This data file was constructed by Embrace/INPE.                        |\n")
	b.WriteString(" # F is derived from the recorded spot values                             |\n")
	b.WriteString(" # and should be applied for quality check only.                          |\n")
	b.WriteString(" # DOI citation: https://doi.org/10.1002/2017RS006477                     |\n")
	b.WriteString(" # Final data will be available on the online.                            |\n")
	b.WriteString(" # Go to http://www.inpe.br/spaceweather for details on obtaining         |\n")
	b.WriteString(" # this product.                                                          |\n")

	fmt.Fprintf(&b, "DATE       TIME         DOY     %sH           %sD          %sZ          %sF     |",
		code, code, code, code)

	return b.String()
}

// DataLine renders one per-second row: timestamp with a fixed .000
// millisecond field, day-of-year without leading zeros left-justified to
// width 6, then H/D/Z/F at 6 decimal places right-justified in fields of
// width 12/14/14/14.
func DataLine(date time.Time, secondOfDay int, slot domain.Slot) string {
	ts := date.Add(time.Duration(secondOfDay) * time.Second)
	doy := strconv.Itoa(ts.YearDay())

	return fmt.Sprintf("%s %-6s%12s %14s %14s %14s\n",
		ts.Format("2006-01-02 15:04:05.000"),
		doy,
		FormatValue(slot.Values.H, slot.Valid),
		FormatValue(slot.Values.D, slot.Valid),
		FormatValue(slot.Values.Z, slot.Valid),
		FormatValue(slot.Values.F, slot.Valid),
	)
}

// FormatValue renders a component at 6 decimal places, or the missing
// sentinel for absent and non-finite values (downstream IAGA parsers cannot
// read Inf/NaN).
func FormatValue(v float64, valid bool) string {
	if !valid || math.IsNaN(v) || math.IsInf(v, 0) {
		return MissingSentinel
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
