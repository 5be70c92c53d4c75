// Package archive extracts typed hourly records from the zipped per-hour
// text files published by the station network. Pure parsing: no filesystem
// writes, no network.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/couchcryptid/mag-data-etl/internal/domain"
)

// ErrNoMatchingMember signals that a zip archive contains no member for the
// requested year. Structural: fatal for the archive, not for the run.
var ErrNoMatchingMember = errors.New("no matching member")

// columnHeaderMarker separates an archive member's free-text header from
// its data body.
const columnHeaderMarker = "HH MM SS"

// minTokensPerLine is the minimum field count of a usable data line:
// HH, MM, SS and the three channel columns.
const minTokensPerLine = 6

// maxLineErrorsToLog caps per-line parse diagnostics so a corrupt member
// cannot flood the log.
const maxLineErrorsToLog = 10

// ParseStats counts line-level outcomes for one archive member.
type ParseStats struct {
	RowsRead     int
	RowsParsed   int
	RowsSkipped  int
	HeaderLength int
}

// Extractor reads hourly records out of per-hour zip archives.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor that reports line-level diagnostics on
// the given logger.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ReadHourly opens the archive at path, selects the single member matching
// the requested year, and parses it into an HourlyRecord. The station code
// comes from the archive's basename (first three bytes, lowercased); the
// member's day-of-year, hour, and year come from its filename pattern
// {sta}{doy:3}{hh:2}.{yy}s. A member whose filename fails that pattern is a
// hard error: the record cannot be dated.
func (e *Extractor) ReadHourly(path string, year int) (domain.HourlyRecord, ParseStats, error) {
	var stats ParseStats

	station := stationFromArchivePath(path)
	if station == "" {
		return domain.HourlyRecord{}, stats, fmt.Errorf("archive %s: basename too short for a station code", path)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return domain.HourlyRecord{}, stats, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer r.Close()

	r.RegisterDecompressor(zip.Deflate, func(in io.Reader) io.ReadCloser {
		return flate.NewReader(in)
	})

	member, err := selectMember(&r.Reader, year)
	if err != nil {
		return domain.HourlyRecord{}, stats, fmt.Errorf("archive %s: %w", path, err)
	}

	doy, hour, memberYear, err := memberMetadata(member.Name, station)
	if err != nil {
		return domain.HourlyRecord{}, stats, fmt.Errorf("archive %s: %w", path, err)
	}

	f, err := member.Open()
	if err != nil {
		return domain.HourlyRecord{}, stats, fmt.Errorf("archive %s: open member %s: %w", path, member.Name, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.HourlyRecord{}, stats, fmt.Errorf("archive %s: read member %s: %w", path, member.Name, err)
	}

	header, samples := e.parseBody(string(content), path, &stats)
	stats.HeaderLength = len(header)

	rec := domain.HourlyRecord{
		StationCode: station,
		Year:        memberYear,
		DayOfYear:   doy,
		Hour:        hour,
		Samples:     samples,
		HeaderLines: header,
	}

	e.checkHourConsistency(rec, path)
	return rec, stats, nil
}

// selectMember picks the single data-bearing member whose name carries the
// two-digit year marker ("24S"/"24s" for 2024). Zero matches is an error;
// several matches deterministically yield the first, mirroring the archive
// convention of one member per file.
func selectMember(r *zip.Reader, year int) (*zip.File, error) {
	if len(r.File) == 0 {
		return nil, fmt.Errorf("%w: archive is empty", ErrNoMatchingMember)
	}

	marker := fmt.Sprintf("%02ds", year%100)
	for _, f := range r.File {
		if strings.Contains(strings.ToLower(f.Name), marker) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w for year %d", ErrNoMatchingMember, year)
}

// memberMetadata extracts day-of-year, hour, and year from a member name of
// the form {sta}{doy:3}{hh:2}.{yy}s, case-insensitively. The two-digit year
// suffix is assumed to be in the 21st century.
func memberMetadata(name, station string) (doy, hour, year int, err error) {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(station) + `(\d{3})(\d{2})\.(\d{2})s`)
	m := pattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("invalid member filename %q for station %s", name, station)
	}

	doy, _ = strconv.Atoi(m[1])
	hour, _ = strconv.Atoi(m[2])
	yy, _ := strconv.Atoi(m[3])
	return doy, hour, 2000 + yy, nil
}

// stationFromArchivePath derives the canonical station code from the
// archive filename's first three bytes.
func stationFromArchivePath(path string) string {
	base := filepath.Base(path)
	if len(base) < 3 {
		return ""
	}
	return domain.CanonicalStationCode(base[:3])
}

// parseBody splits a member's text into header lines and typed samples.
// Everything above the "HH MM SS" column-header line is opaque header;
// below it, each line is whitespace-split and parsed. Short or non-numeric
// lines are skipped with a counted diagnostic; a bad line drops one
// sample, never the record.
func (e *Extractor) parseBody(content, path string, stats *ParseStats) ([]string, []domain.Sample) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var header []string
	dataStart := 0
	for i, line := range lines {
		if strings.Contains(line, columnHeaderMarker) {
			dataStart = i + 1
			break
		}
		header = append(header, line)
	}
	if dataStart == 0 {
		// No column header found: treat the whole member as data-free.
		return header, nil
	}

	var samples []domain.Sample
	errorsLogged := 0
	for _, line := range lines[dataStart:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.RowsRead++

		sample, err := parseDataLine(line)
		if err != nil {
			stats.RowsSkipped++
			errorsLogged++
			if errorsLogged <= maxLineErrorsToLog {
				e.logger.Debug("skipping data line", "archive", path, "error", err)
			}
			continue
		}
		stats.RowsParsed++
		samples = append(samples, sample)
	}
	if errorsLogged > maxLineErrorsToLog {
		e.logger.Debug("further data line errors suppressed", "archive", path,
			"suppressed", errorsLogged-maxLineErrorsToLog)
	}

	return header, samples
}

// parseDataLine parses one whitespace-delimited row: HH MM SS H D Z with
// optional T1 and T2 trailing columns. Absent temperature channels become
// NaN, an explicit missing value rather than zero.
func parseDataLine(line string) (domain.Sample, error) {
	parts := strings.Fields(line)
	if len(parts) < minTokensPerLine {
		return domain.Sample{}, fmt.Errorf("short line: %d of %d tokens", len(parts), minTokensPerLine)
	}

	var (
		s   domain.Sample
		err error
	)
	if s.HH, err = strconv.Atoi(parts[0]); err != nil {
		return domain.Sample{}, fmt.Errorf("bad HH %q", parts[0])
	}
	if s.MM, err = strconv.Atoi(parts[1]); err != nil {
		return domain.Sample{}, fmt.Errorf("bad MM %q", parts[1])
	}
	if s.SS, err = strconv.Atoi(parts[2]); err != nil {
		return domain.Sample{}, fmt.Errorf("bad SS %q", parts[2])
	}
	if s.H, err = strconv.ParseFloat(parts[3], 64); err != nil {
		return domain.Sample{}, fmt.Errorf("bad H channel %q", parts[3])
	}
	if s.D, err = strconv.ParseFloat(parts[4], 64); err != nil {
		return domain.Sample{}, fmt.Errorf("bad D channel %q", parts[4])
	}
	if s.Z, err = strconv.ParseFloat(parts[5], 64); err != nil {
		return domain.Sample{}, fmt.Errorf("bad Z channel %q", parts[5])
	}

	s.T1 = math.NaN()
	s.T2 = math.NaN()
	if len(parts) > 6 {
		if v, err := strconv.ParseFloat(parts[6], 64); err == nil {
			s.T1 = v
		}
	}
	if len(parts) > 7 {
		if v, err := strconv.ParseFloat(parts[7], 64); err == nil {
			s.T2 = v
		}
	}

	return s, nil
}

// checkHourConsistency warns when sample HH values disagree with the hour
// declared in the member filename. Data-quality signal only, never fatal.
func (e *Extractor) checkHourConsistency(rec domain.HourlyRecord, path string) {
	for _, s := range rec.Samples {
		if s.HH != rec.Hour {
			e.logger.Warn("sample hour differs from member filename hour",
				"archive", path, "filename_hour", rec.Hour, "sample_hour", s.HH)
			return
		}
	}
}
