package iaga_test

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/mag-data-etl/internal/adapter/iaga"
	"github.com/couchcryptid/mag-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStation() domain.StationMetadata {
	return domain.StationMetadata{
		Code:   "slz",
		Name:   "SLZ",
		GeoLon: -44.21,
		GeoLat: -2.59,
		MagLon: 27.44,
		MagLat: 2.33,
		LShell: 1.03,
	}
}

func testDate() time.Time {
	return time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)
}

func TestHeaderLinesAreFixedWidth(t *testing.T) {
	header := iaga.Header("slz", testStation())

	lines := strings.Split(header, "\n")
	require.Greater(t, len(lines), 1)

	// Metadata and comment lines are 75 columns; the trailing column header
	// is wider to cover the data-row layout.
	for i, line := range lines[:len(lines)-1] {
		assert.Len(t, line, 75, "line %d: %q", i, line)
		assert.True(t, strings.HasSuffix(line, "|"), "line %d: %q", i, line)
	}
	last := lines[len(lines)-1]
	assert.Len(t, last, 85, "column header: %q", last)
	assert.True(t, strings.HasSuffix(last, "|"))
}

func TestHeaderContent(t *testing.T) {
	header := iaga.Header("slz", testStation())

	assert.Contains(t, header, " Format                 IAGA-2002")
	assert.Contains(t, header, " Source of Data         EMBRACE/INPE")
	assert.Contains(t, header, " IAGA CODE              SLZ")
	assert.Contains(t, header, " Geodetic Latitude      -2.59")
	// Negative longitudes are reported on the 0-360 convention.
	assert.Contains(t, header, " Geodetic Longitude     315.79")
	assert.Contains(t, header, " L-shel                 1.03")
	assert.Contains(t, header, " Elevation              0018")
	assert.Contains(t, header, " Reported               HDZF")
	assert.Contains(t, header, "# DOI citation: https://doi.org/10.1002/2017RS006477")
	assert.Contains(t, header, "DATE       TIME         DOY     SLZH           SLZD          SLZZ          SLZF     |")
}

func TestHeaderKeepsPositiveLongitude(t *testing.T) {
	station := testStation()
	station.GeoLon = 27.5

	header := iaga.Header("slz", station)
	assert.Contains(t, header, " Geodetic Longitude     27.50")
}

func TestDataLineLayout(t *testing.T) {
	slot := domain.Slot{
		Values: domain.Converted{H: 22543.1, D: -11.4, Z: -1204.7, F: 22575.3},
		Valid:  true,
	}

	line := iaga.DataLine(testDate(), 13*3600+45*60+30, slot)

	assert.Equal(t,
		"2024-05-31 13:45:30.000 152   22543.100000     -11.400000   -1204.700000   22575.300000\n",
		line)
}

func TestDataLineMissingSlot(t *testing.T) {
	line := iaga.DataLine(testDate(), 0, domain.Slot{})

	assert.Equal(t,
		"2024-05-31 00:00:00.000 152   99999.999999   99999.999999   99999.999999   99999.999999\n",
		line)
}

func TestDataLineDOYHasNoLeadingZeros(t *testing.T) {
	jan2 := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	line := iaga.DataLine(jan2, 0, domain.Slot{})

	assert.True(t, strings.HasPrefix(line, "2024-01-02 00:00:00.000 2     "), "line: %q", line)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		v     float64
		valid bool
		want  string
	}{
		{"valid value", 123.456789, true, "123.456789"},
		{"missing slot", 123.4, false, iaga.MissingSentinel},
		{"NaN", math.NaN(), true, iaga.MissingSentinel},
		{"positive infinity", math.Inf(1), true, iaga.MissingSentinel},
		{"negative infinity", math.Inf(-1), true, iaga.MissingSentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, iaga.FormatValue(tt.v, tt.valid))
		})
	}
}

func TestFilePath(t *testing.T) {
	got := iaga.FilePath("/out", "SLZ", testDate())
	assert.Equal(t, filepath.Join("/out", "slz", "2024", "slz20240531psec.sec"), got)
}

func TestWriteProducesCompleteDayFile(t *testing.T) {
	root := t.TempDir()
	w := iaga.NewWriter(root)

	day := domain.Assemble("slz", testDate(), [][]domain.ConvertedSample{
		{{SecondOfDay: 0, Values: domain.Converted{H: 1, D: 2, Z: 3, F: 4}}},
	}, domain.CollisionLastWins)

	path, err := w.Write(day, testStation())
	require.NoError(t, err)
	assert.Equal(t, iaga.FilePath(root, "slz", testDate()), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	headerLines := strings.Count(iaga.Header("slz", testStation()), "\n") + 1
	assert.Len(t, lines, headerLines+domain.SecondsPerDay)

	// First data row carries the sample; the second is missing.
	first := lines[headerLines]
	assert.Contains(t, first, "2024-05-31 00:00:00.000")
	assert.Contains(t, first, "1.000000")
	assert.Contains(t, lines[headerLines+1], iaga.MissingSentinel)
}

func TestWriteRoundTripsValues(t *testing.T) {
	root := t.TempDir()
	w := iaga.NewWriter(root)

	want := domain.Converted{H: 22543.123456, D: -11.654321, Z: -1204.7, F: 22575.25}
	day := domain.Assemble("slz", testDate(), [][]domain.ConvertedSample{
		{{SecondOfDay: 10, Values: want}},
	}, domain.CollisionLastWins)

	path, err := w.Write(day, testStation())
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var row string
	for _, line := range strings.Split(string(content), "\n") {
		if strings.HasPrefix(line, "2024-05-31 00:00:10.000") {
			row = line
			break
		}
	}
	require.NotEmpty(t, row)

	fields := strings.Fields(row)
	require.Len(t, fields, 7) // date, time, doy, H, D, Z, F
	for i, wantVal := range []float64{want.H, want.D, want.Z, want.F} {
		got, err := strconv.ParseFloat(fields[3+i], 64)
		require.NoError(t, err)
		assert.InDelta(t, wantVal, got, 1e-6)
	}
}

func TestWriteIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w := iaga.NewWriter(root)
	day := domain.Assemble("slz", testDate(), nil, domain.CollisionLastWins)

	path1, err := w.Write(day, testStation())
	require.NoError(t, err)
	first, err := os.ReadFile(path1)
	require.NoError(t, err)

	path2, err := w.Write(day, testStation())
	require.NoError(t, err)
	second, err := os.ReadFile(path2)
	require.NoError(t, err)

	assert.Equal(t, path1, path2)
	assert.Equal(t, first, second)
}
