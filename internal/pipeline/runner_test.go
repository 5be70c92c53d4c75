package pipeline_test

import (
	"archive/zip"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/mag-data-etl/internal/adapter/archive"
	"github.com/couchcryptid/mag-data-etl/internal/adapter/iaga"
	"github.com/couchcryptid/mag-data-etl/internal/domain"
	"github.com/couchcryptid/mag-data-etl/internal/observability"
	"github.com/couchcryptid/mag-data-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeArchive builds a zip with a single member.
func writeArchive(t *testing.T, path, memberName, body string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create(memberName)
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func memberBody(hour int) string {
	var b strings.Builder
	b.WriteString("Station: SLZ\nHH MM SS\n")
	for ss := 0; ss < 3; ss++ {
		fmt.Fprintf(&b, "%02d 00 %02d 100 200 300\n", hour, ss)
	}
	return b.String()
}

func testCalibration() *domain.CalibrationStore {
	return domain.NewCalibrationStore(
		[]domain.SlopeOffset{{
			StationCode: "SLZ",
			ValidFrom:   time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
			LS:          1,
		}},
		[]domain.Scaling{{
			StationCode: "SLZ",
			ValidFrom:   time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
			Hs:          1, Hb: 1, Ds: 1, Db: 0, Zs: 1, Zb: 0,
		}},
	)
}

func newRunner(t *testing.T, writer pipeline.DayWriter, policy domain.CollisionPolicy, workers int) *pipeline.Runner {
	t.Helper()
	logger := slog.Default()
	transformer := pipeline.NewTransformer(archive.NewExtractor(logger), testCalibration(), logger)
	return pipeline.NewRunner(transformer, domain.StationTable{}, writer, logger,
		observability.NewMetricsForTesting(), policy, workers)
}

func TestRunConvertsStationDayEndToEnd(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "2024", "SLZ")
	writeArchive(t, filepath.Join(dataDir, "slz15200.zip"), "slz15200.24s", memberBody(0))
	writeArchive(t, filepath.Join(dataDir, "slz15213.zip"), "slz15213.24s", memberBody(13))

	outDir := t.TempDir()
	runner := newRunner(t, iaga.NewWriter(outDir), domain.CollisionLastWins, 2)

	units := []pipeline.Unit{{StationCode: "slz", Dir: dataDir, Year: 2024, DayOfYear: 152}}
	report := runner.Run(context.Background(), units)

	require.Len(t, report.Units, 1)
	res := report.Units[0]
	require.NoError(t, res.Err)
	assert.Equal(t, 2, report.ArchivesOK())
	assert.Equal(t, 0, report.ArchivesFailed())
	assert.Equal(t, domain.SecondsPerDay-6, res.MissingSlots)

	content, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	// H = ((100*1)/1)+1 for the calibrated seconds.
	assert.Contains(t, string(content), "2024-05-31 00:00:00.000 152     101.000000")
	assert.Contains(t, string(content), "2024-05-31 13:00:00.000 152     101.000000")
}

func TestRunZeroArchivesWritesAllMissingDay(t *testing.T) {
	outDir := t.TempDir()
	runner := newRunner(t, iaga.NewWriter(outDir), domain.CollisionLastWins, 1)

	units := []pipeline.Unit{{
		StationCode: "slz",
		Dir:         filepath.Join(t.TempDir(), "absent"),
		Year:        2024,
		DayOfYear:   152,
	}}
	report := runner.Run(context.Background(), units)

	require.Len(t, report.Units, 1)
	res := report.Units[0]
	require.NoError(t, res.Err)
	assert.Equal(t, domain.SecondsPerDay, res.MissingSlots)
	assert.FileExists(t, res.OutputPath)
}

func TestRunSkipsBadArchivesAndKeepsGoodOnes(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "2024", "SLZ")
	writeArchive(t, filepath.Join(dataDir, "slz15200.zip"), "slz15200.24s", memberBody(0))
	// Not a zip at all: structural failure for that hour only.
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "slz15201.zip"), []byte("garbage"), 0o644))

	outDir := t.TempDir()
	runner := newRunner(t, iaga.NewWriter(outDir), domain.CollisionLastWins, 1)

	units := []pipeline.Unit{{StationCode: "slz", Dir: dataDir, Year: 2024, DayOfYear: 152}}
	report := runner.Run(context.Background(), units)

	require.Len(t, report.Units, 1)
	res := report.Units[0]
	require.NoError(t, res.Err)
	assert.Equal(t, 1, report.ArchivesOK())
	assert.Equal(t, 1, report.ArchivesFailed())
	assert.FileExists(t, res.OutputPath)

	require.Len(t, res.Archives, 2)
	assert.Equal(t, pipeline.ReasonStructural, res.Archives[1].Reason)
}

func TestRunMissingCalibrationSkipsArchive(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "2024", "VSS")
	writeArchive(t, filepath.Join(dataDir, "vss15200.zip"), "vss15200.24s", memberBody(0))

	outDir := t.TempDir()
	runner := newRunner(t, iaga.NewWriter(outDir), domain.CollisionLastWins, 1)

	units := []pipeline.Unit{{StationCode: "vss", Dir: dataDir, Year: 2024, DayOfYear: 152}}
	report := runner.Run(context.Background(), units)

	require.Len(t, report.Units, 1)
	res := report.Units[0]
	require.NoError(t, res.Err)
	require.Len(t, res.Archives, 1)
	assert.Equal(t, pipeline.ReasonCalibration, res.Archives[0].Reason)
	assert.ErrorIs(t, res.Archives[0].Err, domain.ErrNoCalibration)

	// The day file still exists, fully missing.
	assert.Equal(t, domain.SecondsPerDay, res.MissingSlots)
	assert.FileExists(t, res.OutputPath)
}

type failingWriter struct{}

func (failingWriter) Write(domain.AssembledDay, domain.StationMetadata) (string, error) {
	return "", fmt.Errorf("disk full")
}

func TestRunReportsWriteFailureAsUnitError(t *testing.T) {
	runner := newRunner(t, failingWriter{}, domain.CollisionLastWins, 1)

	units := []pipeline.Unit{{StationCode: "slz", Year: 2024, DayOfYear: 152}}
	report := runner.Run(context.Background(), units)

	require.Len(t, report.Units, 1)
	assert.True(t, report.Units[0].Failed())
	assert.Equal(t, 0, report.DaysWritten())
}

func TestRunCancelledContextStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newRunner(t, iaga.NewWriter(t.TempDir()), domain.CollisionLastWins, 1)
	units := []pipeline.Unit{
		{StationCode: "slz", Year: 2024, DayOfYear: 1},
		{StationCode: "slz", Year: 2024, DayOfYear: 2},
	}

	report := runner.Run(ctx, units)
	assert.Empty(t, report.Units)
}

func TestRunnerProgressAndReadiness(t *testing.T) {
	runner := newRunner(t, iaga.NewWriter(t.TempDir()), domain.CollisionLastWins, 1)

	assert.Error(t, runner.CheckReadiness(context.Background()))

	units := []pipeline.Unit{{StationCode: "slz", Year: 2024, DayOfYear: 152}}
	runner.Run(context.Background(), units)

	assert.NoError(t, runner.CheckReadiness(context.Background()))
	completed, total := runner.Progress()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, total)
}

func TestRunReportTimestampsUseInjectedClock(t *testing.T) {
	fixed := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	defer domain.SetClock(nil)

	runner := newRunner(t, iaga.NewWriter(t.TempDir()), domain.CollisionLastWins, 1)
	report := runner.Run(context.Background(), nil)

	assert.Equal(t, fixed, report.StartedAt)
	assert.Equal(t, fixed, report.FinishedAt)
}

func TestRunManyUnitsAcrossWorkers(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "2024", "SLZ")
	for doy := 1; doy <= 8; doy++ {
		writeArchive(t,
			filepath.Join(dataDir, fmt.Sprintf("slz%03d00.zip", doy)),
			fmt.Sprintf("slz%03d00.24s", doy),
			memberBody(0))
	}

	outDir := t.TempDir()
	runner := newRunner(t, iaga.NewWriter(outDir), domain.CollisionLastWins, 4)

	var units []pipeline.Unit
	for doy := 1; doy <= 8; doy++ {
		units = append(units, pipeline.Unit{StationCode: "slz", Dir: dataDir, Year: 2024, DayOfYear: doy})
	}

	report := runner.Run(context.Background(), units)
	assert.Len(t, report.Units, 8)
	assert.Equal(t, 8, report.DaysWritten())
	assert.Equal(t, 8, report.ArchivesOK())
}
