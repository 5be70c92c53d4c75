package pipeline

import (
	"errors"
	"log/slog"

	"github.com/couchcryptid/mag-data-etl/internal/adapter/archive"
	"github.com/couchcryptid/mag-data-etl/internal/domain"
)

// FailureReason categorizes why an hourly archive was skipped.
type FailureReason string

const (
	// ReasonStructural covers unreadable archives, missing members, and
	// filenames that fail the naming pattern.
	ReasonStructural FailureReason = "structural"
	// ReasonCalibration means no calibration record was in force for the
	// station-date, so no conversion is possible.
	ReasonCalibration FailureReason = "calibration"
	// ReasonWrite covers output serialization failures at the unit level.
	ReasonWrite FailureReason = "write"
)

// classifyFailure maps an archive-processing error to its taxonomy bucket.
func classifyFailure(err error) FailureReason {
	if errors.Is(err, domain.ErrNoCalibration) {
		return ReasonCalibration
	}
	return ReasonStructural
}

// Transformer turns one hourly archive into a calibrated, second-stamped
// sample series: extract, resolve calibration as of the unit's date,
// convert.
type Transformer struct {
	extractor *archive.Extractor
	calib     *domain.CalibrationStore
	logger    *slog.Logger
}

// NewTransformer creates a Transformer over a read-only calibration store.
func NewTransformer(extractor *archive.Extractor, calib *domain.CalibrationStore, logger *slog.Logger) *Transformer {
	return &Transformer{
		extractor: extractor,
		calib:     calib,
		logger:    logger,
	}
}

// Transform processes a single archive for a unit. Errors are per-archive:
// the caller records the outcome and moves on to the next hour.
func (t *Transformer) Transform(path string, unit Unit) ([]domain.ConvertedSample, archive.ParseStats, error) {
	rec, stats, err := t.extractor.ReadHourly(path, unit.Year)
	if err != nil {
		return nil, stats, err
	}

	slope, scaling, err := t.calib.Resolve(rec.StationCode, unit.Date())
	if err != nil {
		return nil, stats, err
	}

	t.logger.Debug("archive transformed", "archive", path,
		"rows_parsed", stats.RowsParsed, "rows_skipped", stats.RowsSkipped)
	return domain.ConvertRecord(slope, scaling, rec), stats, nil
}
