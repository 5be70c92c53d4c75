// Command convert runs the batch conversion: raw hourly magnetometer
// archives in, calibrated IAGA-2002 one-second day files out.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/mag-data-etl/internal/adapter/archive"
	httpadapter "github.com/couchcryptid/mag-data-etl/internal/adapter/http"
	"github.com/couchcryptid/mag-data-etl/internal/adapter/iaga"
	"github.com/couchcryptid/mag-data-etl/internal/adapter/table"
	"github.com/couchcryptid/mag-data-etl/internal/config"
	"github.com/couchcryptid/mag-data-etl/internal/domain"
	"github.com/couchcryptid/mag-data-etl/internal/observability"
	"github.com/couchcryptid/mag-data-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	writer := iaga.NewWriter(cfg.OutputPath)
	if code := run(cfg, logger, metrics, writer); code != 0 {
		os.Exit(code)
	}
}

// run wires the pipeline and executes it to completion.
func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, writer pipeline.DayWriter) int {
	slopes, err := table.LoadSlopeOffsets(cfg.SlopeOffsetTablePath())
	if err != nil {
		logger.Error("failed to load slope/offset table", "path", cfg.SlopeOffsetTablePath(), "error", err)
		return 1
	}
	scalings, err := table.LoadScalings(cfg.ScalingTablePath())
	if err != nil {
		logger.Error("failed to load scaling table", "path", cfg.ScalingTablePath(), "error", err)
		return 1
	}
	stations, err := table.LoadStations(cfg.StationTablePath())
	if err != nil {
		logger.Error("failed to load station table", "path", cfg.StationTablePath(), "error", err)
		return 1
	}

	policy, err := domain.ParseCollisionPolicy(cfg.CollisionPolicy)
	if err != nil {
		logger.Error("invalid collision policy", "error", err)
		return 1
	}

	calib := domain.NewCalibrationStore(slopes, scalings)
	transformer := pipeline.NewTransformer(archive.NewExtractor(logger), calib, logger)
	runner := pipeline.NewRunner(transformer, stations, writer, logger, metrics, policy, cfg.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, runner, runner, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	units := pipeline.BuildUnits(cfg.DataPath, pipeline.UnitSpec{
		Stations:  cfg.Stations,
		YearStart: cfg.YearStart,
		YearEnd:   cfg.YearEnd,
		DOYStart:  cfg.DOYStart,
		DOYEnd:    cfg.DOYEnd,
	}, logger)

	report := runner.Run(ctx, units)

	if err := report.WriteLogFile(cfg.RunLogPath); err != nil {
		logger.Error("failed to write run log", "path", cfg.RunLogPath, "error", err)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("conversion complete",
		"days_written", report.DaysWritten(),
		"archives_ok", report.ArchivesOK(),
		"archives_failed", report.ArchivesFailed(),
	)
	return 0
}
