package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/matchpulse/trophy-tracker/internal/app"
	"github.com/matchpulse/trophy-tracker/internal/config"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
	"github.com/matchpulse/trophy-tracker/internal/usecase"
)

func main() {
	var (
		idsFlag    = flag.String("ids", "", "comma-separated league IDs to revalidate; default is every due record")
		reportPath = flag.String("report", "reports/revalidation_issues.json", "where to write the sweep report")
		timeout    = flag.Duration("timeout", 10*time.Minute, "overall sweep deadline")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	services, cleanup, err := app.BuildServices(cfg, logger)
	if err != nil {
		logger.Error("build services", "error", err)
		os.Exit(1)
	}
	defer func() { _ = cleanup() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := runSweep(ctx, services.Revalidation, logger, *idsFlag, *reportPath, cfg.RevalidationMaxConcurrent); err != nil {
		logger.Error("revalidation sweep failed", "error", err)
		os.Exit(1)
	}
}

func runSweep(
	ctx context.Context,
	revalidation *usecase.RevalidationService,
	logger *logging.Logger,
	idsFlag, reportPath string,
	maxConcurrent int,
) error {
	var (
		statsBefore usecase.CacheStats
		due         []usecase.DueRecord
		statsErr    error
		dueErr      error
	)

	var wg conc.WaitGroup
	wg.Go(func() { statsBefore, statsErr = revalidation.GetCacheStats(ctx) })
	wg.Go(func() { due, dueErr = revalidation.ScanDue(ctx) })
	wg.Wait()
	if statsErr != nil {
		return fmt.Errorf("cache stats before sweep: %w", statsErr)
	}
	if dueErr != nil {
		return fmt.Errorf("scan due records: %w", dueErr)
	}

	ids, err := parseLeagueIDs(idsFlag)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		for _, record := range due {
			ids = append(ids, record.LeagueID)
		}
	}

	logger.InfoContext(ctx, "revalidation sweep starting",
		"requested", len(ids),
		"due", statsBefore.Due,
		"total", statsBefore.Total,
		"max_concurrent", maxConcurrent,
	)

	if len(ids) == 0 {
		logger.InfoContext(ctx, "nothing to revalidate")
		return nil
	}

	results, err := revalidation.BatchRevalidate(ctx, ids, maxConcurrent)
	if err != nil {
		return fmt.Errorf("batch revalidate: %w", err)
	}

	statsAfter, err := revalidation.GetCacheStats(ctx)
	if err != nil {
		return fmt.Errorf("cache stats after sweep: %w", err)
	}

	report := buildReport(time.Now().UTC(), results, statsBefore, statsAfter)
	if err := writeReport(reportPath, report); err != nil {
		return err
	}

	logger.InfoContext(ctx, "revalidation sweep finished",
		"requested", report.Requested,
		"flagged", report.Flagged,
		"errored", report.Errored,
		"report", reportPath,
	)
	return nil
}

func parseLeagueIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid league id %q", item)
		}
		out = append(out, id)
	}
	return out, nil
}
