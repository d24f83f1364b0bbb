package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpulse/trophy-tracker/internal/usecase"
)

// sweepReport is what operators read after a scheduled run: the flagged
// records that need a follow-up fix job, plus the cache health on both sides
// of the sweep.
type sweepReport struct {
	GeneratedAt time.Time                    `json:"generated_at"`
	Requested   int                          `json:"requested"`
	Flagged     int                          `json:"flagged"`
	Errored     int                          `json:"errored"`
	StatsBefore usecase.CacheStats           `json:"stats_before"`
	StatsAfter  usecase.CacheStats           `json:"stats_after"`
	Issues      []usecase.RevalidationResult `json:"issues"`
}

func buildReport(
	generatedAt time.Time,
	results []usecase.RevalidationResult,
	before, after usecase.CacheStats,
) sweepReport {
	report := sweepReport{
		GeneratedAt: generatedAt,
		Requested:   len(results),
		StatsBefore: before,
		StatsAfter:  after,
		Issues:      make([]usecase.RevalidationResult, 0),
	}

	for _, result := range results {
		if result.Error != "" {
			report.Errored++
		}
		if result.NeedsUpdate || result.Error != "" {
			report.Issues = append(report.Issues, result)
		}
	}
	report.Flagged = len(report.Issues)

	return report
}

func writeReport(path string, report sweepReport) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}

	raw, err := sonic.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	raw = append(raw, '\n')

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
