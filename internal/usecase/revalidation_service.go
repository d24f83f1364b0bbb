package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

const (
	methodScheduledRevalidation = "scheduled_revalidation"
	methodErrorRecovery         = "error_recovery"

	defaultMaxConcurrent = 3
	defaultChunkDelay    = 500 * time.Millisecond
)

// RevalidationReason explains why a record was flagged for correction.
type RevalidationReason string

const (
	ReasonHasUpcomingMatches RevalidationReason = "HAS_UPCOMING_MATCHES"
	ReasonWrongWinner        RevalidationReason = "WRONG_WINNER"
	ReasonValidationFailed   RevalidationReason = "VALIDATION_FAILED"
)

// RevalidationResult is the outcome of re-checking a single record.
type RevalidationResult struct {
	LeagueID                 int64                 `json:"league_id"`
	Name                     string                `json:"name,omitempty"`
	NeedsUpdate              bool                  `json:"needs_update"`
	ShouldRemoveFromFinished bool                  `json:"should_remove_from_finished,omitempty"`
	Reason                   RevalidationReason    `json:"reason,omitempty"`
	Verdict                  Verdict               `json:"verdict,omitempty"`
	Confidence               tournament.Confidence `json:"confidence,omitempty"`
	NextCheck                string                `json:"next_check,omitempty"`
	ChecksPerformed          int                   `json:"checks_performed,omitempty"`
	Error                    string                `json:"error,omitempty"`
	DurationMs               int64                 `json:"duration_ms"`
}

// DueRecord is one row of the due-scan summary.
type DueRecord struct {
	LeagueID   int64                 `json:"league_id"`
	Name       string                `json:"name"`
	Year       int                   `json:"year"`
	NextCheck  string                `json:"next_check,omitempty"`
	Confidence tournament.Confidence `json:"confidence,omitempty"`
	State      tournament.State      `json:"state"`
}

// CacheStats summarizes the cache for monitoring: how much of it is still
// fresh and how many provider calls the cache has absorbed so far.
type CacheStats struct {
	Total           int                           `json:"total"`
	Due             int                           `json:"due"`
	Fresh           int                           `json:"fresh"`
	NeverChecked    int                           `json:"never_checked"`
	Errored         int                           `json:"errored"`
	NeedsCorrection int                           `json:"needs_correction"`
	HitRate         float64                       `json:"hit_rate"`
	ByConfidence    map[tournament.Confidence]int `json:"by_confidence"`
	ChecksPerformed int                           `json:"checks_performed"`
	APICallsSaved   int                           `json:"api_calls_saved"`
}

// RevalidationConfig tunes the batch behaviour of the orchestrator.
type RevalidationConfig struct {
	MaxConcurrent int
	ChunkDelay    time.Duration
}

// RevalidationService decides when cached winners must be re-checked and
// applies the validation outcome back onto the store.
type RevalidationService struct {
	records   tournament.Repository
	provider  FootballProvider
	validator *Validator
	logger    *logging.Logger
	cfg       RevalidationConfig
	now       func() time.Time
}

func NewRevalidationService(
	records tournament.Repository,
	provider FootballProvider,
	validator *Validator,
	cfg RevalidationConfig,
	logger *logging.Logger,
) *RevalidationService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = defaultChunkDelay
	}

	return &RevalidationService{
		records:   records,
		provider:  provider,
		validator: validator,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// NeedsRevalidation reports whether the record is due on the current day.
func (s *RevalidationService) NeedsRevalidation(ctx context.Context, leagueID int64) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RevalidationService.NeedsRevalidation")
	defer span.End()

	record, err := s.records.Get(ctx, leagueID)
	if err != nil {
		return false, err
	}
	return record.IsDue(tournament.DateOnly(s.now())), nil
}

// RevalidateOne re-checks a single record end to end:
//
//  1. tournaments with upcoming fixtures are flagged for removal from the
//     finished set and their validation metadata is left untouched,
//  2. otherwise the validator scores the stored winner and the validation
//     block is refreshed from the verdict,
//  3. provider failures degrade the record to low confidence with the error
//     preserved instead of propagating.
//
// An id with no cached record is a no-op. The returned error is reserved for
// store failures; everything else lands in the result so batches keep going.
func (s *RevalidationService) RevalidateOne(ctx context.Context, leagueID int64) (RevalidationResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RevalidationService.RevalidateOne")
	defer span.End()

	started := s.now()
	record, err := s.records.Get(ctx, leagueID)
	if errors.Is(err, tournament.ErrRecordNotFound) {
		// Unknown ids are a no-op: the sweep may race a removal, and there is
		// nothing to degrade or persist for a record that is not cached.
		s.logger.WarnContext(ctx, "revalidation requested for unknown record", "league_id", leagueID)
		return RevalidationResult{LeagueID: leagueID}, nil
	}
	if err != nil {
		return RevalidationResult{}, err
	}

	result := RevalidationResult{
		LeagueID: record.ID,
		Name:     record.Name,
	}
	defer func() {
		result.DurationMs = time.Since(started).Milliseconds()
	}()

	today := tournament.DateOnly(started)

	upcoming, err := s.provider.GetUpcomingFixtures(ctx, record.ID, record.Year, 1)
	if err != nil {
		return s.recordFailure(ctx, record, result, today, err)
	}
	if len(upcoming) > 0 {
		// The tournament resumed: it does not belong in the finished cache.
		// The validation block stays as-is so history survives the removal
		// decision being made elsewhere.
		result.NeedsUpdate = true
		result.ShouldRemoveFromFinished = true
		result.Reason = ReasonHasUpcomingMatches
		record.ShouldRemoveFromFinished = true
		if err := s.records.Set(ctx, record); err != nil {
			return RevalidationResult{}, fmt.Errorf("persist removal flag league_id=%d: %w", record.ID, err)
		}
		s.logger.InfoContext(ctx, "tournament has upcoming fixtures, flagged for removal",
			"league_id", record.ID, "upcoming", len(upcoming))
		return result, nil
	}

	report, err := s.validator.ValidateRecord(ctx, record)
	if err != nil {
		return s.recordFailure(ctx, record, result, today, err)
	}

	confidence := confidenceForVerdict(report.Verdict, record)
	validation := record.Validation
	if validation == nil {
		validation = &tournament.Validation{}
	}
	validation.LastChecked = today
	validation.Confidence = confidence
	validation.NextCheck = tournament.NextCheckDate(started, confidence)
	validation.Method = methodScheduledRevalidation
	validation.ChecksPerformed++
	validation.LastError = ""
	record.Validation = validation

	if err := s.records.Set(ctx, record); err != nil {
		return RevalidationResult{}, fmt.Errorf("persist validation league_id=%d: %w", record.ID, err)
	}

	result.Verdict = report.Verdict
	result.Confidence = confidence
	result.NextCheck = validation.NextCheck
	result.ChecksPerformed = validation.ChecksPerformed
	if report.Verdict == VerdictFailed {
		result.NeedsUpdate = true
		if report.WrongWinnerSuspected {
			result.Reason = ReasonWrongWinner
		} else {
			result.Reason = ReasonValidationFailed
		}
	}

	s.logger.InfoContext(ctx, "record revalidated",
		"league_id", record.ID,
		"verdict", string(report.Verdict),
		"confidence", string(confidence),
		"next_check", validation.NextCheck,
	)
	return result, nil
}

// recordFailure applies the error-recovery policy: degrade to low confidence
// so the record comes back soon, keep the error text, and report success to
// the batch.
func (s *RevalidationService) recordFailure(
	ctx context.Context,
	record tournament.Record,
	result RevalidationResult,
	today string,
	cause error,
) (RevalidationResult, error) {
	validation := record.Validation
	if validation == nil {
		validation = &tournament.Validation{}
	}
	validation.LastChecked = today
	validation.Confidence = tournament.ConfidenceLow
	validation.NextCheck = tournament.NextCheckDate(s.now(), tournament.ConfidenceLow)
	// ChecksPerformed counts completed validations only; a degraded attempt
	// is not one.
	validation.Method = methodErrorRecovery
	validation.LastError = cause.Error()
	record.Validation = validation

	if err := s.records.Set(ctx, record); err != nil {
		return RevalidationResult{}, fmt.Errorf("persist error recovery league_id=%d: %w", record.ID, err)
	}

	result.Confidence = tournament.ConfidenceLow
	result.NextCheck = validation.NextCheck
	result.ChecksPerformed = validation.ChecksPerformed
	result.Error = cause.Error()

	s.logger.WarnContext(ctx, "revalidation degraded to error recovery",
		"league_id", record.ID, "error", cause)
	return result, nil
}

// BatchRevalidate re-checks the given records in chunks of maxConcurrent.
// Chunks run sequentially with a short pause in between to stay inside the
// provider's rate limits; within a chunk records run on a worker pool.
// Results come back in input order and one record failing never aborts the
// batch.
func (s *RevalidationService) BatchRevalidate(ctx context.Context, leagueIDs []int64, maxConcurrent int) ([]RevalidationResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RevalidationService.BatchRevalidate")
	defer span.End()

	if len(leagueIDs) == 0 {
		return []RevalidationResult{}, nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = s.cfg.MaxConcurrent
	}

	pool, err := ants.NewPool(maxConcurrent)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]RevalidationResult, len(leagueIDs))
	for start := 0; start < len(leagueIDs); start += maxConcurrent {
		end := start + maxConcurrent
		if end > len(leagueIDs) {
			end = len(leagueIDs)
		}

		var workers sync.WaitGroup
		for offset, leagueID := range leagueIDs[start:end] {
			index := start + offset
			leagueID := leagueID
			workers.Add(1)
			task := func() {
				defer workers.Done()

				row, err := s.RevalidateOne(ctx, leagueID)
				if err != nil {
					row = RevalidationResult{
						LeagueID: leagueID,
						Error:    err.Error(),
					}
				}
				results[index] = row
			}
			if err := pool.Submit(task); err != nil {
				// Pool rejection falls back to inline execution so the slot
				// is never silently dropped.
				task()
			}
		}
		workers.Wait()

		if end < len(leagueIDs) {
			timer := time.NewTimer(s.cfg.ChunkDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return results, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return results, nil
}

// ScanDue lists the records that must be re-checked today, in ascending
// league-id order, without mutating anything.
func (s *RevalidationService) ScanDue(ctx context.Context) ([]DueRecord, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RevalidationService.ScanDue")
	defer span.End()

	records, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}

	today := tournament.DateOnly(s.now())
	out := make([]DueRecord, 0, len(records))
	for _, record := range records {
		if !record.IsDue(today) {
			continue
		}
		row := DueRecord{
			LeagueID: record.ID,
			Name:     record.Name,
			Year:     record.Year,
			State:    record.StateOn(today),
		}
		if record.Validation != nil {
			row.NextCheck = record.Validation.NextCheck
			row.Confidence = record.Validation.Confidence
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].LeagueID < out[j].LeagueID })
	return out, nil
}

// GetCacheStats derives the cache health summary for the current day.
func (s *RevalidationService) GetCacheStats(ctx context.Context) (CacheStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RevalidationService.GetCacheStats")
	defer span.End()

	records, err := s.records.List(ctx)
	if err != nil {
		return CacheStats{}, err
	}

	today := tournament.DateOnly(s.now())
	stats := CacheStats{
		ByConfidence: make(map[tournament.Confidence]int, 4),
	}
	for _, record := range records {
		stats.Total++
		switch record.StateOn(today) {
		case tournament.StateNeverChecked:
			stats.NeverChecked++
			stats.Due++
		case tournament.StateDue:
			stats.Due++
		case tournament.StateError:
			stats.Errored++
			if record.IsDue(today) {
				stats.Due++
			} else {
				stats.Fresh++
			}
		case tournament.StateNeedsCorrection:
			stats.NeedsCorrection++
		default:
			stats.Fresh++
		}
		if record.Validation != nil {
			stats.ByConfidence[record.Validation.Confidence]++
			stats.ChecksPerformed += record.Validation.ChecksPerformed
		}
	}

	if stats.Total > 0 {
		stats.HitRate = float64(stats.Fresh) / float64(stats.Total)
	}
	// Every fresh record is a lookup the cache answers without touching the
	// provider today.
	stats.APICallsSaved = stats.Fresh

	return stats, nil
}

// confidenceForVerdict consolidates the verdict-to-tier mapping. A verified
// record that keeps passing stays verified instead of being demoted to high.
func confidenceForVerdict(verdict Verdict, record tournament.Record) tournament.Confidence {
	switch verdict {
	case VerdictPassed:
		if record.Validation != nil && record.Validation.Confidence == tournament.ConfidenceVerified {
			return tournament.ConfidenceVerified
		}
		return tournament.ConfidenceHigh
	case VerdictWarning:
		return tournament.ConfidenceMedium
	default:
		return tournament.ConfidenceLow
	}
}
