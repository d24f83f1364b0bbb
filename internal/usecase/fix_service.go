package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

const (
	fixDetectedBy = "auto-fix-validation"

	defaultFixDelay = 300 * time.Millisecond
)

// Issue is one flagged record handed to the correction step, usually taken
// from a revalidation sweep report.
type Issue struct {
	LeagueID int64              `json:"league_id"`
	Name     string             `json:"name,omitempty"`
	Reason   RevalidationReason `json:"reason"`
}

// FixOutcome describes what the correction step did for one issue.
type FixOutcome struct {
	LeagueID int64  `json:"league_id"`
	Action   string `json:"action"`
	Detail   string `json:"detail,omitempty"`
	Error    string `json:"error,omitempty"`
}

const (
	FixActionRemoved   = "removed"
	FixActionCorrected = "corrected"
	FixActionUnchanged = "unchanged"
	FixActionFailed    = "failed"
)

// FixService applies corrections for flagged records. It is a deliberate,
// separate step: validation only ever observes, this is the one place that
// rewrites winners or evicts records.
type FixService struct {
	records  tournament.Repository
	detector *Detector
	logger   *logging.Logger
	delay    time.Duration
	now      func() time.Time
}

func NewFixService(records tournament.Repository, detector *Detector, logger *logging.Logger) *FixService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FixService{
		records:  records,
		detector: detector,
		logger:   logger,
		delay:    defaultFixDelay,
		now:      time.Now,
	}
}

// ApplyCorrections walks the issues one by one with a small pause between
// provider-touching fixes. A failing fix is reported in its outcome and the
// remaining issues still run.
func (s *FixService) ApplyCorrections(ctx context.Context, issues []Issue) ([]FixOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixService.ApplyCorrections")
	defer span.End()

	out := make([]FixOutcome, 0, len(issues))
	for i, issue := range issues {
		outcome := s.applyOne(ctx, issue)
		out = append(out, outcome)

		if i == len(issues)-1 {
			break
		}
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return out, ctx.Err()
		case <-timer.C:
		}
	}
	return out, nil
}

func (s *FixService) applyOne(ctx context.Context, issue Issue) FixOutcome {
	outcome := FixOutcome{LeagueID: issue.LeagueID}

	switch issue.Reason {
	case ReasonHasUpcomingMatches:
		if err := s.records.Delete(ctx, issue.LeagueID); err != nil {
			outcome.Action = FixActionFailed
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Action = FixActionRemoved
		outcome.Detail = "tournament resumed, removed from finished set"
		s.logger.InfoContext(ctx, "removed resumed tournament", "league_id", issue.LeagueID)
		return outcome

	case ReasonWrongWinner, ReasonValidationFailed:
		return s.correctWinner(ctx, issue)

	default:
		outcome.Action = FixActionUnchanged
		outcome.Detail = fmt.Sprintf("no fix registered for reason %q", issue.Reason)
		return outcome
	}
}

func (s *FixService) correctWinner(ctx context.Context, issue Issue) FixOutcome {
	outcome := FixOutcome{LeagueID: issue.LeagueID}

	record, err := s.records.Get(ctx, issue.LeagueID)
	if err != nil {
		outcome.Action = FixActionFailed
		outcome.Error = err.Error()
		return outcome
	}

	detected, err := s.detector.Detect(ctx, record.ID, record.Year, tournament.TierOtherDomestic)
	if err != nil {
		outcome.Action = FixActionFailed
		outcome.Error = err.Error()
		return outcome
	}
	if detected == nil {
		outcome.Action = FixActionUnchanged
		outcome.Detail = "no winner could be re-detected"
		return outcome
	}

	previous := ""
	if record.Winner != nil {
		previous = record.Winner.Name
	}
	if sameTeamName(previous, detected.Name) {
		outcome.Action = FixActionUnchanged
		outcome.Detail = "re-detected winner matches the stored one"
		return outcome
	}

	detected.DetectedBy = fixDetectedBy
	detected.Confidence = tournament.ConfidenceHigh
	if previous != "" {
		detected.Note = fmt.Sprintf("corrected from %s to %s", previous, detected.Name)
	}
	record.Winner = detected

	if record.Validation == nil {
		record.Validation = &tournament.Validation{}
	}
	record.Validation.LastChecked = tournament.DateOnly(s.now())
	record.Validation.Confidence = tournament.ConfidenceHigh
	record.Validation.NextCheck = tournament.NextCheckDate(s.now(), tournament.ConfidenceHigh)
	record.Validation.Method = fixDetectedBy
	record.Validation.LastError = ""

	if err := s.records.Set(ctx, record); err != nil {
		outcome.Action = FixActionFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Action = FixActionCorrected
	outcome.Detail = fmt.Sprintf("winner set to %s", detected.Name)
	s.logger.InfoContext(ctx, "corrected tournament winner",
		"league_id", record.ID,
		"previous", previous,
		"winner", detected.Name,
	)
	return outcome
}
