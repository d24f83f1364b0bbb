package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

// Verdict is the overall outcome of validating one stored winner.
type Verdict string

const (
	VerdictPassed  Verdict = "passed"
	VerdictWarning Verdict = "warning"
	VerdictFailed  Verdict = "failed"
)

// CheckName identifies one validation sub-check.
type CheckName string

const (
	CheckResponseShape   CheckName = "response_shape"
	CheckMatchData       CheckName = "match_data"
	CheckWinnerLogic     CheckName = "winner_logic"
	CheckCrossValidation CheckName = "cross_validation"
	CheckTeamData        CheckName = "team_data"
)

// checkWeights is the contribution of each sub-check to the overall score.
// The overall score is normalized over the checks that actually ran, so a
// skipped check neither helps nor hurts.
var checkWeights = map[CheckName]float64{
	CheckResponseShape:   0.20,
	CheckMatchData:       0.30,
	CheckWinnerLogic:     0.30,
	CheckCrossValidation: 0.15,
	CheckTeamData:        0.05,
}

type CheckResult struct {
	Name     CheckName `json:"name"`
	Ran      bool      `json:"ran"`
	Score    float64   `json:"score"`
	Warnings []string  `json:"warnings,omitempty"`
	Errors   []string  `json:"errors,omitempty"`
}

type ValidationReport struct {
	LeagueID   int64         `json:"league_id"`
	Verdict    Verdict       `json:"verdict"`
	Confidence float64       `json:"confidence"`
	Checks     []CheckResult `json:"checks"`
	// WrongWinnerSuspected is set when cross-checking contradicts the stored
	// winner, so correction can be routed separately from generic failures.
	WrongWinnerSuspected bool `json:"wrong_winner_suspected,omitempty"`
}

// Warnings flattens the warnings of all sub-checks.
func (r ValidationReport) Warnings() []string {
	out := make([]string, 0, 4)
	for _, check := range r.Checks {
		out = append(out, check.Warnings...)
	}
	return out
}

// Errors flattens the errors of all sub-checks.
func (r ValidationReport) Errors() []string {
	out := make([]string, 0, 2)
	for _, check := range r.Checks {
		out = append(out, check.Errors...)
	}
	return out
}

// Validator scores a stored tournament winner against fresh provider data.
type Validator struct {
	provider     FootballProvider
	crossChecker *CrossChecker
	logger       *logging.Logger
	now          func() time.Time
}

func NewValidator(provider FootballProvider, crossChecker *CrossChecker, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Validator{
		provider:     provider,
		crossChecker: crossChecker,
		logger:       logger,
		now:          time.Now,
	}
}

// ValidateRecord fetches the recent fixtures of the record's tournament and
// runs every sub-check. A malformed provider response is a hard error: the
// report short-circuits to failed without scoring the remaining checks.
func (v *Validator) ValidateRecord(ctx context.Context, record tournament.Record) (ValidationReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Validator.ValidateRecord")
	defer span.End()

	if v.provider == nil {
		return ValidationReport{}, fmt.Errorf("%w: football provider is not configured", ErrDependencyUnavailable)
	}

	fixtures, err := v.provider.GetRecentFixtures(ctx, record.ID, record.Year, 5, false)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("fetch recent fixtures for validation league_id=%d: %w", record.ID, err)
	}

	report := ValidationReport{LeagueID: record.ID}

	shape := checkResponseShape(fixtures)
	report.Checks = append(report.Checks, shape)
	if len(shape.Errors) > 0 {
		report.Verdict = VerdictFailed
		report.Confidence = 0
		return report, nil
	}

	final := pickFinalFixture(fixtures)
	report.Checks = append(report.Checks, checkMatchData(final, tournament.DateOnly(v.now())))
	report.Checks = append(report.Checks, checkWinnerLogic(record, final))

	if v.crossChecker != nil {
		cross := v.crossChecker.CrossCheckWinner(ctx, record)
		report.Checks = append(report.Checks, cross.asCheck())
		report.WrongWinnerSuspected = cross.ContradictsStored
	}

	report.Checks = append(report.Checks, checkTeamData(record.Winner))

	report.Confidence = overallConfidence(report.Checks)
	report.Verdict = verdictFor(report.Confidence)

	v.logger.DebugContext(ctx, "validated tournament record",
		"league_id", record.ID,
		"verdict", report.Verdict,
		"confidence", report.Confidence,
	)

	return report, nil
}

// pickFinalFixture returns the most recent finished final-round fixture, or
// nil when the recent window contains none.
func pickFinalFixture(fixtures []tournament.Fixture) *tournament.Fixture {
	var best *tournament.Fixture
	for i := range fixtures {
		fixture := &fixtures[i]
		if !tournament.IsFinalRound(fixture.Round) {
			continue
		}
		if !tournament.IsFinishedStatus(fixture.Status) {
			continue
		}
		if best == nil || fixture.Date.After(best.Date) {
			best = fixture
		}
	}
	return best
}

func checkResponseShape(fixtures []tournament.Fixture) CheckResult {
	result := CheckResult{Name: CheckResponseShape, Ran: true}

	if fixtures == nil {
		result.Errors = append(result.Errors, "provider returned no fixture payload")
		return result
	}

	result.Score = 1
	if len(fixtures) == 0 {
		result.Warnings = append(result.Warnings, "provider returned zero recent fixtures")
		result.Score = 0
	}
	for _, fixture := range fixtures {
		if fixture.ID <= 0 || fixture.HomeTeam.ID <= 0 || fixture.AwayTeam.ID <= 0 {
			result.Errors = append(result.Errors, "fixture with incomplete identifiers in payload")
			result.Score = 0
			break
		}
	}

	result.Score = clampScore(result.Score)
	return result
}

func checkMatchData(final *tournament.Fixture, today string) CheckResult {
	result := CheckResult{Name: CheckMatchData, Ran: true}

	if final == nil {
		result.Warnings = append(result.Warnings, "no finished final-round fixture in recent window")
		return result
	}

	if tournament.IsFinishedStatus(final.Status) {
		result.Score += 0.3
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("final fixture status %q is not a finished status", final.Status))
		result.Score -= 0.2
	}

	finalDay := tournament.DateOnly(final.Date)
	switch {
	case final.Date.IsZero():
		result.Warnings = append(result.Warnings, "final fixture has no date")
	case moreThanOneDayAhead(finalDay, today):
		result.Warnings = append(result.Warnings, "final fixture is dated in the future")
		result.Score -= 0.1
	case olderThanTenYears(finalDay, today):
		result.Warnings = append(result.Warnings, "final fixture is more than ten years old")
		result.Score -= 0.1
	default:
		result.Score += 0.2
	}

	if tournament.IsFinalRound(final.Round) {
		result.Score += 0.3
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("round %q does not look like a final", final.Round))
	}

	result.Score = clampScore(result.Score)
	return result
}

func checkWinnerLogic(record tournament.Record, final *tournament.Fixture) CheckResult {
	result := CheckResult{Name: CheckWinnerLogic, Ran: true}

	if final == nil {
		result.Warnings = append(result.Warnings, "cannot verify winner without a final fixture")
		result.Score = clampScore(result.Score)
		return result
	}

	homeFlagged := final.HomeWinner != nil && *final.HomeWinner
	awayFlagged := final.AwayWinner != nil && *final.AwayWinner
	if homeFlagged && awayFlagged {
		result.Errors = append(result.Errors, "provider flags both sides of the final as winner")
		return result
	}

	fixtureWinner := final.WinnerOf()
	if fixtureWinner == nil {
		result.Warnings = append(result.Warnings, "final fixture has no resolvable winner")
		result.Score -= 0.3
	} else {
		result.Score += 0.5
		if record.Winner != nil {
			if sameTeamName(record.Winner.Name, fixtureWinner.Name) {
				result.Score += 0.3
			} else {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"stored winner %q disagrees with final fixture winner %q",
					record.Winner.Name, fixtureWinner.Name,
				))
				result.Score -= 0.2
			}
		}
	}

	if final.HomeGoals != nil && final.AwayGoals != nil {
		switch {
		case *final.HomeGoals == *final.AwayGoals:
			result.Warnings = append(result.Warnings, "final ended level after regulation, winner decided beyond goals")
			result.Score += 0.1
		case fixtureWinner != nil && (homeFlagged || awayFlagged) && fixtureWinner.ID != goalsWinner(final).ID:
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"provider winner flag names %q but the score favors %q",
				fixtureWinner.Name, goalsWinner(final).Name,
			))
			result.Score -= 0.2
		}
	}

	result.Score = clampScore(result.Score)
	return result
}

func checkTeamData(winner *tournament.Winner) CheckResult {
	result := CheckResult{Name: CheckTeamData, Ran: true}

	if winner == nil {
		result.Warnings = append(result.Warnings, "record has no stored winner")
		return result
	}

	switch {
	case winner.ID <= 0:
		result.Warnings = append(result.Warnings, "winner team id is missing")
	case winner.ID > 100_000_000:
		result.Warnings = append(result.Warnings, "winner team id is outside the plausible provider range")
		result.Score += 0.3
	default:
		result.Score += 0.3
	}

	nameLen := len(strings.TrimSpace(winner.Name))
	if nameLen >= 2 && nameLen <= 50 {
		result.Score += 0.4
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("winner name length %d is outside [2, 50]", nameLen))
	}

	if strings.HasPrefix(winner.Logo, "http") {
		result.Score += 0.3
	} else if winner.Logo != "" {
		result.Warnings = append(result.Warnings, "winner logo is not an http(s) URL")
	}

	result.Score = clampScore(result.Score)
	return result
}

// overallConfidence is the weighted mean over the checks that ran.
func overallConfidence(checks []CheckResult) float64 {
	var weighted, totalWeight float64
	for _, check := range checks {
		if !check.Ran {
			continue
		}
		weight := checkWeights[check.Name]
		weighted += check.Score * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

func verdictFor(confidence float64) Verdict {
	switch {
	case confidence >= 0.8:
		return VerdictPassed
	case confidence >= 0.6:
		return VerdictWarning
	default:
		return VerdictFailed
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sameTeamName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// goalsWinner is the side with the higher goal total. Callers must ensure
// both totals are present and unequal.
func goalsWinner(final *tournament.Fixture) tournament.Team {
	if *final.AwayGoals > *final.HomeGoals {
		return final.AwayTeam
	}
	return final.HomeTeam
}

// moreThanOneDayAhead tolerates finals dated tomorrow: provider dates are
// UTC calendar days and can sit one day ahead of a local clock.
func moreThanOneDayAhead(day, today string) bool {
	dayTime, err := time.Parse("2006-01-02", day)
	if err != nil {
		return false
	}
	todayTime, err := time.Parse("2006-01-02", today)
	if err != nil {
		return false
	}
	return dayTime.After(todayTime.AddDate(0, 0, 1))
}

func olderThanTenYears(day, today string) bool {
	dayTime, err := time.Parse("2006-01-02", day)
	if err != nil {
		return false
	}
	todayTime, err := time.Parse("2006-01-02", today)
	if err != nil {
		return false
	}
	return dayTime.Before(todayTime.AddDate(-10, 0, 0))
}
