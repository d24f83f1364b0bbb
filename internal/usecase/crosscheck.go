package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

// minFinalAge is the confirmation gate: a final must be at least this old
// before its result is trusted, so post-match corrections by the provider
// have time to land.
const minFinalAge = 3 * 24 * time.Hour

// CrossCheckSource is one independent signal about who won a tournament.
type CrossCheckSource struct {
	Method tournament.DetectionMethod `json:"method"`
	Team   *tournament.Team           `json:"team,omitempty"`
	Err    string                     `json:"error,omitempty"`
}

// CrossCheckResult aggregates the independent sources into a consensus score.
type CrossCheckResult struct {
	Sources   []CrossCheckSource `json:"sources"`
	Consensus float64            `json:"consensus"`
	// ConsensusName is the winning name when at least two sources agree.
	ConsensusName string   `json:"consensus_name,omitempty"`
	Conflicts     []string `json:"conflicts,omitempty"`
	// ContradictsStored is set when a consensus exists and disagrees with
	// the record's stored winner.
	ContradictsStored bool `json:"contradicts_stored,omitempty"`
}

func (r CrossCheckResult) asCheck() CheckResult {
	check := CheckResult{Name: CheckCrossValidation, Ran: true, Score: r.Consensus}
	if len(r.Conflicts) > 0 {
		check.Warnings = append(check.Warnings, "winner sources disagree: "+strings.Join(r.Conflicts, " vs "))
	}
	if r.ContradictsStored {
		check.Warnings = append(check.Warnings, "source consensus contradicts the stored winner")
	}
	return check
}

// CrossChecker compares the stored winner against every independent source
// the provider offers.
type CrossChecker struct {
	provider FootballProvider
	logger   *logging.Logger
	now      func() time.Time
}

func NewCrossChecker(provider FootballProvider, logger *logging.Logger) *CrossChecker {
	if logger == nil {
		logger = logging.Default()
	}
	return &CrossChecker{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// CrossCheckWinner queries the cup-winner lookup, the standings table, and
// the recent-final analysis, then scores their agreement: two or more
// matching names earn 0.8, a contradiction drops to 0.3 with the conflicting
// names listed, and a single usable source earns a neutral 0.5. Source
// failures are recorded but never abort the check.
func (c *CrossChecker) CrossCheckWinner(ctx context.Context, record tournament.Record) CrossCheckResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.CrossChecker.CrossCheckWinner")
	defer span.End()

	result := CrossCheckResult{}
	if c.provider == nil {
		return result
	}

	result.Sources = append(result.Sources, c.fromCupWinner(ctx, record))
	result.Sources = append(result.Sources, c.fromStandings(ctx, record))
	result.Sources = append(result.Sources, c.fromRecentFinal(ctx, record))

	votes := make(map[string]int, len(result.Sources))
	names := make([]string, 0, len(result.Sources))
	for _, source := range result.Sources {
		if source.Team == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(source.Team.Name))
		if key == "" {
			continue
		}
		if votes[key] == 0 {
			names = append(names, source.Team.Name)
		}
		votes[key]++
	}

	switch {
	case len(votes) == 0:
		result.Consensus = 0
	case len(votes) == 1 && votes[strings.ToLower(strings.TrimSpace(names[0]))] >= 2:
		result.Consensus = 0.8
		result.ConsensusName = names[0]
	case len(votes) == 1:
		result.Consensus = 0.5
		result.ConsensusName = names[0]
	default:
		// At least two sources named different teams.
		best := ""
		for _, name := range names {
			if votes[strings.ToLower(strings.TrimSpace(name))] >= 2 {
				best = name
			}
		}
		if best != "" {
			result.Consensus = 0.8
			result.ConsensusName = best
		} else {
			result.Consensus = 0.3
		}
		sort.Strings(names)
		result.Conflicts = names
	}

	if result.ConsensusName != "" && record.Winner != nil && !sameTeamName(result.ConsensusName, record.Winner.Name) {
		result.ContradictsStored = true
	}

	return result
}

func (c *CrossChecker) fromCupWinner(ctx context.Context, record tournament.Record) CrossCheckSource {
	source := CrossCheckSource{Method: tournament.DetectCupWinner}
	team, err := c.provider.GetCupWinner(ctx, record.ID, record.Year)
	if err != nil {
		source.Err = err.Error()
		c.logger.WarnContext(ctx, "cup-winner source failed", "league_id", record.ID, "error", err)
		return source
	}
	source.Team = team
	return source
}

func (c *CrossChecker) fromStandings(ctx context.Context, record tournament.Record) CrossCheckSource {
	source := CrossCheckSource{Method: tournament.DetectStandings}
	groups, err := c.provider.GetStandings(ctx, record.ID, record.Year)
	if err != nil {
		source.Err = err.Error()
		c.logger.WarnContext(ctx, "standings source failed", "league_id", record.ID, "error", err)
		return source
	}

	for _, group := range groups {
		for _, row := range group {
			if row.Rank == 1 && row.Team.ID > 0 {
				team := row.Team
				source.Team = &team
				return source
			}
		}
	}
	return source
}

func (c *CrossChecker) fromRecentFinal(ctx context.Context, record tournament.Record) CrossCheckSource {
	source := CrossCheckSource{Method: tournament.DetectFinalFixture}
	fixtures, err := c.provider.GetRecentFixtures(ctx, record.ID, record.Year, 5, true)
	if err != nil {
		source.Err = err.Error()
		c.logger.WarnContext(ctx, "recent-final source failed", "league_id", record.ID, "error", err)
		return source
	}

	cutoff := c.now().Add(-minFinalAge)
	for _, fixture := range fixtures {
		if !tournament.IsFinalRound(fixture.Round) {
			continue
		}
		if !tournament.IsFinishedStatus(fixture.Status) {
			continue
		}
		if fixture.Date.IsZero() || fixture.Date.After(cutoff) {
			continue
		}
		if winner := fixture.WinnerOf(); winner != nil {
			source.Team = winner
			return source
		}
	}
	return source
}
