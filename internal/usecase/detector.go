package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

// Detector resolves the winner of a finished tournament by trying the
// tier's detection methods in priority order. The first method that yields
// a team wins; its confidence tier is stamped on the result.
type Detector struct {
	provider FootballProvider
	logger   *logging.Logger
	now      func() time.Time
}

func NewDetector(provider FootballProvider, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Detect runs the tier's method chain. A nil winner with a nil error means
// every method came up empty, which callers treat as "not decided yet".
func (d *Detector) Detect(ctx context.Context, leagueID int64, season int, tier tournament.Tier) (*tournament.Winner, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.Detector.Detect")
	defer span.End()

	if d.provider == nil {
		return nil, fmt.Errorf("%w: football provider is not configured", ErrDependencyUnavailable)
	}
	if leagueID <= 0 {
		return nil, fmt.Errorf("%w: league id must be greater than zero", ErrInvalidInput)
	}

	var lastErr error
	for _, method := range tier.DetectionOrder() {
		team, err := d.runMethod(ctx, method, leagueID, season)
		if err != nil {
			lastErr = err
			d.logger.WarnContext(ctx, "detection method failed",
				"league_id", leagueID,
				"method", string(method),
				"error", err,
			)
			continue
		}
		if team == nil {
			continue
		}
		return d.formatWinner(*team, method), nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("detect winner league_id=%d: %w", leagueID, lastErr)
	}
	return nil, nil
}

func (d *Detector) runMethod(ctx context.Context, method tournament.DetectionMethod, leagueID int64, season int) (*tournament.Team, error) {
	switch method {
	case tournament.DetectCupWinner:
		return d.provider.GetCupWinner(ctx, leagueID, season)
	case tournament.DetectFinalFixture:
		return d.detectFromFinalFixture(ctx, leagueID, season)
	case tournament.DetectStandings:
		return d.detectFromStandings(ctx, leagueID, season)
	case tournament.DetectRecent:
		return d.detectFromRecentFixtures(ctx, leagueID, season)
	default:
		return nil, fmt.Errorf("%w: unknown detection method %q", ErrInvalidInput, method)
	}
}

func (d *Detector) detectFromFinalFixture(ctx context.Context, leagueID int64, season int) (*tournament.Team, error) {
	fixtures, err := d.provider.GetRecentFixtures(ctx, leagueID, season, 10, true)
	if err != nil {
		return nil, err
	}

	cutoff := d.now().Add(-minFinalAge)
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
			return winner, nil
		}
	}
	return nil, nil
}

func (d *Detector) detectFromStandings(ctx context.Context, leagueID int64, season int) (*tournament.Team, error) {
	groups, err := d.provider.GetStandings(ctx, leagueID, season)
	if err != nil {
		return nil, err
	}

	for _, group := range groups {
		for _, row := range group {
			if row.Rank == 1 && row.Team.ID > 0 {
				team := row.Team
				return &team, nil
			}
		}
	}
	return nil, nil
}

// detectFromRecentFixtures is the fallback with the widest fetch window:
// the newest finished final-round fixture past the confirmation gate
// decides. Knockout stages still never qualify; a semi-final winner is not
// a tournament winner.
func (d *Detector) detectFromRecentFixtures(ctx context.Context, leagueID int64, season int) (*tournament.Team, error) {
	fixtures, err := d.provider.GetRecentFixtures(ctx, leagueID, season, 3, true)
	if err != nil {
		return nil, err
	}

	cutoff := d.now().Add(-minFinalAge)
	var latest *tournament.Fixture
	for i := range fixtures {
		fixture := &fixtures[i]
		if !tournament.IsFinalRound(fixture.Round) {
			continue
		}
		if !tournament.IsFinishedStatus(fixture.Status) {
			continue
		}
		if fixture.Date.IsZero() || fixture.Date.After(cutoff) {
			continue
		}
		if latest == nil || fixture.Date.After(latest.Date) {
			latest = fixture
		}
	}
	if latest == nil {
		return nil, nil
	}
	return latest.WinnerOf(), nil
}

func (d *Detector) formatWinner(team tournament.Team, method tournament.DetectionMethod) *tournament.Winner {
	return &tournament.Winner{
		ID:         team.ID,
		Name:       team.Name,
		Logo:       team.Logo,
		DetectedBy: string(method),
		DetectedAt: d.now().UTC().Format(time.RFC3339),
		Confidence: method.Confidence(),
	}
}
