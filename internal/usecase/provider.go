package usecase

import (
	"context"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
)

// FootballProvider is the slice of the external football API the
// revalidation pipeline depends on.
type FootballProvider interface {
	GetUpcomingFixtures(ctx context.Context, leagueID int64, season, next int) ([]tournament.Fixture, error)
	GetRecentFixtures(ctx context.Context, leagueID int64, season, last int, finishedOnly bool) ([]tournament.Fixture, error)
	GetStandings(ctx context.Context, leagueID int64, season int) ([][]tournament.StandingRow, error)
	GetCupWinner(ctx context.Context, leagueID int64, season int) (*tournament.Team, error)
}
