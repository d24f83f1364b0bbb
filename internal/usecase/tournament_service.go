package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

// FinishedTournament is a stored record together with its derived lifecycle
// state for the current day.
type FinishedTournament struct {
	tournament.Record
	State tournament.State `json:"state"`
}

// TournamentService serves the read side of the cache.
type TournamentService struct {
	records tournament.Repository
	logger  *logging.Logger
	now     func() time.Time
}

func NewTournamentService(records tournament.Repository, logger *logging.Logger) *TournamentService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TournamentService{
		records: records,
		logger:  logger,
		now:     time.Now,
	}
}

// ListFinished returns every cached record in ascending league-id order.
func (s *TournamentService) ListFinished(ctx context.Context) ([]FinishedTournament, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TournamentService.ListFinished")
	defer span.End()

	records, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list finished tournaments: %w", err)
	}

	today := tournament.DateOnly(s.now())
	out := make([]FinishedTournament, 0, len(records))
	for _, record := range records {
		out = append(out, FinishedTournament{
			Record: record,
			State:  record.StateOn(today),
		})
	}

	return out, nil
}

// GetFinished returns one cached record by league ID.
func (s *TournamentService) GetFinished(ctx context.Context, leagueID int64) (FinishedTournament, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TournamentService.GetFinished")
	defer span.End()

	if leagueID <= 0 {
		return FinishedTournament{}, fmt.Errorf("%w: league id must be greater than zero", ErrInvalidInput)
	}

	record, err := s.records.Get(ctx, leagueID)
	if err != nil {
		if errors.Is(err, tournament.ErrRecordNotFound) {
			return FinishedTournament{}, fmt.Errorf("%w: tournament league_id=%d", ErrNotFound, leagueID)
		}
		return FinishedTournament{}, fmt.Errorf("get finished tournament league_id=%d: %w", leagueID, err)
	}

	return FinishedTournament{
		Record: record,
		State:  record.StateOn(tournament.DateOnly(s.now())),
	}, nil
}
