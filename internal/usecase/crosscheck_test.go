package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

func newCrossChecker(provider *stubProvider, day string) *CrossChecker {
	checker := NewCrossChecker(provider, logging.NewNop())
	checker.now = fixedClock(day)
	return checker
}

func TestCrossCheckWinnerConsensus(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		recent:    []tournament.Fixture{finishedFinal(time.Date(2024, 12, 20, 18, 0, 0, 0, time.UTC))},
		cupWinner: &tournament.Team{ID: 10, Name: "Maccabi Tel Aviv"},
	}
	checker := newCrossChecker(provider, "2025-01-01")

	result := checker.CrossCheckWinner(context.Background(), validRecord())
	if result.Consensus != 0.8 {
		t.Fatalf("consensus = %.2f, want 0.8 for two agreeing sources", result.Consensus)
	}
	if result.ConsensusName != "Maccabi Tel Aviv" {
		t.Fatalf("consensus name = %q", result.ConsensusName)
	}
	if result.ContradictsStored {
		t.Fatal("consensus matches the stored winner")
	}
	if len(result.Sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(result.Sources))
	}
}

func TestCrossCheckWinnerConflict(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		cupWinner: &tournament.Team{ID: 10, Name: "Maccabi Tel Aviv"},
		standings: [][]tournament.StandingRow{{
			{Rank: 1, Team: tournament.Team{ID: 20, Name: "Hapoel Beer Sheva"}},
		}},
	}
	checker := newCrossChecker(provider, "2025-01-01")

	result := checker.CrossCheckWinner(context.Background(), validRecord())
	if result.Consensus != 0.3 {
		t.Fatalf("consensus = %.2f, want 0.3 for disagreeing sources", result.Consensus)
	}
	if len(result.Conflicts) != 2 {
		t.Fatalf("conflicts = %v, want both names", result.Conflicts)
	}
	if result.Conflicts[0] != "Hapoel Beer Sheva" || result.Conflicts[1] != "Maccabi Tel Aviv" {
		t.Fatalf("conflicts not sorted: %v", result.Conflicts)
	}
}

func TestCrossCheckWinnerSingleSource(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		cupWinner: &tournament.Team{ID: 10, Name: "Maccabi Tel Aviv"},
	}
	checker := newCrossChecker(provider, "2025-01-01")

	result := checker.CrossCheckWinner(context.Background(), validRecord())
	if result.Consensus != 0.5 {
		t.Fatalf("consensus = %.2f, want neutral 0.5 for a single source", result.Consensus)
	}
}

func TestCrossCheckWinnerNoSources(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		cupErr:      errors.New("circuit open"),
		standingErr: errors.New("circuit open"),
		recentErr:   errors.New("circuit open"),
	}
	checker := newCrossChecker(provider, "2025-01-01")

	result := checker.CrossCheckWinner(context.Background(), validRecord())
	if result.Consensus != 0 {
		t.Fatalf("consensus = %.2f, want 0 when every source fails", result.Consensus)
	}
	for _, source := range result.Sources {
		if source.Err == "" {
			t.Fatalf("source %q should record its failure", source.Method)
		}
	}
}

func TestCrossCheckWinnerContradictsStored(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		recent:    []tournament.Fixture{finishedFinal(time.Date(2024, 12, 20, 18, 0, 0, 0, time.UTC))},
		cupWinner: &tournament.Team{ID: 10, Name: "Maccabi Tel Aviv"},
	}
	checker := newCrossChecker(provider, "2025-01-01")

	record := validRecord()
	record.Winner.Name = "Hapoel Haifa"

	result := checker.CrossCheckWinner(context.Background(), record)
	if !result.ContradictsStored {
		t.Fatal("consensus disagrees with the stored winner and must say so")
	}
}

func TestCrossCheckRecentFinalWaitsForConfirmation(t *testing.T) {
	t.Parallel()

	// The final is only a day old; its result must not be trusted yet.
	provider := &stubProvider{
		recent: []tournament.Fixture{finishedFinal(time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC))},
	}
	checker := newCrossChecker(provider, "2025-01-01")

	result := checker.CrossCheckWinner(context.Background(), validRecord())
	if result.Consensus != 0 {
		t.Fatalf("consensus = %.2f, want 0 while the final is unconfirmed", result.Consensus)
	}
}
