package tournament

import (
	"testing"
	"time"
)

func TestRevalidationIntervalDays(t *testing.T) {
	t.Parallel()

	cases := []struct {
		confidence Confidence
		want       int
	}{
		{ConfidenceVerified, 90},
		{ConfidenceHigh, 30},
		{ConfidenceMedium, 14},
		{ConfidenceLow, 7},
		{Confidence("weird"), 30},
	}

	for _, tc := range cases {
		if got := tc.confidence.RevalidationIntervalDays(); got != tc.want {
			t.Fatalf("interval for %q = %d, want %d", tc.confidence, got, tc.want)
		}
	}
}

func TestNextCheckDate(t *testing.T) {
	t.Parallel()

	checked := time.Date(2025, 1, 1, 10, 30, 0, 0, time.UTC)
	if got := NextCheckDate(checked, ConfidenceHigh); got != "2025-01-31" {
		t.Fatalf("high next check = %q, want 2025-01-31", got)
	}
	if got := NextCheckDate(checked, ConfidenceLow); got != "2025-01-08" {
		t.Fatalf("low next check = %q, want 2025-01-08", got)
	}
}

func TestRecordIsDue(t *testing.T) {
	t.Parallel()

	never := Record{ID: 1}
	if !never.IsDue("2025-01-01") {
		t.Fatal("record without validation must be due")
	}

	fresh := Record{ID: 2, Validation: &Validation{NextCheck: "2025-02-01"}}
	if fresh.IsDue("2025-01-31") {
		t.Fatal("record before next check must not be due")
	}
	if !fresh.IsDue("2025-02-01") {
		t.Fatal("record on its next-check day must be due")
	}
	if !fresh.IsDue("2025-02-02") {
		t.Fatal("record past its next-check day must be due")
	}
}

func TestRecordStateOn(t *testing.T) {
	t.Parallel()

	flagged := Record{ID: 1, ShouldRemoveFromFinished: true}
	if got := flagged.StateOn("2025-01-01"); got != StateNeedsCorrection {
		t.Fatalf("state = %q, want needs_correction", got)
	}

	errored := Record{ID: 2, Validation: &Validation{NextCheck: "2099-01-01", LastError: "boom"}}
	if got := errored.StateOn("2025-01-01"); got != StateError {
		t.Fatalf("state = %q, want error", got)
	}

	fresh := Record{ID: 3, Validation: &Validation{NextCheck: "2099-01-01"}}
	if got := fresh.StateOn("2025-01-01"); got != StateFresh {
		t.Fatalf("state = %q, want fresh", got)
	}
}

func TestIsFinalRound(t *testing.T) {
	t.Parallel()

	finals := []string{
		"Final",
		"FINALE",
		"Grand Final",
		"3rd Place Final",
		"Third Place Match",
		"決勝",
	}
	for _, round := range finals {
		if !IsFinalRound(round) {
			t.Fatalf("%q should be a final round", round)
		}
	}

	notFinals := []string{
		"Semi-finals",
		"Quarter-finals",
		"Round of 16",
		"1/8-finals",
		"Regular Season - 12",
		"準決勝",
		"",
	}
	for _, round := range notFinals {
		if IsFinalRound(round) {
			t.Fatalf("%q should not be a final round", round)
		}
	}
}

func TestFixtureWinnerOf(t *testing.T) {
	t.Parallel()

	home := Team{ID: 10, Name: "Maccabi Tel Aviv"}
	away := Team{ID: 20, Name: "Hapoel Beer Sheva"}
	two, one := 2, 1

	byGoals := Fixture{HomeTeam: home, AwayTeam: away, HomeGoals: &two, AwayGoals: &one}
	if winner := byGoals.WinnerOf(); winner == nil || winner.ID != home.ID {
		t.Fatalf("winner by goals = %+v, want home", winner)
	}
	if loser := byGoals.LoserOf(); loser == nil || loser.ID != away.ID {
		t.Fatalf("loser by goals = %+v, want away", loser)
	}

	flag := true
	byFlag := Fixture{HomeTeam: home, AwayTeam: away, AwayWinner: &flag, HomeGoals: &two, AwayGoals: &one}
	if winner := byFlag.WinnerOf(); winner == nil || winner.ID != away.ID {
		t.Fatalf("winner flag must take precedence over goals, got %+v", winner)
	}

	draw := Fixture{HomeTeam: home, AwayTeam: away, HomeGoals: &one, AwayGoals: &one}
	if winner := draw.WinnerOf(); winner != nil {
		t.Fatalf("draw must yield no winner, got %+v", winner)
	}
}
