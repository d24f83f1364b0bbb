package tournament

import (
	"strings"
	"time"
)

// Finished short statuses as the provider reports them.
const (
	StatusFullTime  = "FT"
	StatusExtraTime = "AET"
	StatusPenalties = "PEN"
)

// Fixture is a single match as needed by winner detection and validation.
type Fixture struct {
	ID        int64     `json:"id"`
	LeagueID  int64     `json:"league_id"`
	Season    int       `json:"season"`
	Round     string    `json:"round"`
	Status    string    `json:"status"`
	Date      time.Time `json:"date"`
	HomeTeam  Team      `json:"home_team"`
	AwayTeam  Team      `json:"away_team"`
	HomeGoals *int      `json:"home_goals,omitempty"`
	AwayGoals *int      `json:"away_goals,omitempty"`
	// HomeWinner/AwayWinner carry the provider's own winner flags when set.
	HomeWinner *bool `json:"home_winner,omitempty"`
	AwayWinner *bool `json:"away_winner,omitempty"`
}

// IsFinishedStatus reports whether a short status marks a completed match.
func IsFinishedStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusFullTime, StatusExtraTime, StatusPenalties:
		return true
	default:
		return false
	}
}

var finalRoundKeywords = []string{
	"final",
	"finale",
	"grand final",
	"3rd place",
	"third place",
	"決勝",
}

var nonFinalRoundKeywords = []string{
	"semi",
	"quarter",
	"1/8",
	"1/16",
	"round of",
	"準決勝",
	"準々決勝",
}

// IsFinalRound reports whether a round label names the deciding stage of a
// tournament. Semi-finals and quarter-finals contain "final" as a substring
// and must never qualify, so exclusions are checked first.
func IsFinalRound(round string) bool {
	normalized := strings.ToLower(strings.TrimSpace(round))
	if normalized == "" {
		return false
	}
	for _, keyword := range nonFinalRoundKeywords {
		if strings.Contains(normalized, keyword) {
			return false
		}
	}
	for _, keyword := range finalRoundKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// WinnerOf resolves the winning side of a finished fixture: the provider's
// winner flag wins, then the goal totals. A draw (or missing data) yields nil.
func (f Fixture) WinnerOf() *Team {
	if f.HomeWinner != nil && *f.HomeWinner {
		team := f.HomeTeam
		return &team
	}
	if f.AwayWinner != nil && *f.AwayWinner {
		team := f.AwayTeam
		return &team
	}
	if f.HomeGoals == nil || f.AwayGoals == nil {
		return nil
	}
	switch {
	case *f.HomeGoals > *f.AwayGoals:
		team := f.HomeTeam
		return &team
	case *f.AwayGoals > *f.HomeGoals:
		team := f.AwayTeam
		return &team
	default:
		return nil
	}
}

// LoserOf mirrors WinnerOf for the runner-up side.
func (f Fixture) LoserOf() *Team {
	winner := f.WinnerOf()
	if winner == nil {
		return nil
	}
	if winner.ID == f.HomeTeam.ID {
		team := f.AwayTeam
		return &team
	}
	team := f.HomeTeam
	return &team
}
