package tournament

import (
	"strings"
	"time"
)

// Confidence grades how much we trust a stored winner. It drives how long a
// record may sit in the cache before it has to be re-checked.
type Confidence string

const (
	ConfidenceVerified Confidence = "verified"
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceLow      Confidence = "low"
)

// RevalidationIntervalDays returns how many days a record with the given
// confidence may stay cached before it is due again.
func (c Confidence) RevalidationIntervalDays() int {
	switch c {
	case ConfidenceVerified:
		return 90
	case ConfidenceHigh:
		return 30
	case ConfidenceMedium:
		return 14
	case ConfidenceLow:
		return 7
	default:
		return 30
	}
}

// DetectionMethod identifies which strategy produced a winner.
type DetectionMethod string

const (
	DetectCupWinner    DetectionMethod = "cup-winner"
	DetectFinalFixture DetectionMethod = "final-fixture"
	DetectStandings    DetectionMethod = "standings"
	DetectRecent       DetectionMethod = "recent"
)

// Confidence maps a detection method to the trust tier its evidence earns.
func (m DetectionMethod) Confidence() Confidence {
	switch m {
	case DetectCupWinner, DetectFinalFixture:
		return ConfidenceHigh
	case DetectStandings, DetectRecent:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Tier groups tournaments by prestige. It selects which detection methods
// run and in what order.
type Tier string

const (
	TierGlobal        Tier = "global"
	TierContinental   Tier = "continental"
	TierMajorDomestic Tier = "major_domestic"
	TierOtherDomestic Tier = "other_domestic"
)

// DetectionOrder is the method priority table per tier. Earlier entries are
// tried first; the first method that yields a winner wins.
func (t Tier) DetectionOrder() []DetectionMethod {
	switch t {
	case TierGlobal:
		return []DetectionMethod{DetectCupWinner, DetectFinalFixture, DetectRecent}
	case TierContinental:
		return []DetectionMethod{DetectCupWinner, DetectFinalFixture, DetectRecent}
	case TierMajorDomestic:
		return []DetectionMethod{DetectStandings, DetectFinalFixture, DetectRecent}
	default:
		return []DetectionMethod{DetectFinalFixture, DetectStandings, DetectRecent}
	}
}

// Team is the minimal identity of a club or national side as the provider
// reports it.
type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// StandingRow is one line of a league table group.
type StandingRow struct {
	Rank   int    `json:"rank"`
	Team   Team   `json:"team"`
	Points int    `json:"points"`
	Group  string `json:"group,omitempty"`
}

// Winner is the detected champion of a finished tournament.
type Winner struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Logo       string     `json:"logo,omitempty"`
	DetectedBy string     `json:"detected_by,omitempty"`
	DetectedAt string     `json:"detected_at,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// FinalMatch is the snapshot of the deciding fixture kept alongside the
// winner for auditability.
type FinalMatch struct {
	FixtureID int64  `json:"fixture_id,omitempty"`
	Round     string `json:"round,omitempty"`
	Date      string `json:"date,omitempty"`
	Status    string `json:"status,omitempty"`
	HomeTeam  Team   `json:"home_team"`
	AwayTeam  Team   `json:"away_team"`
	HomeGoals *int   `json:"home_goals,omitempty"`
	AwayGoals *int   `json:"away_goals,omitempty"`
}

// Validation is the revalidation bookkeeping attached to a record. Dates are
// calendar days in ISO form (YYYY-MM-DD); comparing them lexicographically
// is equivalent to comparing the days themselves.
type Validation struct {
	LastChecked     string     `json:"last_checked"`
	NextCheck       string     `json:"next_check"`
	Confidence      Confidence `json:"confidence"`
	Method          string     `json:"method"`
	ChecksPerformed int        `json:"checks_performed"`
	LastError       string     `json:"last_error,omitempty"`
}

// Record is one finished tournament in the cache.
type Record struct {
	ID                       int64       `json:"id"`
	Name                     string      `json:"name"`
	Country                  string      `json:"country,omitempty"`
	Year                     int         `json:"year"`
	Winner                   *Winner     `json:"winner,omitempty"`
	RunnerUp                 *Team       `json:"runner_up,omitempty"`
	FinalMatch               *FinalMatch `json:"final_match,omitempty"`
	Validation               *Validation `json:"validation,omitempty"`
	ShouldRemoveFromFinished bool        `json:"should_remove_from_finished,omitempty"`
}

// State is the derived lifecycle position of a record. It is never stored;
// it is computed from the validation block and the current day.
type State string

const (
	StateNeverChecked    State = "never_checked"
	StateFresh           State = "fresh"
	StateDue             State = "due"
	StateError           State = "error"
	StateNeedsCorrection State = "needs_correction"
)

// StateOn derives the record's lifecycle state for the given day
// (ISO YYYY-MM-DD).
func (r Record) StateOn(today string) State {
	if r.ShouldRemoveFromFinished {
		return StateNeedsCorrection
	}
	if r.Validation == nil {
		return StateNeverChecked
	}
	if r.Validation.LastError != "" {
		return StateError
	}
	if r.IsDue(today) {
		return StateDue
	}
	return StateFresh
}

// IsDue reports whether the record must be re-checked on the given day.
// A record with no validation block has never been checked and is always due.
func (r Record) IsDue(today string) bool {
	if r.Validation == nil {
		return true
	}
	next := strings.TrimSpace(r.Validation.NextCheck)
	if next == "" {
		return true
	}
	return today >= next
}

// DateOnly formats a point in time as the ISO calendar day used throughout
// the validation metadata.
func DateOnly(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NextCheckDate computes the day a record becomes due again, given the day
// it was checked and its confidence.
func NextCheckDate(checked time.Time, confidence Confidence) string {
	days := confidence.RevalidationIntervalDays()
	return DateOnly(checked.UTC().AddDate(0, 0, days))
}
