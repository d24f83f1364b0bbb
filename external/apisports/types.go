package apisports

import (
	"encoding/json"
	"strings"

	sonic "github.com/bytedance/sonic"
)

// envelope is the common API-Sports v3 response wrapper. The errors field is
// an empty array on success and an object of messages on failure, so it is
// kept raw and inspected lazily.
type envelope struct {
	Get        string          `json:"get"`
	Parameters map[string]any  `json:"parameters"`
	Errors     json.RawMessage `json:"errors"`
	Results    int             `json:"results"`
}

type fixturesEnvelope struct {
	envelope
	Response []fixtureItem `json:"response"`
}

type standingsEnvelope struct {
	envelope
	Response []standingsItem `json:"response"`
}

type fixtureItem struct {
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short string `json:"short"`
			Long  string `json:"long"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Country string `json:"country"`
		Season  int    `json:"season"`
		Round   string `json:"round"`
	} `json:"league"`
	Teams struct {
		Home fixtureTeam `json:"home"`
		Away fixtureTeam `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

type fixtureTeam struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Logo   string `json:"logo"`
	Winner *bool  `json:"winner"`
}

type standingsItem struct {
	League struct {
		ID        int64           `json:"id"`
		Name      string          `json:"name"`
		Country   string          `json:"country"`
		Season    int             `json:"season"`
		Standings [][]standingRow `json:"standings"`
	} `json:"league"`
}

type standingRow struct {
	Rank int `json:"rank"`
	Team struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Logo string `json:"logo"`
	} `json:"team"`
	Points int    `json:"points"`
	Group  string `json:"group"`
}

// providerErrors flattens the errors field into readable text. Empty output
// means the provider reported no errors.
func (e envelope) providerErrors() string {
	raw := strings.TrimSpace(string(e.Errors))
	if raw == "" || raw == "[]" || raw == "{}" || raw == "null" {
		return ""
	}

	var asMap map[string]string
	if err := sonic.Unmarshal(e.Errors, &asMap); err == nil && len(asMap) > 0 {
		parts := make([]string, 0, len(asMap))
		for key, value := range asMap {
			parts = append(parts, key+": "+value)
		}
		return strings.Join(parts, "; ")
	}

	return raw
}
