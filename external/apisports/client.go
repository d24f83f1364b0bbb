package apisports

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/cache"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
	"github.com/matchpulse/trophy-tracker/internal/platform/resilience"
	"github.com/matchpulse/trophy-tracker/internal/usecase"
)

const (
	defaultBaseURL          = "https://v3.football.api-sports.io"
	defaultResponseCacheTTL = 6 * time.Hour
	maxResponseBytes        = 6 << 20
	finishedStatusFilter    = "FT-AET-PEN"
)

var apiKeyHeaderRegex = regexp.MustCompile(`(?i)x-apisports-key:\s*\S+`)
var errAPISportsTransient = crerr.New("api-sports transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	CacheTTL       time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the API-Sports v3 football API. Identical GET requests
// are deduplicated in flight and cached for a short TTL so repeated
// validation passes do not burn through the provider quota.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	responses      *cache.Store
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultResponseCacheTTL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		responses:      cache.NewStore(cacheTTL),
	}
}

// GetRecentFixtures fetches the last N fixtures of a league season, newest
// first. When finishedOnly is set the provider filters to FT/AET/PEN.
func (c *Client) GetRecentFixtures(ctx context.Context, leagueID int64, season, last int, finishedOnly bool) ([]tournament.Fixture, error) {
	if leagueID <= 0 {
		return nil, fmt.Errorf("%w: league id must be greater than zero", usecase.ErrInvalidInput)
	}
	if last <= 0 {
		last = 3
	}

	query := map[string]string{
		"league": strconv.FormatInt(leagueID, 10),
		"season": strconv.Itoa(season),
		"last":   strconv.Itoa(last),
	}
	if finishedOnly {
		query["status"] = finishedStatusFilter
	}

	var payload fixturesEnvelope
	if err := c.doJSON(ctx, "/fixtures", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch recent fixtures league_id=%d season=%d: %w", leagueID, season, err)
	}

	return mapFixtures(payload.Response), nil
}

// GetUpcomingFixtures fetches the next N scheduled fixtures of a league
// season. An empty slice means the season has nothing left to play.
func (c *Client) GetUpcomingFixtures(ctx context.Context, leagueID int64, season, next int) ([]tournament.Fixture, error) {
	if leagueID <= 0 {
		return nil, fmt.Errorf("%w: league id must be greater than zero", usecase.ErrInvalidInput)
	}
	if next <= 0 {
		next = 5
	}

	query := map[string]string{
		"league": strconv.FormatInt(leagueID, 10),
		"season": strconv.Itoa(season),
		"next":   strconv.Itoa(next),
	}

	var payload fixturesEnvelope
	if err := c.doJSON(ctx, "/fixtures", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch upcoming fixtures league_id=%d season=%d: %w", leagueID, season, err)
	}

	return mapFixtures(payload.Response), nil
}

// GetStandings fetches the league table. The outer slice holds groups; most
// leagues have exactly one.
func (c *Client) GetStandings(ctx context.Context, leagueID int64, season int) ([][]tournament.StandingRow, error) {
	if leagueID <= 0 {
		return nil, fmt.Errorf("%w: league id must be greater than zero", usecase.ErrInvalidInput)
	}

	query := map[string]string{
		"league": strconv.FormatInt(leagueID, 10),
		"season": strconv.Itoa(season),
	}

	var payload standingsEnvelope
	if err := c.doJSON(ctx, "/standings", query, &payload); err != nil {
		return nil, fmt.Errorf("fetch standings league_id=%d season=%d: %w", leagueID, season, err)
	}

	out := make([][]tournament.StandingRow, 0, len(payload.Response))
	for _, item := range payload.Response {
		for _, group := range item.League.Standings {
			rows := make([]tournament.StandingRow, 0, len(group))
			for _, row := range group {
				rows = append(rows, tournament.StandingRow{
					Rank:   row.Rank,
					Points: row.Points,
					Group:  strings.TrimSpace(row.Group),
					Team: tournament.Team{
						ID:   row.Team.ID,
						Name: strings.TrimSpace(row.Team.Name),
						Logo: strings.TrimSpace(row.Team.Logo),
					},
				})
			}
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
			out = append(out, rows)
		}
	}

	return out, nil
}

// GetCupWinner resolves a knockout champion by scanning the most recent
// finished fixtures for the deciding match. The provider has no dedicated
// cup-winner endpoint, so this is final-fixture analysis under the hood.
func (c *Client) GetCupWinner(ctx context.Context, leagueID int64, season int) (*tournament.Team, error) {
	fixtures, err := c.GetRecentFixtures(ctx, leagueID, season, 10, true)
	if err != nil {
		return nil, err
	}

	for _, fixture := range fixtures {
		if !tournament.IsFinalRound(fixture.Round) {
			continue
		}
		if !tournament.IsFinishedStatus(fixture.Status) {
			continue
		}
		if winner := fixture.WinnerOf(); winner != nil {
			return winner, nil
		}
	}

	return nil, nil
}

// providerResponse is implemented by every envelope type via the embedded
// envelope struct.
type providerResponse interface {
	providerErrors() string
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target providerResponse) error {
	raw, err := c.fetch(ctx, path, query)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	if msg := target.providerErrors(); msg != "" {
		return fmt.Errorf("provider reported errors: %s", msg)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	cached, err := c.responses.GetOrLoad(ctx, fullURL, func(ctx context.Context) (any, error) {
		if c.circuitEnabled {
			if err := c.breaker.Allow(); err != nil {
				c.logger.WarnContext(ctx, "api-sports circuit breaker rejected request", "state", c.breaker.State())
				return nil, fmt.Errorf("%w: football data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
			}
		}

		out, reqErr, _ := c.flight.Do(fullURL, func() (any, error) {
			raw, execErr := c.executeRequest(ctx, fullURL)
			if c.circuitEnabled {
				if execErr != nil && isCircuitFailure(execErr) {
					c.breaker.RecordFailure()
				} else {
					c.breaker.RecordSuccess()
				}
			}
			return raw, execErr
		})
		return out, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := cached.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", cached)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("x-apisports-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errAPISportsTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errAPISportsTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else {
				if isRetryableStatus(resp.StatusCode) {
					lastErr = fmt.Errorf("%w: provider status=%d body=%s", errAPISportsTransient, resp.StatusCode, abbreviateBody(raw))
				} else {
					return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "api-sports request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// mapFixtures keeps malformed items instead of skipping them: the validator's
// response-shape check is what decides whether incomplete identifiers fail a
// record, and it can only do that if it sees them.
func mapFixtures(items []fixtureItem) []tournament.Fixture {
	out := make([]tournament.Fixture, 0, len(items))
	for _, item := range items {
		fixture := tournament.Fixture{
			ID:       item.Fixture.ID,
			LeagueID: item.League.ID,
			Season:   item.League.Season,
			Round:    strings.TrimSpace(item.League.Round),
			Status:   strings.ToUpper(strings.TrimSpace(item.Fixture.Status.Short)),
			HomeTeam: tournament.Team{
				ID:   item.Teams.Home.ID,
				Name: strings.TrimSpace(item.Teams.Home.Name),
				Logo: strings.TrimSpace(item.Teams.Home.Logo),
			},
			AwayTeam: tournament.Team{
				ID:   item.Teams.Away.ID,
				Name: strings.TrimSpace(item.Teams.Away.Name),
				Logo: strings.TrimSpace(item.Teams.Away.Logo),
			},
			HomeGoals:  item.Goals.Home,
			AwayGoals:  item.Goals.Away,
			HomeWinner: item.Teams.Home.Winner,
			AwayWinner: item.Teams.Away.Winner,
		}
		if parsed := parseProviderDateTime(item.Fixture.Date); parsed != nil {
			fixture.Date = *parsed
		}
		out = append(out, fixture)
	}
	return out
}

func parseProviderDateTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			v := parsed.UTC()
			return &v
		}
	}
	return nil
}

func sanitizeSensitiveText(value, key string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if key != "" {
		value = strings.ReplaceAll(value, key, "REDACTED")
	}
	return apiKeyHeaderRegex.ReplaceAllString(value, "x-apisports-key: REDACTED")
}

func isRetryableStatus(status int) bool {
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		return true
	}
	return status >= 500
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errAPISportsTransient)
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "..."
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
