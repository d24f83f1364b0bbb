package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/infrastructure/repository/memory"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
	"github.com/matchpulse/trophy-tracker/internal/usecase"
)

const testJobToken = "test-job-token"

type fakeProvider struct {
	recent    []tournament.Fixture
	cupWinner *tournament.Team
}

func (f *fakeProvider) GetUpcomingFixtures(context.Context, int64, int, int) ([]tournament.Fixture, error) {
	return nil, nil
}

func (f *fakeProvider) GetRecentFixtures(context.Context, int64, int, int, bool) ([]tournament.Fixture, error) {
	return f.recent, nil
}

func (f *fakeProvider) GetStandings(context.Context, int64, int) ([][]tournament.StandingRow, error) {
	return nil, nil
}

func (f *fakeProvider) GetCupWinner(context.Context, int64, int) (*tournament.Team, error) {
	return f.cupWinner, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	goals := func(v int) *int { return &v }
	provider := &fakeProvider{
		recent: []tournament.Fixture{{
			ID:        9001,
			Round:     "Final",
			Status:    "FT",
			Date:      time.Now().UTC().Add(-30 * 24 * time.Hour),
			HomeTeam:  tournament.Team{ID: 10, Name: "Maccabi Tel Aviv", Logo: "https://media.example/10.png"},
			AwayTeam:  tournament.Team{ID: 20, Name: "Hapoel Beer Sheva", Logo: "https://media.example/20.png"},
			HomeGoals: goals(2),
			AwayGoals: goals(1),
		}},
		cupWinner: &tournament.Team{ID: 10, Name: "Maccabi Tel Aviv"},
	}
	store := memory.NewRecordStore([]tournament.Record{{
		ID:   385,
		Name: "Toto Cup Ligat Al",
		Year: 2024,
		Winner: &tournament.Winner{
			ID:         10,
			Name:       "Maccabi Tel Aviv",
			Logo:       "https://media.example/10.png",
			Confidence: tournament.ConfidenceHigh,
		},
	}})

	nopLogger := logging.NewNop()
	crossChecker := usecase.NewCrossChecker(provider, nopLogger)
	validator := usecase.NewValidator(provider, crossChecker, nopLogger)
	revalidationService := usecase.NewRevalidationService(store, provider, validator, usecase.RevalidationConfig{
		MaxConcurrent: 2,
		ChunkDelay:    time.Millisecond,
	}, nopLogger)
	detector := usecase.NewDetector(provider, nopLogger)
	fixService := usecase.NewFixService(store, detector, nopLogger)
	tournamentService := usecase.NewTournamentService(store, nopLogger)

	handler := NewHandler(tournamentService, revalidationService, fixService, slog.Default())
	return NewRouter(handler, slog.Default(), false, nil, testJobToken)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouterListFinishedTournaments(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tournaments/finished", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	items, ok := body["data"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("data = %v, want one record", body["data"])
	}
}

func TestRouterGetFinishedTournament(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tournaments/finished/385", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tournaments/finished/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown league", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tournaments/finished/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for non-numeric league id", rec.Code)
	}
}

func TestRouterCacheEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cache/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d, want 200", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	stats, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %v, want stats object", body["data"])
	}
	if total, _ := stats["total"].(float64); total != 1 {
		t.Fatalf("total = %v, want 1", stats["total"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cache/due", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("due status = %d, want 200", rec.Code)
	}
}

func TestRouterRevalidateJobRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/revalidate", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without token", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/revalidate", nil)
	req.Header.Set("X-Internal-Job-Token", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 with wrong token", rec.Code)
	}
}

func TestRouterRevalidateJobSweepsDueRecords(t *testing.T) {
	router := newTestRouter(t)

	// Empty body: the job falls back to every due record. The seeded record
	// has never been checked, so it is due.
	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/revalidate", nil)
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data = %v, want job summary", body["data"])
	}
	if requested, _ := data["requested"].(float64); requested != 1 {
		t.Fatalf("requested = %v, want 1", data["requested"])
	}
}

func TestRouterFixJobValidatesPayload(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/fix", strings.NewReader(`{"issues":[]}`))
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty issue list", rec.Code)
	}

	payload := `{"issues":[{"league_id":385,"reason":"HAS_UPCOMING_MATCHES"}]}`
	req = httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/fix", strings.NewReader(payload))
	req.Header.Set("X-Internal-Job-Token", testJobToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
}
