package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/infrastructure/repository/memory"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

func fixedClock(day string) func() time.Time {
	parsed, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return parsed }
}

func newRevalidationService(store tournament.Repository, provider *stubProvider, day string) *RevalidationService {
	crossChecker := NewCrossChecker(provider, logging.NewNop())
	crossChecker.now = fixedClock(day)
	validator := NewValidator(provider, crossChecker, logging.NewNop())
	validator.now = fixedClock(day)

	service := NewRevalidationService(store, provider, validator, RevalidationConfig{
		MaxConcurrent: 3,
		ChunkDelay:    time.Millisecond,
	}, logging.NewNop())
	service.now = fixedClock(day)
	return service
}

func checkedRecord() tournament.Record {
	record := validRecord()
	record.Validation = &tournament.Validation{
		LastChecked:     "2024-12-01",
		NextCheck:       "2024-12-31",
		Confidence:      tournament.ConfidenceHigh,
		Method:          methodScheduledRevalidation,
		ChecksPerformed: 2,
	}
	return record
}

func TestRevalidateOneRefreshesValidationOnPass(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		recent:    []tournament.Fixture{finishedFinal(time.Date(2024, 12, 20, 18, 0, 0, 0, time.UTC))},
		cupWinner: &tournament.Team{ID: 10, Name: "Maccabi Tel Aviv"},
	}
	store := memory.NewRecordStore([]tournament.Record{checkedRecord()})
	service := newRevalidationService(store, provider, "2025-01-01")

	result, err := service.RevalidateOne(context.Background(), 385)
	if err != nil {
		t.Fatalf("revalidate: %v", err)
	}
	if result.NeedsUpdate {
		t.Fatalf("passing record flagged for update: %+v", result)
	}
	if result.Verdict != VerdictPassed {
		t.Fatalf("verdict = %q, want passed", result.Verdict)
	}
	if result.Confidence != tournament.ConfidenceHigh {
		t.Fatalf("confidence = %q, want high", result.Confidence)
	}
	if result.NextCheck != "2025-01-31" {
		t.Fatalf("next check = %q, want 2025-01-31", result.NextCheck)
	}

	stored, err := store.Get(context.Background(), 385)
	if err != nil {
		t.Fatalf("get stored record: %v", err)
	}
	if stored.Validation.LastChecked != "2025-01-01" {
		t.Fatalf("last checked = %q, want 2025-01-01", stored.Validation.LastChecked)
	}
	if stored.Validation.ChecksPerformed != 3 {
		t.Fatalf("checks performed = %d, want 3", stored.Validation.ChecksPerformed)
	}
	if stored.Validation.Method != methodScheduledRevalidation {
		t.Fatalf("method = %q, want %q", stored.Validation.Method, methodScheduledRevalidation)
	}
	if stored.Validation.LastError != "" {
		t.Fatalf("last error = %q, want cleared", stored.Validation.LastError)
	}
}

func TestRevalidateOneKeepsVerifiedTier(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		recent:    []tournament.Fixture{finishedFinal(time.Date(2024, 12, 20, 18, 0, 0, 0, time.UTC))},
		cupWinner: &tournament.Team{ID: 10, Name: "Maccabi Tel Aviv"},
	}
	record := checkedRecord()
	record.Validation.Confidence = tournament.ConfidenceVerified
	store := memory.NewRecordStore([]tournament.Record{record})
	service := newRevalidationService(store, provider, "2025-01-01")

	result, err := service.RevalidateOne(context.Background(), 385)
	if err != nil {
		t.Fatalf("revalidate: %v", err)
	}
	if result.Confidence != tournament.ConfidenceVerified {
		t.Fatalf("confidence = %q, want verified to stay verified", result.Confidence)
	}
	if result.NextCheck != "2025-04-01" {
		t.Fatalf("next check = %q, want 2025-04-01 (90 days out)", result.NextCheck)
	}
}

func TestRevalidateOneFlagsResumedTournament(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		upcoming: []tournament.Fixture{{ID: 7, Status: "NS", Date: time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC)}},
	}
	store := memory.NewRecordStore([]tournament.Record{checkedRecord()})
	service := newRevalidationService(store, provider, "2025-01-01")

	result, err := service.RevalidateOne(context.Background(), 385)
	if err != nil {
		t.Fatalf("revalidate: %v", err)
	}
	if !result.NeedsUpdate || !result.ShouldRemoveFromFinished {
		t.Fatalf("resumed tournament not flagged: %+v", result)
	}
	if result.Reason != ReasonHasUpcomingMatches {
		t.Fatalf("reason = %q, want %q", result.Reason, ReasonHasUpcomingMatches)
	}

	stored, err := store.Get(context.Background(), 385)
	if err != nil {
		t.Fatalf("get stored record: %v", err)
	}
	if !stored.ShouldRemoveFromFinished {
		t.Fatal("removal flag must be persisted")
	}
	if stored.Validation.LastChecked != "2024-12-01" {
		t.Fatal("validation metadata must stay untouched for resumed tournaments")
	}
	for _, call := range provider.calls {
		if call != "upcoming" {
			t.Fatalf("unexpected provider call %q, resumed tournaments must short-circuit", call)
		}
	}
	if provider.upcomingLimit != 1 {
		t.Fatalf("upcoming limit = %d, want 1 (one fixture proves the tournament resumed)", provider.upcomingLimit)
	}
}

func TestRevalidateOneDegradesOnProviderFailure(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		recentErr: errors.New("provider quota exhausted"),
	}
	store := memory.NewRecordStore([]tournament.Record{checkedRecord()})
	service := newRevalidationService(store, provider, "2025-01-01")

	result, err := service.RevalidateOne(context.Background(), 385)
	if err != nil {
		t.Fatalf("provider failures must not propagate: %v", err)
	}
	if result.Error == "" {
		t.Fatal("result must carry the provider error")
	}
	if result.Confidence != tournament.ConfidenceLow {
		t.Fatalf("confidence = %q, want low", result.Confidence)
	}
	if result.NextCheck != "2025-01-08" {
		t.Fatalf("next check = %q, want 2025-01-08 (7 days out)", result.NextCheck)
	}

	stored, err := store.Get(context.Background(), 385)
	if err != nil {
		t.Fatalf("get stored record: %v", err)
	}
	if stored.Validation.Method != methodErrorRecovery {
		t.Fatalf("method = %q, want %q", stored.Validation.Method, methodErrorRecovery)
	}
	if stored.Validation.LastError == "" {
		t.Fatal("stored record must keep the error text")
	}
	if stored.Validation.ChecksPerformed != 2 {
		t.Fatalf("checks performed = %d, want 2 (a degraded attempt is not a completed check)", stored.Validation.ChecksPerformed)
	}
}

func TestRevalidateOneUnknownRecordIsNoOp(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore(nil)
	service := newRevalidationService(store, &stubProvider{}, "2025-01-01")

	result, err := service.RevalidateOne(context.Background(), 999)
	if err != nil {
		t.Fatalf("unknown record must not fail the caller: %v", err)
	}
	if result.LeagueID != 999 {
		t.Fatalf("league id = %d, want 999", result.LeagueID)
	}
	if result.NeedsUpdate || result.Error != "" {
		t.Fatalf("unknown record produced work: %+v", result)
	}
}

func TestBatchRevalidateKeepsInputOrderAndSkipsUnknownIDs(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{
		recent:    []tournament.Fixture{finishedFinal(time.Date(2024, 12, 20, 18, 0, 0, 0, time.UTC))},
		cupWinner: &tournament.Team{ID: 10, Name: "Maccabi Tel Aviv"},
	}
	second := checkedRecord()
	second.ID = 410
	second.Name = "State Cup"
	store := memory.NewRecordStore([]tournament.Record{checkedRecord(), second})
	service := newRevalidationService(store, provider, "2025-01-01")

	ids := []int64{385, 999, 410}
	results, err := service.BatchRevalidate(context.Background(), ids, 2)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != len(ids) {
		t.Fatalf("results = %d rows, want %d", len(results), len(ids))
	}
	for i, id := range ids {
		if results[i].LeagueID != id {
			t.Fatalf("results[%d].LeagueID = %d, want %d (input order)", i, results[i].LeagueID, id)
		}
	}
	if results[1].Error != "" || results[1].NeedsUpdate {
		t.Fatalf("unknown id must yield an empty no-op row: %+v", results[1])
	}
	if results[0].Verdict != VerdictPassed || results[2].Verdict != VerdictPassed {
		t.Fatalf("cached records affected by an unknown id: %+v", results)
	}
}

func TestBatchRevalidateEmptyInput(t *testing.T) {
	t.Parallel()

	service := newRevalidationService(memory.NewRecordStore(nil), &stubProvider{}, "2025-01-01")

	results, err := service.BatchRevalidate(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %d rows, want 0", len(results))
	}
}

func TestScanDue(t *testing.T) {
	t.Parallel()

	due := checkedRecord() // next check 2024-12-31, due on 2025-01-01
	fresh := checkedRecord()
	fresh.ID = 410
	fresh.Validation.NextCheck = "2025-02-01"
	neverChecked := tournament.Record{ID: 100, Name: "Super Cup", Year: 2024}

	store := memory.NewRecordStore([]tournament.Record{due, fresh, neverChecked})
	service := newRevalidationService(store, &stubProvider{}, "2025-01-01")

	rows, err := service.ScanDue(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].LeagueID != 100 || rows[1].LeagueID != 385 {
		t.Fatalf("rows not in ascending league order: %+v", rows)
	}
	if rows[0].State != tournament.StateNeverChecked {
		t.Fatalf("state = %q, want never_checked", rows[0].State)
	}
	if rows[1].State != tournament.StateDue {
		t.Fatalf("state = %q, want due", rows[1].State)
	}
}

func TestGetCacheStats(t *testing.T) {
	t.Parallel()

	due := checkedRecord()
	fresh := checkedRecord()
	fresh.ID = 410
	fresh.Validation.NextCheck = "2025-02-01"
	neverChecked := tournament.Record{ID: 100, Name: "Super Cup", Year: 2024}
	errored := checkedRecord()
	errored.ID = 500
	errored.Validation.NextCheck = "2025-02-01"
	errored.Validation.LastError = "provider quota exhausted"
	flagged := checkedRecord()
	flagged.ID = 600
	flagged.ShouldRemoveFromFinished = true

	store := memory.NewRecordStore([]tournament.Record{due, fresh, neverChecked, errored, flagged})
	service := newRevalidationService(store, &stubProvider{}, "2025-01-01")

	stats, err := service.GetCacheStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 5 {
		t.Fatalf("total = %d, want 5", stats.Total)
	}
	if stats.Due != 2 {
		t.Fatalf("due = %d, want 2 (one past next-check, one never checked)", stats.Due)
	}
	if stats.Fresh != 2 {
		t.Fatalf("fresh = %d, want 2 (clean fresh plus non-due errored)", stats.Fresh)
	}
	if stats.NeverChecked != 1 {
		t.Fatalf("never checked = %d, want 1", stats.NeverChecked)
	}
	if stats.Errored != 1 {
		t.Fatalf("errored = %d, want 1", stats.Errored)
	}
	if stats.NeedsCorrection != 1 {
		t.Fatalf("needs correction = %d, want 1", stats.NeedsCorrection)
	}
	if stats.ByConfidence[tournament.ConfidenceHigh] != 4 {
		t.Fatalf("high tier = %d, want 4", stats.ByConfidence[tournament.ConfidenceHigh])
	}
	if stats.ChecksPerformed != 8 {
		t.Fatalf("checks performed = %d, want 8", stats.ChecksPerformed)
	}
	if stats.APICallsSaved != 2 {
		t.Fatalf("api calls saved = %d, want 2 (one per fresh record)", stats.APICallsSaved)
	}
	if stats.HitRate != 0.4 {
		t.Fatalf("hit rate = %.2f, want 0.4", stats.HitRate)
	}
}

func TestNeedsRevalidation(t *testing.T) {
	t.Parallel()

	store := memory.NewRecordStore([]tournament.Record{checkedRecord()})
	service := newRevalidationService(store, &stubProvider{}, "2025-01-01")

	due, err := service.NeedsRevalidation(context.Background(), 385)
	if err != nil {
		t.Fatalf("needs revalidation: %v", err)
	}
	if !due {
		t.Fatal("record past its next-check day must be due")
	}

	service.now = fixedClock("2024-12-15")
	due, err = service.NeedsRevalidation(context.Background(), 385)
	if err != nil {
		t.Fatalf("needs revalidation: %v", err)
	}
	if due {
		t.Fatal("record before its next-check day must not be due")
	}
}
