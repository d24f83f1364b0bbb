package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

func testRecord(id int64, name string) tournament.Record {
	return tournament.Record{
		ID:   id,
		Name: name,
		Year: 2024,
		Winner: &tournament.Winner{
			ID:         10,
			Name:       "Maccabi Tel Aviv",
			Confidence: tournament.ConfidenceHigh,
		},
		Validation: &tournament.Validation{
			LastChecked:     "2025-01-01",
			NextCheck:       "2025-01-31",
			Confidence:      tournament.ConfidenceHigh,
			Method:          "scheduled_revalidation",
			ChecksPerformed: 1,
		},
	}
}

func TestRecordStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "finished_tournaments.json")
	store, err := NewRecordStore(path, logging.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx := context.Background()
	if err := store.Set(ctx, testRecord(385, "Toto Cup Ligat Al")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, testRecord(39, "Premier League")); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A fresh store must read back what the first one wrote.
	reopened, err := NewRecordStore(path, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}

	record, err := reopened.Get(ctx, 385)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Name != "Toto Cup Ligat Al" {
		t.Fatalf("name = %q", record.Name)
	}
	if record.Validation == nil || record.Validation.NextCheck != "2025-01-31" {
		t.Fatalf("validation lost in round trip: %+v", record.Validation)
	}

	keys, err := reopened.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != 39 || keys[1] != 385 {
		t.Fatalf("keys = %v, want ascending [39 385]", keys)
	}
}

func TestRecordStoreGetMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "finished_tournaments.json")
	store, err := NewRecordStore(path, logging.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := store.Get(context.Background(), 999); !errors.Is(err, tournament.ErrRecordNotFound) {
		t.Fatalf("err = %v, want record-not-found", err)
	}
}

func TestRecordStoreDelete(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "finished_tournaments.json")
	store, err := NewRecordStore(path, logging.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx := context.Background()
	if err := store.Set(ctx, testRecord(385, "Toto Cup Ligat Al")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Delete(ctx, 385); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, 385); !errors.Is(err, tournament.ErrRecordNotFound) {
		t.Fatalf("err = %v, want record-not-found after delete", err)
	}

	// Deleting an absent record is a no-op, not an error.
	if err := store.Delete(ctx, 385); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRecordStoreWritesSortedKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "finished_tournaments.json")
	store, err := NewRecordStore(path, logging.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx := context.Background()
	for _, id := range []int64{385, 39, 140} {
		if err := store.Set(ctx, testRecord(id, "Cup")); err != nil {
			t.Fatalf("set %d: %v", id, err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	text := string(raw)
	if !(strings.Index(text, `"39"`) < strings.Index(text, `"140"`) && strings.Index(text, `"140"`) < strings.Index(text, `"385"`)) {
		t.Fatalf("keys not written in ascending order: %s", text)
	}
}

func TestRecordStoreToleratesMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "finished_tournaments.json")
	store, err := NewRecordStore(path, logging.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	keys, err := store.Keys(context.Background())
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("keys = %v, want empty", keys)
	}

	// First write creates the directory.
	if err := store.Set(context.Background(), testRecord(385, "Toto Cup Ligat Al")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not created: %v", err)
	}
}

func TestRecordStoreRejectsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "finished_tournaments.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	if _, err := NewRecordStore(path, logging.NewNop()); err == nil {
		t.Fatal("corrupt cache file must fail loudly instead of silently starting empty")
	}
}
