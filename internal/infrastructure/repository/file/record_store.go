package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/valyala/bytebufferpool"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
	"github.com/matchpulse/trophy-tracker/internal/platform/logging"
)

// RecordStore persists finished-tournament records as a single JSON document
// keyed by league ID. Writes go through a temp file in the same directory and
// an atomic rename, so a crash mid-write never truncates the cache.
type RecordStore struct {
	path   string
	logger *logging.Logger

	mu      sync.RWMutex
	records map[int64]tournament.Record
}

func NewRecordStore(path string, logger *logging.Logger) (*RecordStore, error) {
	if logger == nil {
		logger = logging.Default()
	}

	store := &RecordStore{
		path:    path,
		logger:  logger,
		records: make(map[int64]tournament.Record),
	}
	if err := store.load(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *RecordStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read record file %s: %w", s.path, err)
	}
	if len(raw) == 0 {
		return nil
	}

	byKey := make(map[string]tournament.Record)
	if err := sonic.Unmarshal(raw, &byKey); err != nil {
		return fmt.Errorf("decode record file %s: %w", s.path, err)
	}

	for key, record := range byKey {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.logger.Warn("skipping record with non-numeric key", "key", key)
			continue
		}
		if record.ID == 0 {
			record.ID = id
		}
		s.records[id] = record
	}

	return nil
}

func (s *RecordStore) Get(_ context.Context, id int64) (tournament.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return tournament.Record{}, tournament.ErrRecordNotFound
	}

	return record, nil
}

func (s *RecordStore) Set(_ context.Context, record tournament.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = record

	return s.persist()
}

func (s *RecordStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return nil
	}
	delete(s.records, id)

	return s.persist()
}

func (s *RecordStore) Keys(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedIDs(), nil
}

func (s *RecordStore) List(_ context.Context) ([]tournament.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.sortedIDs()
	out := make([]tournament.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id])
	}

	return out, nil
}

func (s *RecordStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// persist writes the whole document with ascending keys. Caller holds the
// write lock.
func (s *RecordStore) persist() error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_ = buf.WriteByte('{')
	for i, id := range s.sortedIDs() {
		encoded, err := sonic.Marshal(s.records[id])
		if err != nil {
			return fmt.Errorf("encode record league_id=%d: %w", id, err)
		}
		if i > 0 {
			_ = buf.WriteByte(',')
		}
		_, _ = buf.WriteString(strconv.Quote(strconv.FormatInt(id, 10)))
		_ = buf.WriteByte(':')
		_, _ = buf.Write(encoded)
	}
	_ = buf.WriteByte('}')
	_ = buf.WriteByte('\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create record directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp record file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp record file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace record file %s: %w", s.path, err)
	}

	return nil
}
