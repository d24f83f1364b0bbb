package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/matchpulse/trophy-tracker/internal/domain/tournament"
)

// RecordStore keeps finished-tournament records in process memory. It backs
// tests and the no-persistence development mode.
type RecordStore struct {
	mu      sync.RWMutex
	records map[int64]tournament.Record
}

func NewRecordStore(records []tournament.Record) *RecordStore {
	byID := make(map[int64]tournament.Record, len(records))
	for _, record := range records {
		if record.ID <= 0 {
			continue
		}
		byID[record.ID] = record
	}

	return &RecordStore{records: byID}
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

	return nil
}

func (s *RecordStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)

	return nil
}

func (s *RecordStore) Keys(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int64, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out, nil
}

func (s *RecordStore) List(_ context.Context) ([]tournament.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]tournament.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id])
	}

	return out, nil
}
