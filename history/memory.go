package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"imagen/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// MemoryStore mirrors the Postgres semantics in-process: dedup by
// task_id, newest-first listing.
type MemoryStore struct {
	mu     sync.RWMutex
	byTask map[string]types.HistoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byTask: make(map[string]types.HistoryRecord)}
}

func (s *MemoryStore) Add(ctx context.Context, rec types.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTask[rec.TaskID]; ok {
		return nil
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	if !rec.CreatedAt.Valid {
		rec.CreatedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}

	s.byTask[rec.TaskID] = rec

	return nil
}

func (s *MemoryStore) ForUser(ctx context.Context, userID string) ([]types.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []types.HistoryRecord

	for _, rec := range s.byTask {
		if rec.UserID.Valid && rec.UserID.String == userID {
			recs = append(recs, rec)
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Time.After(recs[j].CreatedAt.Time)
	})

	return recs, nil
}
