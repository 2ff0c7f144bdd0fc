package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"imagen/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// MemoryStore is the ephemeral task store. Records live in a single
// mutex-guarded map, so every update is atomic per record. Expired
// entries are evicted lazily on Get and proactively by the sweeper.
type MemoryStore struct {
	mu        sync.RWMutex
	tasks     map[string]types.Task
	Retention time.Duration
	MaxAge    time.Duration
}

func NewMemoryStore(retention, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		tasks:     make(map[string]types.Task),
		Retention: retention,
		MaxAge:    maxAge,
	}
}

func (s *MemoryStore) expired(task types.Task, now time.Time) bool {
	if task.CompletedAt.Valid && now.Sub(task.CompletedAt.Time) > s.Retention {
		return true
	}

	return task.CreatedAt.Valid && now.Sub(task.CreatedAt.Time) > s.MaxAge
}

func (s *MemoryStore) Create(ctx context.Context, prompt string, userID string) (*types.Task, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	task := types.Task{
		TaskID:    uuid.NewString(),
		UserID:    pgtype.Text{String: userID, Valid: userID != ""},
		Prompt:    prompt,
		Status:    types.TaskStatusPending,
		CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}

	s.mu.Lock()
	s.tasks[task.TaskID] = task
	s.mu.Unlock()

	return &task, nil
}

func (s *MemoryStore) Get(ctx context.Context, taskID string) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]

	if !ok {
		return nil, ErrNotFound
	}

	if s.expired(task, time.Now()) {
		delete(s.tasks, taskID)
		return nil, ErrNotFound
	}

	return &task, nil
}

func (s *MemoryStore) Update(ctx context.Context, taskID string, upd Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]

	if !ok {
		return ErrNotFound
	}

	if types.TaskStatusTerminal(task.Status) {
		return ErrTerminal
	}

	switch upd.Status {
	case types.TaskStatusCompleted:
		task.Status = upd.Status
		task.ImageData = pgtype.Text{String: upd.ImageData, Valid: true}
		task.Error = pgtype.Text{}
		task.CompletedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	case types.TaskStatusError:
		task.Status = upd.Status
		task.Error = pgtype.Text{String: upd.Error, Valid: true}
		task.ImageData = pgtype.Text{}
		task.CompletedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	case types.TaskStatusPending, types.TaskStatusProcessing:
		task.Status = upd.Status
	default:
		return errors.New("unknown task status: " + upd.Status)
	}

	s.tasks[taskID] = task

	return nil
}

func (s *MemoryStore) CountActive(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64

	for _, task := range s.tasks {
		if !types.TaskStatusTerminal(task.Status) {
			count++
		}
	}

	return count, nil
}

func (s *MemoryStore) ExpireOld(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	var evicted int64

	for id, task := range s.tasks {
		if s.expired(task, now) {
			delete(s.tasks, id)
			evicted++
		}
	}

	return evicted, nil
}
