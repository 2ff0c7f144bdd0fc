package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"imagen/types"
	"imagen/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	taskColsArr = utils.GetCols(types.Task{})
	taskColsStr = strings.Join(taskColsArr, ", ")
)

// PostgresStore is the durable task store backed by the image_tasks table.
type PostgresStore struct {
	Pool      *pgxpool.Pool
	Retention time.Duration
	MaxAge    time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, retention, maxAge time.Duration) *PostgresStore {
	return &PostgresStore{
		Pool:      pool,
		Retention: retention,
		MaxAge:    maxAge,
	}
}

func (s *PostgresStore) Create(ctx context.Context, prompt string, userID string) (*types.Task, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	task := types.Task{
		TaskID: uuid.NewString(),
		UserID: pgtype.Text{String: userID, Valid: userID != ""},
		Prompt: prompt,
		Status: types.TaskStatusPending,
	}

	err := s.Pool.QueryRow(
		ctx,
		"INSERT INTO image_tasks (task_id, user_id, prompt, status) VALUES ($1, $2, $3, $4) RETURNING created_at",
		task.TaskID,
		task.UserID,
		task.Prompt,
		task.Status,
	).Scan(&task.CreatedAt)

	if err != nil {
		return nil, err
	}

	return &task, nil
}

func (s *PostgresStore) Get(ctx context.Context, taskID string) (*types.Task, error) {
	row, err := s.Pool.Query(ctx, "SELECT "+taskColsStr+" FROM image_tasks WHERE task_id = $1", taskID)

	if err != nil {
		return nil, err
	}

	task, err := pgx.CollectOneRow(row, pgx.RowToStructByName[types.Task])

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &task, nil
}

func (s *PostgresStore) Update(ctx context.Context, taskID string, upd Update) error {
	// The status guard in the WHERE clause is what makes terminal states
	// immutable: a redelivered callback racing a status read can never
	// observe a half-applied record.
	var tag pgconn.CommandTag
	var err error

	switch upd.Status {
	case types.TaskStatusCompleted:
		tag, err = s.Pool.Exec(
			ctx,
			"UPDATE image_tasks SET status = $2, image_data = $3, error = NULL, completed_at = NOW() WHERE task_id = $1 AND status NOT IN ($4, $5)",
			taskID, upd.Status, upd.ImageData, types.TaskStatusCompleted, types.TaskStatusError,
		)
	case types.TaskStatusError:
		tag, err = s.Pool.Exec(
			ctx,
			"UPDATE image_tasks SET status = $2, error = $3, image_data = NULL, completed_at = NOW() WHERE task_id = $1 AND status NOT IN ($4, $5)",
			taskID, upd.Status, upd.Error, types.TaskStatusCompleted, types.TaskStatusError,
		)
	case types.TaskStatusPending, types.TaskStatusProcessing:
		tag, err = s.Pool.Exec(
			ctx,
			"UPDATE image_tasks SET status = $2 WHERE task_id = $1 AND status NOT IN ($3, $4)",
			taskID, upd.Status, types.TaskStatusCompleted, types.TaskStatusError,
		)
	default:
		return errors.New("unknown task status: " + upd.Status)
	}

	if err != nil {
		return err
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = s.Pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM image_tasks WHERE task_id = $1)", taskID).Scan(&exists)

	if err != nil {
		return err
	}

	if exists {
		return ErrTerminal
	}

	return ErrNotFound
}

func (s *PostgresStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.Pool.QueryRow(
		ctx,
		"SELECT COUNT(*) FROM image_tasks WHERE status NOT IN ($1, $2)",
		types.TaskStatusCompleted, types.TaskStatusError,
	).Scan(&count)

	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *PostgresStore) ExpireOld(ctx context.Context) (int64, error) {
	now := time.Now()

	tag, err := s.Pool.Exec(
		ctx,
		"DELETE FROM image_tasks WHERE (completed_at IS NOT NULL AND completed_at < $1) OR created_at < $2",
		now.Add(-s.Retention), now.Add(-s.MaxAge),
	)

	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
