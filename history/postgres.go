package history

import (
	"context"
	"strings"

	"imagen/types"
	"imagen/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	historyColsArr = utils.GetCols(types.HistoryRecord{})
	historyColsStr = strings.Join(historyColsArr, ", ")
)

type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{Pool: pool}
}

func (s *PostgresStore) Add(ctx context.Context, rec types.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	// ON CONFLICT DO NOTHING instead of matching on the unique-violation
	// error code: concurrent redeliveries for the same task_id must both
	// succeed.
	_, err := s.Pool.Exec(
		ctx,
		"INSERT INTO image_history (id, task_id, user_id, prompt, image_data) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (task_id) DO NOTHING",
		rec.ID, rec.TaskID, rec.UserID, rec.Prompt, rec.ImageData,
	)

	return err
}

func (s *PostgresStore) ForUser(ctx context.Context, userID string) ([]types.HistoryRecord, error) {
	rows, err := s.Pool.Query(
		ctx,
		"SELECT "+historyColsStr+" FROM image_history WHERE user_id = $1 ORDER BY created_at DESC",
		userID,
	)

	if err != nil {
		return nil, err
	}

	recs, err := pgx.CollectRows(rows, pgx.RowToStructByName[types.HistoryRecord])

	if err != nil {
		return nil, err
	}

	return recs, nil
}
