package migrations

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

func HasMigrated(ctx context.Context, pool *pgxpool.Pool) bool {
	return tableExists(ctx, pool, "users") &&
		tableExists(ctx, pool, "image_tasks") &&
		tableExists(ctx, pool, "image_history") &&
		colExists(ctx, pool, "image_tasks", "completed_at")
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) {
	if HasMigrated(ctx, pool) {
		fmt.Println("Nothing to do")
		return
	}

	for i, m := range miglist {
		fmt.Println("Running migration ["+strconv.Itoa(i)+"/"+strconv.Itoa(len(miglist))+"]", m.name)
		m.fn(ctx, pool)
	}
}
