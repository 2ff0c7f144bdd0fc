package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var miglist = []migrator{
	{
		name: "create_users",
		fn: func(ctx context.Context, pool *pgxpool.Pool) {
			if tableExists(ctx, pool, "users") {
				fmt.Println("Nothing to do")
				return
			}

			_, err := pool.Exec(ctx, `CREATE TABLE users (
				user_id TEXT PRIMARY KEY,
				api_token TEXT NOT NULL UNIQUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`)

			if err != nil {
				panic(err)
			}
		},
	},
	{
		name: "create_image_tasks",
		fn: func(ctx context.Context, pool *pgxpool.Pool) {
			if tableExists(ctx, pool, "image_tasks") {
				fmt.Println("Nothing to do")
				return
			}

			_, err := pool.Exec(ctx, `CREATE TABLE image_tasks (
				task_id TEXT PRIMARY KEY,
				user_id TEXT REFERENCES users (user_id) ON DELETE SET NULL,
				prompt TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'processing', 'completed', 'error')),
				image_data TEXT,
				error TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMPTZ
			)`)

			if err != nil {
				panic(err)
			}

			// The sweeper and the status poller both filter on these
			_, err = pool.Exec(ctx, "CREATE INDEX image_tasks_status_idx ON image_tasks (status)")

			if err != nil {
				panic(err)
			}

			_, err = pool.Exec(ctx, "CREATE INDEX image_tasks_created_at_idx ON image_tasks (created_at)")

			if err != nil {
				panic(err)
			}
		},
	},
	{
		name: "create_image_history",
		fn: func(ctx context.Context, pool *pgxpool.Pool) {
			if tableExists(ctx, pool, "image_history") {
				fmt.Println("Nothing to do")
				return
			}

			// task_id is deliberately not a foreign key: history must
			// survive task expiry
			_, err := pool.Exec(ctx, `CREATE TABLE image_history (
				id TEXT PRIMARY KEY,
				task_id TEXT NOT NULL UNIQUE,
				user_id TEXT,
				prompt TEXT NOT NULL,
				image_data TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`)

			if err != nil {
				panic(err)
			}

			_, err = pool.Exec(ctx, "CREATE INDEX image_history_user_idx ON image_history (user_id, created_at DESC)")

			if err != nil {
				panic(err)
			}
		},
	},
}
