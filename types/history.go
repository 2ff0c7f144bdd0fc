package types

import "github.com/jackc/pgx/v5/pgtype"

// @ci table=image_history
//
// A history record is a durable archive of a successfully completed task.
// Records outlive the task rows themselves, which may be expired.
type HistoryRecord struct {
	ID        string             `db:"id" json:"id" validate:"required" description:"The history record ID."`
	TaskID    string             `db:"task_id" json:"task_id" validate:"required" description:"The task this record was archived from. Unique."`
	UserID    pgtype.Text        `db:"user_id" json:"user_id" description:"The user the record belongs to."`
	Prompt    string             `db:"prompt" json:"prompt" validate:"required" description:"The prompt the image was generated from."`
	ImageData pgtype.Text        `db:"image_data" json:"image_data" description:"Base64 encoded image data."`
	CreatedAt pgtype.Timestamptz `db:"created_at" json:"created_at" description:"The time the record was archived."`
}

type HistoryList struct {
	History []HistoryRecord `json:"history" description:"The callers history records, newest first."`
}
