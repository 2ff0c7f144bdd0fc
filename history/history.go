// Durable archive of successfully completed generations. History records
// are independent of task expiry: tasks get purged, history stays.
package history

import (
	"context"

	"imagen/types"
)

type Store interface {
	// Add archives a record. task_id is the natural dedup key: archiving
	// the same task twice is a no-op, not an error, which is what makes
	// redelivered success callbacks safe.
	Add(ctx context.Context, rec types.HistoryRecord) error

	// ForUser returns the user's records, newest first.
	ForUser(ctx context.Context, userID string) ([]types.HistoryRecord, error)
}
