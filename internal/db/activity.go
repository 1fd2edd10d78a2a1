package db

import (
	"context"
	"fmt"

	"github.com/jonathan/learn-overlay/internal/types"
)

// DefaultActivityLimit is used when ListActivity is given a non-positive limit.
const DefaultActivityLimit = 100

// LogActivity appends an entry to a project's activity log.
func (db *DB) LogActivity(ctx context.Context, projectID int64, action string) error {
	if action == "" {
		return fmt.Errorf("activity action cannot be empty")
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO activity_log (project_id, action) VALUES ($1, $2)`,
		projectID, action)
	if err != nil {
		return fmt.Errorf("failed to log activity %s: %w", action, err)
	}
	return nil
}

// ListActivity returns a project's activity newest first.
func (db *DB) ListActivity(ctx context.Context, projectID int64, limit int) ([]types.ActivityRecord, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, project_id, action, created_at
		 FROM activity_log WHERE project_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	records := []types.ActivityRecord{}
	for rows.Next() {
		var r types.ActivityRecord
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Action, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return records, nil
}
