package store

import (
	"context"
	"database/sql"
	"fmt"

	"renttrack/internal/model"
)

// ListActivity returns a user's activity log entries, newest first. A limit
// of 0 or less defaults to 100. Entries are append-only; there is no write
// API beyond the per-mutation insert.
func (s *Store) ListActivity(ctx context.Context, userID int64, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, item_id, item_name, action, details, created_at
		 FROM activity_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityLog
	for rows.Next() {
		var e model.ActivityLog
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.ItemID, &e.ItemName, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListItemActivity returns the activity trail for a single item.
func (s *Store) ListItemActivity(ctx context.Context, userID int64, itemID string) ([]model.ActivityLog, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, item_id, item_name, action, details, created_at
		 FROM activity_logs WHERE user_id = ? AND item_id = ? ORDER BY created_at DESC, id DESC`,
		userID, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityLog
	for rows.Next() {
		var e model.ActivityLog
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.ItemID, &e.ItemName, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
