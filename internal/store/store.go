package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asaskevich/EventBus"
)

// Sentinel errors returned by mutations. Handlers map these to HTTP statuses.
var (
	ErrNotFound         = errors.New("item not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrNotArchived      = errors.New("item not archived")
)

// TopicItemsChanged is published with the owning user's id after every
// committed item mutation. The live hub and the list cache subscribe to it.
const TopicItemsChanged = "items.changed"

// Store wraps all database operations. Every item mutation appends one
// activity log entry in the same transaction and publishes TopicItemsChanged
// after commit.
type Store struct {
	DB  *sql.DB
	Bus EventBus.Bus
}

// New creates a store. The bus may be nil (no change notifications).
func New(db *sql.DB, bus EventBus.Bus) *Store {
	return &Store{DB: db, Bus: bus}
}

func (s *Store) notify(userID int64) {
	if s.Bus != nil {
		s.Bus.Publish(TopicItemsChanged, userID)
	}
}

// appendActivity inserts an audit record inside the mutation's transaction.
func appendActivity(ctx context.Context, tx *sql.Tx, userID int64, itemID, itemName, action, details string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO activity_logs (user_id, item_id, item_name, action, details) VALUES (?, ?, ?, ?, ?)`,
		userID, itemID, itemName, action, details,
	)
	if err != nil {
		return fmt.Errorf("appending activity log: %w", err)
	}
	return nil
}
