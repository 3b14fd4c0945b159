package model

import "time"

// ActivityLog is an immutable audit record appended on every item mutation.
// Entries are never updated or deleted by the application.
type ActivityLog struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ItemID    string    `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity actions.
const (
	ActionCreated         = "created"
	ActionUpdated         = "updated"
	ActionPasswordChanged = "password_changed"
	ActionArchived        = "archived"
	ActionUnarchived      = "unarchived"
	ActionDeleted         = "deleted"
)
