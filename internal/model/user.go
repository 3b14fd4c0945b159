package model

import "time"

// User represents an account. New registrations start as pending and are
// gated from the item routes until an admin approves them.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Account approval statuses.
const (
	ApprovalPending   = "pending"
	ApprovalActive    = "active"
	ApprovalSuspended = "suspended"
)

// ValidApproval reports whether s is a known approval status.
func ValidApproval(s string) bool {
	switch s {
	case ApprovalPending, ApprovalActive, ApprovalSuspended:
		return true
	}
	return false
}
