package model

import "time"

// Item represents a tracked subscription, rental or credential. A master item
// has no ParentID; an assigned item is a sub-rental referencing its master.
type Item struct {
	ID            string     `json:"id"`
	UserID        int64      `json:"user_id"`
	ParentID      string     `json:"parent_id,omitempty"`
	Name          string     `json:"name"`
	Username      string     `json:"username,omitempty"`
	Password      string     `json:"password,omitempty"`
	PIN           string     `json:"pin,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	StartDate     string     `json:"start_date,omitempty"`
	EndDate       string     `json:"end_date,omitempty"`
	Status        string     `json:"status"`
	Category      string     `json:"category,omitempty"`
	ContactName   string     `json:"contact_name,omitempty"`
	ContactPhone  string     `json:"contact_phone,omitempty"`
	PurchasePrice *float64   `json:"purchase_price,omitempty"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Item statuses.
const (
	StatusActive   = "active"
	StatusSoldOut  = "sold_out"
	StatusExpired  = "expired"
	StatusArchived = "archived"
)

// DateLayout is the ISO format used for start and end dates.
const DateLayout = "2006-01-02"

// ValidStatus reports whether s is a known item status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusSoldOut, StatusExpired, StatusArchived:
		return true
	}
	return false
}

// ValidDate reports whether s parses as an ISO date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// DraggableStatus reports whether s is a status a card can be dragged into.
// Expired is derived from the end date and is never a manual drop target.
func DraggableStatus(s string) bool {
	return ValidStatus(s) && s != StatusExpired
}

// IsMaster reports whether the item is a top-level product.
func (i *Item) IsMaster() bool {
	return i.ParentID == ""
}

// EndDateInPast reports whether endDate (ISO date) is strictly before today.
// Malformed or empty dates are never considered past. This is the single
// expiry predicate shared by the urgency filter and the automatic expiry
// transition.
func EndDateInPast(endDate string, now time.Time) bool {
	d, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return d.Before(today)
}

// EndDateWithin reports whether endDate falls between today and today+days,
// inclusive. Past and missing dates return false.
func EndDateWithin(endDate string, now time.Time, days int) bool {
	d, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		return false
	}
	return !d.After(today.AddDate(0, 0, days))
}

// PastDue reports whether the item should be reclassified to expired: its end
// date is in the past and it is still in a live status.
func (i *Item) PastDue(now time.Time) bool {
	if i.Status != StatusActive && i.Status != StatusSoldOut {
		return false
	}
	return EndDateInPast(i.EndDate, now)
}
