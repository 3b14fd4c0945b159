package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"renttrack/internal/model"
)

const itemColumns = `id, user_id, parent_id, name, username, password, pin, notes,
	start_date, end_date, status, category, contact_name, contact_phone,
	purchase_price, archived_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var parentID, username, password, pin, notes sql.NullString
	var startDate, endDate, category, contactName, contactPhone sql.NullString
	var price sql.NullFloat64
	var archivedAt sql.NullTime
	err := row.Scan(
		&item.ID, &item.UserID, &parentID, &item.Name, &username, &password, &pin, &notes,
		&startDate, &endDate, &item.Status, &category, &contactName, &contactPhone,
		&price, &archivedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.ParentID = parentID.String
	item.Username = username.String
	item.Password = password.String
	item.PIN = pin.String
	item.Notes = notes.String
	item.StartDate = startDate.String
	item.EndDate = endDate.String
	item.Category = category.String
	item.ContactName = contactName.String
	item.ContactPhone = contactPhone.String
	if price.Valid {
		item.PurchasePrice = &price.Float64
	}
	if archivedAt.Valid {
		item.ArchivedAt = &archivedAt.Time
	}
	return item, nil
}

// nullable maps an empty string to NULL, used for foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateItem creates a new item owned by userID. The id is generated here;
// status defaults to active. Appends a "created" activity entry.
func (s *Store) CreateItem(ctx context.Context, userID int64, in *model.Item) (*model.Item, error) {
	status := in.Status
	if status == "" {
		status = model.StatusActive
	}
	if !model.ValidStatus(status) || status == model.StatusExpired {
		return nil, ErrInvalidStatus
	}

	id := uuid.NewString()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, user_id, parent_id, name, username, password, pin, notes,
		                    start_date, end_date, status, category, contact_name, contact_phone, purchase_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, nullable(in.ParentID), in.Name, in.Username, in.Password, in.PIN, in.Notes,
		in.StartDate, in.EndDate, status, in.Category, in.ContactName, in.ContactPhone, in.PurchasePrice,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	if err := appendActivity(ctx, tx, userID, id, in.Name, model.ActionCreated, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item creation: %w", err)
	}

	s.notify(userID)
	return s.GetItem(ctx, userID, id)
}

// GetItem returns an item by ID. Returns (nil, nil) when the item does not
// exist and ErrPermissionDenied when it belongs to another user.
func (s *Store) GetItem(ctx context.Context, userID int64, id string) (*model.Item, error) {
	item, err := scanItem(s.DB.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	if item.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return item, nil
}

// ListItems returns all of a user's items ordered by creation time
// descending. This is the ordering the live subscription snapshots use.
func (s *Store) ListItems(ctx context.Context, userID int64) ([]model.Item, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// getForUpdate loads an item inside a mutation transaction, enforcing
// existence and ownership.
func (s *Store) getForUpdate(ctx context.Context, tx *sql.Tx, userID int64, id string) (*model.Item, error) {
	item, err := scanItem(tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	if item.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return item, nil
}

// ItemUpdate holds the partial fields of an item update. Nil fields are left
// untouched.
type ItemUpdate struct {
	Name          *string
	Username      *string
	Password      *string
	PIN           *string
	Notes         *string
	StartDate     *string
	EndDate       *string
	Category      *string
	ContactName   *string
	ContactPhone  *string
	PurchasePrice *float64
}

// UpdateItem applies a partial field update. The activity action is
// "password_changed" when the password field changed, "updated" otherwise.
// An update with no fields set is a no-op.
func (s *Store) UpdateItem(ctx context.Context, userID int64, id string, upd ItemUpdate) (*model.Item, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.getForUpdate(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}

	set := "updated_at = CURRENT_TIMESTAMP"
	var args []any
	field := func(column string, value any) {
		set += ", " + column + " = ?"
		args = append(args, value)
	}

	if upd.Name != nil {
		field("name", *upd.Name)
	}
	if upd.Username != nil {
		field("username", *upd.Username)
	}
	if upd.Password != nil {
		field("password", *upd.Password)
	}
	if upd.PIN != nil {
		field("pin", *upd.PIN)
	}
	if upd.Notes != nil {
		field("notes", *upd.Notes)
	}
	if upd.StartDate != nil {
		field("start_date", *upd.StartDate)
	}
	if upd.EndDate != nil {
		field("end_date", *upd.EndDate)
	}
	if upd.Category != nil {
		field("category", *upd.Category)
	}
	if upd.ContactName != nil {
		field("contact_name", *upd.ContactName)
	}
	if upd.ContactPhone != nil {
		field("contact_phone", *upd.ContactPhone)
	}
	if upd.PurchasePrice != nil {
		field("purchase_price", *upd.PurchasePrice)
	}

	// An update carrying no fields changes nothing: no timestamp bump, no
	// activity entry, no change event.
	if len(args) == 0 {
		return item, nil
	}

	args = append(args, id)
	if _, err := tx.ExecContext(ctx, `UPDATE items SET `+set+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	name := item.Name
	if upd.Name != nil {
		name = *upd.Name
	}
	action := model.ActionUpdated
	if upd.Password != nil && *upd.Password != item.Password {
		action = model.ActionPasswordChanged
	}
	if err := appendActivity(ctx, tx, userID, id, name, action, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item update: %w", err)
	}

	s.notify(userID)
	return s.GetItem(ctx, userID, id)
}

// ArchiveItem moves an item to archived and stamps archived_at. Archiving an
// already archived item is a no-op.
func (s *Store) ArchiveItem(ctx context.Context, userID int64, id string) (*model.Item, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.getForUpdate(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if item.Status == model.StatusArchived {
		return item, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET status = ?, archived_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusArchived, id,
	)
	if err != nil {
		return nil, fmt.Errorf("archiving item: %w", err)
	}

	if err := appendActivity(ctx, tx, userID, id, item.Name, model.ActionArchived, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing archive: %w", err)
	}

	s.notify(userID)
	return s.GetItem(ctx, userID, id)
}

// UnarchiveItem reactivates an archived item and clears archived_at.
func (s *Store) UnarchiveItem(ctx context.Context, userID int64, id string) (*model.Item, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.getForUpdate(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if item.Status != model.StatusArchived {
		return nil, ErrNotArchived
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET status = ?, archived_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusActive, id,
	)
	if err != nil {
		return nil, fmt.Errorf("unarchiving item: %w", err)
	}

	if err := appendActivity(ctx, tx, userID, id, item.Name, model.ActionUnarchived, ""); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing unarchive: %w", err)
	}

	s.notify(userID)
	return s.GetItem(ctx, userID, id)
}

// DuplicateItem copies an item under a new id with " (Copy)" appended to the
// name, status reset to active and fresh timestamps.
func (s *Store) DuplicateItem(ctx context.Context, userID int64, id string) (*model.Item, error) {
	src, err := s.GetItem(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, ErrNotFound
	}

	copyID := uuid.NewString()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, user_id, parent_id, name, username, password, pin, notes,
		                    start_date, end_date, status, category, contact_name, contact_phone, purchase_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		copyID, userID, nullable(src.ParentID), src.Name+" (Copy)", src.Username, src.Password, src.PIN, src.Notes,
		src.StartDate, src.EndDate, model.StatusActive, src.Category, src.ContactName, src.ContactPhone, src.PurchasePrice,
	)
	if err != nil {
		return nil, fmt.Errorf("duplicating item: %w", err)
	}

	if err := appendActivity(ctx, tx, userID, copyID, src.Name+" (Copy)", model.ActionCreated, "duplicated from "+src.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing duplicate: %w", err)
	}

	s.notify(userID)
	return s.GetItem(ctx, userID, copyID)
}

// UpdateItemStatus changes an item's status. Moving into expired is only
// accepted when the item's end date is actually past (the automatic expiry
// transition); manual moves into expired are rejected. Setting the current
// status again is a no-op with no activity entry and no change event.
func (s *Store) UpdateItemStatus(ctx context.Context, userID int64, id, status string) (*model.Item, error) {
	if !model.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.getForUpdate(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if item.Status == status {
		return item, nil
	}
	if status == model.StatusExpired && !model.EndDateInPast(item.EndDate, time.Now()) {
		return nil, ErrInvalidStatus
	}

	set := `status = ?, updated_at = CURRENT_TIMESTAMP`
	switch {
	case status == model.StatusArchived:
		set += `, archived_at = CURRENT_TIMESTAMP`
	case item.Status == model.StatusArchived:
		set += `, archived_at = NULL`
	}
	if _, err := tx.ExecContext(ctx, `UPDATE items SET `+set+` WHERE id = ?`, status, id); err != nil {
		return nil, fmt.Errorf("updating item status: %w", err)
	}

	action := model.ActionUpdated
	switch {
	case status == model.StatusArchived:
		action = model.ActionArchived
	case item.Status == model.StatusArchived:
		action = model.ActionUnarchived
	}
	details := fmt.Sprintf("status %s -> %s", item.Status, status)
	if err := appendActivity(ctx, tx, userID, id, item.Name, action, details); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing status update: %w", err)
	}

	s.notify(userID)
	return s.GetItem(ctx, userID, id)
}

// MarkItemExpired is the expiry sweeper's transition. Items that are no
// longer past due (edited or archived since the sweep query ran) are left
// alone.
func (s *Store) MarkItemExpired(ctx context.Context, userID int64, id string) (*model.Item, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.getForUpdate(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if !item.PastDue(time.Now()) {
		return item, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		model.StatusExpired, id,
	)
	if err != nil {
		return nil, fmt.Errorf("expiring item: %w", err)
	}

	if err := appendActivity(ctx, tx, userID, id, item.Name, model.ActionUpdated, "auto-expired"); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing expiry: %w", err)
	}

	s.notify(userID)
	return s.GetItem(ctx, userID, id)
}

// DeleteItem permanently removes an item. Only archived items can be deleted.
func (s *Store) DeleteItem(ctx context.Context, userID int64, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.getForUpdate(ctx, tx, userID, id)
	if err != nil {
		return err
	}
	if item.Status != model.StatusArchived {
		return ErrNotArchived
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	// The log entry keeps the name; the item row is gone.
	if err := appendActivity(ctx, tx, userID, id, item.Name, model.ActionDeleted, ""); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	s.notify(userID)
	return nil
}

// ListPastDue returns items across all users whose end date is before today
// and whose status is still live. Used by the expiry sweeper.
func (s *Store) ListPastDue(ctx context.Context, now time.Time) ([]model.Item, error) {
	today := now.Format(model.DateLayout)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE status IN (?, ?) AND end_date IS NOT NULL AND end_date != '' AND end_date < ?`,
		model.StatusActive, model.StatusSoldOut, today,
	)
	if err != nil {
		return nil, fmt.Errorf("listing past-due items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
