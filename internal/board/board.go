// Package board holds the client-side Kanban state: an authoritative server
// snapshot plus an optimistic working copy mutated by drag gestures before
// the corresponding remote write resolves. Every new snapshot replaces the
// working copy wholesale; unconfirmed local edits are discarded in favor of
// server truth.
package board

import (
	"context"
	"sync"
	"time"

	"renttrack/internal/model"
)

// Mutator issues remote status mutations. Implemented by pkg/client against
// the HTTP API and by fakes in tests.
type Mutator interface {
	UpdateStatus(ctx context.Context, itemID, status string) error
}

// Notice is a one-shot user-facing failure report for a fire-and-forget
// mutation.
type Notice struct {
	ItemID  string
	Status  string
	Message string
	Err     error
}

// Board is the two-layer optimistic state. All methods are safe for use from
// the subscription callback and the gesture handlers concurrently; only those
// two ever write to it.
type Board struct {
	mu       sync.Mutex
	snapshot []model.Item // last confirmed server state
	items    []model.Item // optimistic working copy
	drag     dragState
	mutator  Mutator
	notices  chan Notice
	now      func() time.Time
}

// New creates a board issuing remote mutations through m.
func New(m Mutator) *Board {
	return &Board{
		mutator: m,
		notices: make(chan Notice, 8),
		now:     time.Now,
	}
}

// Notices delivers mutation failures. The channel is buffered; if nobody is
// listening, old notices are dropped rather than blocking the gesture path.
func (b *Board) Notices() <-chan Notice {
	return b.notices
}

func (b *Board) notice(n Notice) {
	select {
	case b.notices <- n:
	default:
	}
}

// ApplySnapshot replaces both layers with a fresh server snapshot. Any
// optimistic edits not yet confirmed by the server are discarded.
func (b *Board) ApplySnapshot(items []model.Item) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = append([]model.Item(nil), items...)
	b.items = append([]model.Item(nil), items...)
}

// Items returns a copy of the optimistic working state.
func (b *Board) Items() []model.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Item(nil), b.items...)
}

// Reset discards optimistic edits and restores the last confirmed snapshot.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Board) resetLocked() {
	b.items = append([]model.Item(nil), b.snapshot...)
}

// ApplyLocalStatusChange updates the working copy immediately, before the
// remote write is confirmed. Entering archived stamps the archival timestamp;
// leaving it clears it. All other fields are left untouched.
func (b *Board) ApplyLocalStatusChange(itemID, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applyLocalStatusChangeLocked(itemID, status)
}

func (b *Board) applyLocalStatusChangeLocked(itemID, status string) {
	for i := range b.items {
		if b.items[i].ID != itemID {
			continue
		}
		leaving := b.items[i].Status
		b.items[i].Status = status
		switch {
		case status == model.StatusArchived:
			now := b.now()
			b.items[i].ArchivedAt = &now
		case leaving == model.StatusArchived:
			b.items[i].ArchivedAt = nil
		}
		return
	}
}

func (b *Board) findLocked(itemID string) *model.Item {
	for i := range b.items {
		if b.items[i].ID == itemID {
			return &b.items[i]
		}
	}
	return nil
}

// PastDue returns the ids of items the automatic expiry check would
// reclassify, based on the current snapshot. Uses the same predicate as the
// urgency filter.
func (b *Board) PastDue() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	var ids []string
	for i := range b.snapshot {
		if b.snapshot[i].PastDue(now) {
			ids = append(ids, b.snapshot[i].ID)
		}
	}
	return ids
}

// ReconcileExpired issues one expired-status mutation for every past-due item
// in the snapshot. No drag action is involved; this is the automatic
// transition. Returns the ids it issued mutations for.
func (b *Board) ReconcileExpired(ctx context.Context) []string {
	ids := b.PastDue()
	for _, id := range ids {
		b.ApplyLocalStatusChange(id, model.StatusExpired)
		go b.issue(ctx, id, model.StatusExpired)
	}
	return ids
}

// issue performs one remote mutation and, on rejection, rolls the board back
// to the last confirmed snapshot and raises a notice. Runs outside the
// gesture path.
func (b *Board) issue(ctx context.Context, itemID, status string) {
	if err := b.mutator.UpdateStatus(ctx, itemID, status); err != nil {
		b.Reset()
		b.notice(Notice{
			ItemID:  itemID,
			Status:  status,
			Message: "could not move item, changes were reverted",
			Err:     err,
		})
	}
}
