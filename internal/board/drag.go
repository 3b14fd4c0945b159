package board

import (
	"context"
	"errors"

	"renttrack/internal/model"
)

// Drag gesture errors.
var (
	ErrDragActive  = errors.New("a drag is already active")
	ErrNoDrag      = errors.New("no active drag")
	ErrUnknownItem = errors.New("unknown item")
)

type dragPhase int

const (
	phaseIdle dragPhase = iota
	phaseDragging
)

// dragState is the per-gesture state machine: Idle, or Dragging one item.
// candidate holds the last hover target's status; later hovers overwrite it,
// so an ambiguous drop resolves to whichever target registered last.
type dragState struct {
	phase      dragPhase
	itemID     string
	origStatus string
	candidate  string
}

// StartDrag begins a gesture on the given card. One active drag per pointer.
func (b *Board) StartDrag(itemID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drag.phase != phaseIdle {
		return ErrDragActive
	}
	item := b.findLocked(itemID)
	if item == nil {
		return ErrUnknownItem
	}
	b.drag = dragState{
		phase:      phaseDragging,
		itemID:     itemID,
		origStatus: item.Status,
	}
	return nil
}

// HoverColumn records the column under the pointer. Moves into expired are
// rejected with no state change. A differing candidate is applied to the
// working copy immediately.
func (b *Board) HoverColumn(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hoverLocked(status)
}

// HoverCard records another card under the pointer; the candidate status is
// that card's current status in the working copy.
func (b *Board) HoverCard(itemID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.drag.phase != phaseDragging {
		return
	}
	over := b.findLocked(itemID)
	if over == nil || over.ID == b.drag.itemID {
		return
	}
	b.hoverLocked(over.Status)
}

func (b *Board) hoverLocked(status string) {
	if b.drag.phase != phaseDragging {
		return
	}
	if !model.DraggableStatus(status) {
		return
	}
	b.drag.candidate = status
	dragged := b.findLocked(b.drag.itemID)
	if dragged != nil && dragged.Status != status {
		b.applyLocalStatusChangeLocked(b.drag.itemID, status)
	}
}

// Drop ends the gesture. When the resolved target is missing, equals the
// original status, or is expired, no remote mutation is issued and the
// working copy is reset to the last confirmed snapshot. Otherwise one
// fire-and-forget mutation is issued; the gesture does not wait for it, and
// a rejection later resets the board and raises a notice.
// Returns the resolved status and whether a mutation was issued.
func (b *Board) Drop(ctx context.Context) (string, bool) {
	b.mu.Lock()

	if b.drag.phase != phaseDragging {
		b.mu.Unlock()
		return "", false
	}
	itemID := b.drag.itemID
	target := b.drag.candidate
	orig := b.drag.origStatus
	b.drag = dragState{}

	if target == "" || target == orig || !model.DraggableStatus(target) {
		b.resetLocked()
		b.mu.Unlock()
		return target, false
	}

	b.applyLocalStatusChangeLocked(itemID, target)
	b.mu.Unlock()

	go b.issue(ctx, itemID, target)
	return target, true
}

// Cancel aborts the gesture and unconditionally restores the last confirmed
// snapshot.
func (b *Board) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drag = dragState{}
	b.resetLocked()
}

// Dragging reports the id of the card currently being dragged, if any.
func (b *Board) Dragging() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag.phase != phaseDragging {
		return "", false
	}
	return b.drag.itemID, true
}
