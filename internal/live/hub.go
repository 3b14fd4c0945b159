// Package live implements the standing item query: a per-user subscription
// that re-reads the user's collection on every change event and pushes full
// snapshots, newest first. The snapshot stream is the single source of truth
// for any board state layered on top of it.
package live

import (
	"context"

	"github.com/asaskevich/EventBus"

	"renttrack/internal/model"
	"renttrack/internal/store"
)

// Hub creates subscriptions against the store's change events.
type Hub struct {
	store *store.Store
	bus   EventBus.Bus
}

// NewHub wires a hub to the store whose mutations it should observe.
func NewHub(s *store.Store, bus EventBus.Bus) *Hub {
	return &Hub{store: s, bus: bus}
}

// Subscription is a standing query over one user's items. Snapshots carries
// complete ordered result sets: one immediately on subscribe, then one per
// remote change. Intermediate snapshots are coalesced for slow consumers, so
// a receiver always sees the latest state. A read error is delivered once on
// Errs and ends the stream; the subscription does not retry on its own.
type Subscription struct {
	Snapshots <-chan []model.Item
	Errs      <-chan error

	snapshots chan []model.Item
	errs      chan error
	kick      chan struct{}
	cancel    context.CancelFunc
	handler   func(int64)
	hub       *Hub
}

// Subscribe opens a standing query for userID. The caller must Close the
// subscription when done. The loading state ends when the first snapshot is
// received.
func (h *Hub) Subscribe(ctx context.Context, userID int64) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	sub := &Subscription{
		snapshots: make(chan []model.Item, 1),
		errs:      make(chan error, 1),
		kick:      make(chan struct{}, 1),
		cancel:    cancel,
		hub:       h,
	}
	sub.Snapshots = sub.snapshots
	sub.Errs = sub.errs

	sub.handler = func(changed int64) {
		if changed != userID {
			return
		}
		select {
		case sub.kick <- struct{}{}:
		default: // a refresh is already pending; coalesce
		}
	}
	if err := h.bus.Subscribe(store.TopicItemsChanged, sub.handler); err != nil {
		cancel()
		return nil, err
	}

	go sub.run(ctx, userID)
	return sub, nil
}

func (s *Subscription) run(ctx context.Context, userID int64) {
	defer close(s.snapshots)

	// Initial snapshot, then one per change event.
	if !s.push(ctx, userID) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			if !s.push(ctx, userID) {
				return
			}
		}
	}
}

// push queries and delivers a snapshot, replacing any undelivered one.
// Returns false when the subscription should end.
func (s *Subscription) push(ctx context.Context, userID int64) bool {
	items, err := s.hub.store.ListItems(ctx, userID)
	if err != nil {
		select {
		case s.errs <- err:
		default:
		}
		return false
	}
	if items == nil {
		items = []model.Item{}
	}
	select {
	case <-s.snapshots: // drop the stale snapshot
	default:
	}
	select {
	case s.snapshots <- items:
	case <-ctx.Done():
		return false
	}
	return true
}

// Close ends the subscription and detaches it from the change event bus.
func (s *Subscription) Close() {
	s.hub.bus.Unsubscribe(store.TopicItemsChanged, s.handler)
	s.cancel()
}
