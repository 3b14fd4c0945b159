// Package expiry reclassifies past-due items to expired on a schedule. It
// uses the same end-date predicate as the board's urgency filter, so the
// server-side sweep and the client-side check can never disagree.
package expiry

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"renttrack/internal/store"
)

// DefaultSchedule is how often the sweep runs when not configured.
const DefaultSchedule = "@every 1h"

// Sweeper moves past-due live items to expired.
type Sweeper struct {
	store *store.Store
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(s *store.Store) *Sweeper {
	return &Sweeper{store: s}
}

// Run performs one sweep and returns the number of items expired.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	due, err := s.store.ListPastDue(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	var expired int
	for _, item := range due {
		if _, err := s.store.MarkItemExpired(ctx, item.UserID, item.ID); err != nil {
			zap.S().Errorw("expiring item", "item", item.ID, "err", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// Schedule registers the sweep on c with the given cron spec.
func (s *Sweeper) Schedule(c *cron.Cron, spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	_, err := c.AddFunc(spec, func() {
		n, err := s.Run(context.Background())
		if err != nil {
			zap.S().Errorw("expiry sweep failed", "err", err)
			return
		}
		if n > 0 {
			zap.S().Infow("expiry sweep", "expired", n)
		}
	})
	return err
}
