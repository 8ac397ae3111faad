package auth

import (
	"context"
	"time"

	"github.com/habedi/sessiond/db"
	"github.com/habedi/sessiond/pkg/pool"
	"github.com/rs/zerolog/log"
)

// SweepResult is the outcome of refreshing one expiring record.
type SweepResult struct {
	UserID    string
	ExpiresAt time.Time
	Err       error
}

// Sweeper refreshes every stored session that is expired or about to expire.
// It runs only when invoked; nothing schedules it.
type Sweeper struct {
	store       SessionStore
	coordinator *Coordinator
	window      time.Duration
	workers     int
	now         func() time.Time
}

// NewSweeper constructs a Sweeper refreshing records that expire within window.
func NewSweeper(store SessionStore, coordinator *Coordinator, window time.Duration, workers int) *Sweeper {
	if workers < 1 {
		workers = 1
	}
	return &Sweeper{
		store:       store,
		coordinator: coordinator,
		window:      window,
		workers:     workers,
		now:         time.Now,
	}
}

// Sweep refreshes the expiring records concurrently and reports one result per record.
func (s *Sweeper) Sweep(ctx context.Context) ([]SweepResult, error) {
	records, err := s.store.ListExpiring(ctx, s.now().Add(s.window))
	if err != nil {
		return nil, &StoreError{Op: "list expiring", Err: err}
	}
	log.Info().Int("count", len(records)).Dur("window", s.window).Msg("Refreshing expiring sessions")

	results := pool.Map(ctx, records, s.workers, func(ctx context.Context, rec db.TokenRecord) (SweepResult, error) {
		updated, _, err := s.coordinator.RefreshIfExpiring(ctx, &rec, s.window)
		if err != nil {
			log.Warn().Err(err).Str("user_id", rec.UserID).Msg("Failed to refresh session")
			return SweepResult{UserID: rec.UserID, ExpiresAt: rec.ExpiresAt, Err: err}, err
		}
		return SweepResult{UserID: rec.UserID, ExpiresAt: updated.ExpiresAt}, nil
	})

	out := make([]SweepResult, 0, len(results))
	for i, r := range results {
		if r.Skipped {
			out = append(out, SweepResult{UserID: records[i].UserID, ExpiresAt: records[i].ExpiresAt, Err: ctx.Err()})
			continue
		}
		out = append(out, r.Value)
	}
	return out, nil
}
