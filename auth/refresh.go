package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habedi/sessiond/client"
	"github.com/habedi/sessiond/db"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Refreshed is the outcome of a successful refresh.
type Refreshed struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	// Persisted is false when the new tokens could not be written to the store.
	Persisted bool
}

// Coordinator exchanges refresh tokens with the provider and writes the
// resulting credentials back to the session store.
type Coordinator struct {
	refresher   SessionRefresher
	store       RecordWriter
	timeout     time.Duration
	callTimeout time.Duration
	now         func() time.Time
	flight      *singleflight.Group
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithSingleFlight collapses concurrent refreshes of the same refresh token
// into one provider call whose result every caller shares.
func WithSingleFlight() CoordinatorOption {
	return func(c *Coordinator) { c.flight = &singleflight.Group{} }
}

// WithWriteTimeout bounds the store write that follows a successful refresh.
func WithWriteTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.timeout = d }
}

// WithCallTimeout bounds a shared provider call. A shared call is detached
// from the caller that started it, so this is its only deadline.
func WithCallTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithClock overrides the clock used for expiry conversion.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator is the constructor for the refresh coordinator.
func NewCoordinator(refresher SessionRefresher, store RecordWriter, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		refresher:   refresher,
		store:       store,
		timeout:     5 * time.Second,
		callTimeout: client.DefaultTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh exchanges refreshToken for a new credential pair.
//
// A missing token fails with ErrMissingToken before any provider or store
// call. A provider rejection fails with *ProviderRejectedError and is not
// retried. A store failure after a successful exchange is logged and the
// new credentials are still returned, with Persisted set to false.
func (c *Coordinator) Refresh(ctx context.Context, refreshToken string) (*Refreshed, error) {
	if refreshToken == "" {
		return nil, ErrMissingToken
	}
	if c.flight == nil {
		return c.refresh(ctx, refreshToken)
	}

	// The shared call outlives the cancellation of whichever caller started it.
	ch := c.flight.DoChan(refreshToken, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callTimeout)
		defer cancel()
		return c.refresh(callCtx, refreshToken)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, ctx.Err())
	case res := <-ch:
		if res.Shared {
			log.Debug().Msg("Joined an in-flight refresh")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*Refreshed)
		return &out, nil
	}
}

func (c *Coordinator) refresh(ctx context.Context, refreshToken string) (*Refreshed, error) {
	sess, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, classifyProviderError(err)
	}
	if sess == nil {
		return nil, ErrNoSessionReturned
	}

	rec := recordFromRefresh(sess, c.now())
	out := &Refreshed{
		UserID:       rec.UserID,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
	}

	if rec.UserID == "" {
		log.Warn().Msg("Refreshed session has no user; not persisted")
		return out, nil
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	if err := c.store.Upsert(writeCtx, rec); err != nil {
		log.Error().Err(&StoreError{Op: "upsert", Err: err}).Str("user_id", rec.UserID).Msg("Error updating session in database")
		return out, nil
	}

	out.Persisted = true
	log.Info().Str("user_id", rec.UserID).Msg("Token refreshed and saved successfully.")
	return out, nil
}

// RefreshIfExpiring refreshes rec when its access token expires within
// window and returns the updated record; a still-valid record is returned
// untouched.
func (c *Coordinator) RefreshIfExpiring(ctx context.Context, rec *db.TokenRecord, window time.Duration) (*db.TokenRecord, bool, error) {
	if isRecordValid(rec, c.now(), window) {
		return rec, false, nil
	}
	if !rec.Refreshable() {
		return nil, false, ErrMissingToken
	}

	res, err := c.Refresh(ctx, rec.SessionRefreshToken)
	if err != nil {
		return nil, false, err
	}

	updated := *rec
	updated.AccessToken = res.AccessToken
	updated.RefreshToken = res.RefreshToken
	updated.SessionRefreshToken = res.RefreshToken
	updated.ExpiresAt = res.ExpiresAt
	return &updated, true, nil
}

// isRecordValid reports whether rec's access token is still usable for at least window.
func isRecordValid(rec *db.TokenRecord, now time.Time, window time.Duration) bool {
	if rec == nil || rec.AccessToken == "" || rec.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(window).Before(rec.ExpiresAt)
}

func classifyProviderError(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return &ProviderRejectedError{Message: apiErr.Message, Err: err}
	}
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}
