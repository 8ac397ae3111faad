package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/habedi/sessiond/client"
	"github.com/rs/zerolog/log"
)

// SignOutPolicy decides what happens to a user's stored record on sign-out.
type SignOutPolicy string

const (
	// RetainOnSignOut leaves the stored record in place; it goes stale.
	RetainOnSignOut SignOutPolicy = "retain"
	// DeleteOnSignOut removes the stored record.
	DeleteOnSignOut SignOutPolicy = "delete"
)

// ParseSignOutPolicy validates a policy name.
func ParseSignOutPolicy(s string) (SignOutPolicy, error) {
	switch p := SignOutPolicy(s); p {
	case RetainOnSignOut, DeleteOnSignOut:
		return p, nil
	case "":
		return RetainOnSignOut, nil
	default:
		return "", fmt.Errorf("invalid sign-out policy %q (must be retain or delete)", s)
	}
}

// State is the in-memory view of one user's session.
type State struct {
	UserID    string
	Email     string
	SignedIn  bool
	ExpiresAt time.Time
	Session   *client.Session
}

// Bridge mirrors provider authentication events into the session store and
// keeps the current in-memory session of every user seen.
type Bridge struct {
	store   SessionStore
	policy  SignOutPolicy
	timeout time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	ready    bool
	sessions map[string]client.Session
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithSignOutPolicy sets the sign-out retention policy (default RetainOnSignOut).
func WithSignOutPolicy(p SignOutPolicy) BridgeOption { return func(b *Bridge) { b.policy = p } }

// WithStoreTimeout bounds each store call made by the bridge.
func WithStoreTimeout(d time.Duration) BridgeOption { return func(b *Bridge) { b.timeout = d } }

// WithBridgeClock overrides the clock used for expiry conversion.
func WithBridgeClock(now func() time.Time) BridgeOption { return func(b *Bridge) { b.now = now } }

// NewBridge constructs a Bridge writing to store.
func NewBridge(store SessionStore, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		store:    store,
		policy:   RetainOnSignOut,
		timeout:  5 * time.Second,
		now:      time.Now,
		sessions: make(map[string]client.Session),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach subscribes the bridge to src and returns the function that detaches it.
func (b *Bridge) Attach(src EventSource) (detach func()) {
	return src.Subscribe(b.Handle)
}

// Handle applies one provider event. Store failures are logged and never
// prevent the in-memory state from being updated.
func (b *Bridge) Handle(evt client.Event) {
	switch evt.Kind {
	case client.InitialSession:
		b.markReady()
		if evt.Session == nil {
			return
		}
		if evt.Session.User.ID == "" {
			log.Warn().Str("event", string(evt.Kind)).Msg("Ignoring initial session without a user")
			return
		}
		b.signIn(evt)
	case client.SignedIn, client.TokenRefreshed:
		b.markReady()
		if evt.Session == nil || evt.Session.User.ID == "" {
			log.Warn().Str("event", string(evt.Kind)).Msg("Ignoring auth event without a session")
			return
		}
		b.signIn(evt)
	case client.SignedOut:
		b.markReady()
		b.signOut(evt.Subject())
	default:
		log.Debug().Str("event", string(evt.Kind)).Msg("Ignoring auth event")
	}
}

// Ready reports whether the bridge has received its first event.
func (b *Bridge) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

// State returns a snapshot of userID's in-memory session.
func (b *Bridge) State(userID string) State {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sess, ok := b.sessions[userID]
	if !ok {
		return State{UserID: userID}
	}
	return State{
		UserID:    userID,
		Email:     sess.User.Email,
		SignedIn:  true,
		ExpiresAt: sess.Expiry(b.now()),
		Session:   &sess,
	}
}

func (b *Bridge) markReady() {
	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()
}

func (b *Bridge) signIn(evt client.Event) {
	sess := *evt.Session
	if sess.ExpiresAt == 0 && sess.ExpiresIn > 0 {
		// Pin the expiry so later snapshots do not drift.
		sess.ExpiresAt = sess.Expiry(b.now()).Unix()
	}

	b.mu.Lock()
	b.sessions[sess.User.ID] = sess
	b.mu.Unlock()

	rec := recordFromSignIn(&sess, b.now())
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.store.Upsert(ctx, rec); err != nil {
		log.Error().Err(err).Str("user_id", rec.UserID).Str("event", string(evt.Kind)).Msg("Failed to save session")
		return
	}
	log.Info().Str("user_id", rec.UserID).Str("event", string(evt.Kind)).Msg("Session saved")
}

func (b *Bridge) signOut(userID string) {
	if userID == "" {
		log.Warn().Msg("Sign-out event without a user; nothing to clear")
		return
	}

	b.mu.Lock()
	delete(b.sessions, userID)
	b.mu.Unlock()

	if b.policy != DeleteOnSignOut {
		log.Info().Str("user_id", userID).Msg("Signed out; stored session retained")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.store.DeleteByUser(ctx, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to delete session on sign-out")
		return
	}
	log.Info().Str("user_id", userID).Msg("Signed out; stored session deleted")
}
