package client

import "time"

// User is the identity the provider attaches to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a provider-issued credential set.
//
// ProviderToken and ProviderRefreshToken are only present when the provider
// federates an upstream OAuth service (e.g. Google) and hands back that
// service's tokens alongside its own.
type Session struct {
	AccessToken          string `json:"access_token"`
	TokenType            string `json:"token_type,omitempty"`
	ExpiresIn            int64  `json:"expires_in,omitempty"`
	ExpiresAt            int64  `json:"expires_at,omitempty"`
	RefreshToken         string `json:"refresh_token,omitempty"`
	ProviderToken        string `json:"provider_token,omitempty"`
	ProviderRefreshToken string `json:"provider_refresh_token,omitempty"`
	User                 User   `json:"user"`
}

// Expiry converts the provider's expiry into an absolute time.
// The absolute expires_at (unix seconds) wins; otherwise expires_in is
// counted from now.
func (s *Session) Expiry(now time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0).UTC()
	}
	return now.Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
}

// EventKind names a provider authentication state transition.
type EventKind string

const (
	InitialSession EventKind = "INITIAL_SESSION"
	SignedIn       EventKind = "SIGNED_IN"
	SignedOut      EventKind = "SIGNED_OUT"
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
	Other          EventKind = "OTHER"
)

// ParseEventKind maps a wire event name to an EventKind; unknown names map to Other.
func ParseEventKind(s string) EventKind {
	switch k := EventKind(s); k {
	case InitialSession, SignedIn, SignedOut, TokenRefreshed:
		return k
	default:
		return Other
	}
}

// Event is one provider authentication event. Session is nil for
// InitialSession without a session and may be nil for SignedOut, in which
// case UserID names the user that signed out.
type Event struct {
	Kind    EventKind `json:"type"`
	Session *Session  `json:"session,omitempty"`
	UserID  string    `json:"user_id,omitempty"`
}

// Subject returns the user the event is about.
func (e Event) Subject() string {
	if e.Session != nil && e.Session.User.ID != "" {
		return e.Session.User.ID
	}
	return e.UserID
}
