package auth

import (
	"time"

	"github.com/habedi/sessiond/client"
	"github.com/habedi/sessiond/db"
)

// recordFromSignIn builds the record persisted for a sign-in event. The
// upstream service's tokens are what the application needs, so they are
// preferred over the provider's own session tokens when present. The
// provider's refresh token is always kept so the record can be refreshed.
func recordFromSignIn(sess *client.Session, now time.Time) *db.TokenRecord {
	access := sess.ProviderToken
	if access == "" {
		access = sess.AccessToken
	}
	refresh := sess.ProviderRefreshToken
	if refresh == "" {
		refresh = sess.RefreshToken
	}
	return &db.TokenRecord{
		UserID:              sess.User.ID,
		Email:               sess.User.Email,
		AccessToken:         access,
		RefreshToken:        refresh,
		SessionRefreshToken: sess.RefreshToken,
		ExpiresAt:           sess.Expiry(now),
	}
}

// recordFromRefresh builds the record persisted after a refresh: the
// provider's own session tokens, which are what the refresh endpoint rotates.
func recordFromRefresh(sess *client.Session, now time.Time) *db.TokenRecord {
	return &db.TokenRecord{
		UserID:              sess.User.ID,
		Email:               sess.User.Email,
		AccessToken:         sess.AccessToken,
		RefreshToken:        sess.RefreshToken,
		SessionRefreshToken: sess.RefreshToken,
		ExpiresAt:           sess.Expiry(now),
	}
}
