package db

import "time"

// TokenRecord is the persisted credential set of one user.
// There is at most one live record per UserID.
type TokenRecord struct {
	ID                  uint      `gorm:"primaryKey" json:"-"`
	UserID              string    `gorm:"uniqueIndex;not null" json:"user_id"`
	Email               string    `json:"email"`
	AccessToken         string    `gorm:"not null" json:"access_token"`
	RefreshToken        string    `json:"refresh_token,omitempty"`
	// SessionRefreshToken is the identity provider's own refresh token. It
	// differs from RefreshToken when an upstream service's tokens are stored,
	// and is the one the provider's token endpoint accepts.
	SessionRefreshToken string    `json:"-"`
	ExpiresAt           time.Time `gorm:"index" json:"expires_at"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName keeps the table name stable regardless of the struct name.
func (TokenRecord) TableName() string { return "sessions" }

// Refreshable reports whether the record carries a provider refresh token.
func (r *TokenRecord) Refreshable() bool {
	return r != nil && r.SessionRefreshToken != ""
}

// ExpiredAt reports whether the access token is unusable at now.
// A token whose expiry equals now is already expired.
func (r *TokenRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
