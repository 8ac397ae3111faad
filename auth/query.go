package auth

import (
	"context"
	"time"
)

// Status is the derived expiry classification of a stored session.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// DisplayRecord is a stored session as shown to its owner.
type DisplayRecord struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Status       Status    `json:"status"`
}

// Query is the read side of the session store.
type Query struct {
	store RecordReader
	now   func() time.Time
}

// NewQuery constructs a Query. A nil now uses time.Now.
func NewQuery(store RecordReader, now func() time.Time) *Query {
	if now == nil {
		now = time.Now
	}
	return &Query{store: store, now: now}
}

// ListSessions returns userID's stored sessions, most recent first, each
// classified against the current time. No records is an empty slice.
func (q *Query) ListSessions(ctx context.Context, userID string) ([]DisplayRecord, error) {
	records, err := q.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}

	now := q.now()
	out := make([]DisplayRecord, 0, len(records))
	for i := range records {
		r := &records[i]
		status := StatusActive
		if r.ExpiredAt(now) {
			status = StatusExpired
		}
		out = append(out, DisplayRecord{
			UserID:       r.UserID,
			Email:        r.Email,
			AccessToken:  r.AccessToken,
			RefreshToken: r.RefreshToken,
			ExpiresAt:    r.ExpiresAt,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
			Status:       status,
		})
	}
	return out, nil
}
