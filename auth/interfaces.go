package auth

import (
	"context"
	"time"

	"github.com/habedi/sessiond/client"
	"github.com/habedi/sessiond/db"
)

// RecordWriter is the write side of the session store.
type RecordWriter interface {
	Upsert(ctx context.Context, rec *db.TokenRecord) error
}

// RecordReader is the read side of the session store.
type RecordReader interface {
	ListByUser(ctx context.Context, userID string) ([]db.TokenRecord, error)
}

// SessionStore is the full session store contract. db.SessionRepository satisfies it.
type SessionStore interface {
	RecordWriter
	RecordReader
	ListExpiring(ctx context.Context, before time.Time) ([]db.TokenRecord, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// SessionRefresher defines the contract for any component that can exchange a
// refresh token for a new session. A nil session with a nil error means the
// provider answered without a session.
type SessionRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*client.Session, error)
}

// EventSource is a stream of provider authentication events.
type EventSource interface {
	Subscribe(h client.Handler) (unsubscribe func())
}
