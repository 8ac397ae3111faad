package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/habedi/sessiond/client"
	"github.com/habedi/sessiond/db"
)

type mockStore struct {
	mu        sync.Mutex
	records   map[string]db.TokenRecord
	upserts   int
	deletes   int
	upsertErr error
	listErr   error
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]db.TokenRecord)}
}

func (m *mockStore) Upsert(ctx context.Context, rec *db.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.records[rec.UserID] = *rec
	return nil
}

func (m *mockStore) ListByUser(ctx context.Context, userID string) ([]db.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	rec, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	return []db.TokenRecord{rec}, nil
}

func (m *mockStore) ListExpiring(ctx context.Context, before time.Time) ([]db.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []db.TokenRecord
	for _, rec := range m.records {
		if rec.SessionRefreshToken != "" && !rec.ExpiresAt.After(before) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockStore) DeleteByUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.records, userID)
	return nil
}

func (m *mockStore) get(userID string) (db.TokenRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	return rec, ok
}

func (m *mockStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

type mockRefresher struct {
	mu           sync.Mutex
	calls        int
	lastToken    string
	sessToReturn *client.Session
	errToReturn  error
	delay        time.Duration
}

func (m *mockRefresher) Refresh(ctx context.Context, refreshToken string) (*client.Session, error) {
	m.mu.Lock()
	m.calls++
	m.lastToken = refreshToken
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.errToReturn != nil {
		return nil, m.errToReturn
	}
	return m.sessToReturn, nil
}

func (m *mockRefresher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockRefresher) lastRefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastToken
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
