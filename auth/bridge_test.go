package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/habedi/sessiond/auth"
	"github.com/habedi/sessiond/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedIn(userID, email, access, refresh string, expiresIn int64) client.Event {
	return client.Event{Kind: client.SignedIn, Session: &client.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
		User:         client.User{ID: userID, Email: email},
	}}
}

func TestBridge_SignInPersistsRecord(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newMockStore()
	b := auth.NewBridge(store, auth.WithBridgeClock(fixedClock(now)))

	b.Handle(signedIn("u1", "x@y.com", "a1", "r1", 3600))

	rec, ok := store.get("u1")
	require.True(t, ok)
	assert.Equal(t, "x@y.com", rec.Email)
	assert.Equal(t, "a1", rec.AccessToken)
	assert.Equal(t, "r1", rec.RefreshToken)
	assert.Equal(t, now.Add(time.Hour), rec.ExpiresAt)

	state := b.State("u1")
	assert.True(t, state.SignedIn)
	assert.Equal(t, "x@y.com", state.Email)
	assert.Equal(t, now.Add(time.Hour), state.ExpiresAt)
	assert.True(t, b.Ready())
}

func TestBridge_RepeatedSignInKeepsOneRecord(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store)

	b.Handle(signedIn("u1", "x@y.com", "a1", "r1", 3600))
	b.Handle(signedIn("u1", "x@y.com", "a2", "r2", 3600))

	assert.Len(t, store.records, 1)
	rec, _ := store.get("u1")
	assert.Equal(t, "a2", rec.AccessToken)
	assert.Equal(t, "r2", rec.RefreshToken)
	assert.Equal(t, 2, store.upsertCount())
}

func TestBridge_PrefersProviderTokens(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store)
	evt := signedIn("u1", "x@y.com", "session-access", "session-refresh", 3600)
	evt.Session.ProviderToken = "google-access"
	evt.Session.ProviderRefreshToken = "google-refresh"

	b.Handle(evt)

	rec, _ := store.get("u1")
	assert.Equal(t, "google-access", rec.AccessToken)
	assert.Equal(t, "google-refresh", rec.RefreshToken)
}

func TestBridge_FallsBackPerToken(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store)
	evt := signedIn("u1", "", "session-access", "session-refresh", 3600)
	evt.Session.ProviderToken = "google-access"

	b.Handle(evt)

	rec, _ := store.get("u1")
	assert.Equal(t, "google-access", rec.AccessToken)
	assert.Equal(t, "session-refresh", rec.RefreshToken)
	assert.Empty(t, rec.Email)
}

func TestBridge_StoreFailureStillUpdatesState(t *testing.T) {
	store := newMockStore()
	store.upsertErr = errors.New("database is locked")
	b := auth.NewBridge(store)

	b.Handle(signedIn("u1", "x@y.com", "a1", "r1", 3600))

	assert.True(t, b.State("u1").SignedIn)
	_, ok := store.get("u1")
	assert.False(t, ok)
}

func TestBridge_TokenRefreshedOverwrites(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store)
	b.Handle(signedIn("u1", "x@y.com", "a1", "r1", 3600))

	evt := signedIn("u1", "x@y.com", "a2", "r2", 3600)
	evt.Kind = client.TokenRefreshed
	b.Handle(evt)

	rec, _ := store.get("u1")
	assert.Equal(t, "a2", rec.AccessToken)
}

func TestBridge_InitialSession(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store)
	assert.False(t, b.Ready())

	b.Handle(client.Event{Kind: client.InitialSession})
	assert.True(t, b.Ready())
	assert.Equal(t, 0, store.upsertCount())

	evt := signedIn("u1", "x@y.com", "a1", "r1", 3600)
	evt.Kind = client.InitialSession
	b.Handle(evt)
	assert.Equal(t, 1, store.upsertCount())
}

func TestBridge_InitialSessionWithoutUserIsIgnored(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store)

	evt := signedIn("", "x@y.com", "a1", "r1", 3600)
	evt.Kind = client.InitialSession
	b.Handle(evt)

	assert.True(t, b.Ready())
	assert.Equal(t, 0, store.upsertCount())
	assert.False(t, b.State("").SignedIn)
}

func TestBridge_SignedOutRetainsRecordByDefault(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store)
	b.Handle(signedIn("u1", "x@y.com", "a1", "r1", 3600))

	b.Handle(client.Event{Kind: client.SignedOut, UserID: "u1"})

	assert.False(t, b.State("u1").SignedIn)
	_, ok := store.get("u1")
	assert.True(t, ok)
	assert.Equal(t, 0, store.deletes)
}

func TestBridge_SignedOutDeletesRecordWithDeletePolicy(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store, auth.WithSignOutPolicy(auth.DeleteOnSignOut))
	b.Handle(signedIn("u1", "x@y.com", "a1", "r1", 3600))

	b.Handle(client.Event{Kind: client.SignedOut, UserID: "u1"})

	assert.False(t, b.State("u1").SignedIn)
	_, ok := store.get("u1")
	assert.False(t, ok)
	assert.Equal(t, 1, store.deletes)
}

func TestBridge_IgnoresOtherAndEmptyEvents(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store)

	b.Handle(client.Event{Kind: client.Other})
	b.Handle(client.Event{Kind: client.SignedIn})
	b.Handle(client.Event{Kind: client.SignedOut})

	assert.Equal(t, 0, store.upsertCount())
	assert.Equal(t, 0, store.deletes)
}

func TestBridge_AttachToProvider(t *testing.T) {
	store := newMockStore()
	b := auth.NewBridge(store)
	p := client.NewProvider("http://127.0.0.1:0", "", 0)

	detach := b.Attach(p)
	assert.True(t, b.Ready(), "subscription delivers the initial session event")

	p.Publish(signedIn("u1", "x@y.com", "a1", "r1", 3600))
	assert.True(t, b.State("u1").SignedIn)

	detach()
	p.Publish(signedIn("u2", "z@y.com", "a2", "r2", 3600))
	assert.False(t, b.State("u2").SignedIn)
}

func TestParseSignOutPolicy(t *testing.T) {
	p, err := auth.ParseSignOutPolicy("")
	require.NoError(t, err)
	assert.Equal(t, auth.RetainOnSignOut, p)

	p, err = auth.ParseSignOutPolicy("delete")
	require.NoError(t, err)
	assert.Equal(t, auth.DeleteOnSignOut, p)

	_, err = auth.ParseSignOutPolicy("purge")
	assert.Error(t, err)
}
