package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRefresh_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "my-refresh-token", body["refresh_token"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-access-token",
			"refresh_token": "new-refresh-token",
			"expires_in":    3600,
			"expires_at":    time.Now().Add(time.Hour).Unix(),
			"user":          map[string]string{"id": "u1", "email": "x@y.com"},
		})
	}))
	defer server.Close()

	p := NewProvider(server.URL, "anon-key", time.Second)
	sess, err := p.Refresh(context.Background(), "my-refresh-token")

	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "new-access-token", sess.AccessToken)
	assert.Equal(t, "new-refresh-token", sess.RefreshToken)
	assert.Equal(t, "u1", sess.User.ID)
	assert.Equal(t, "x@y.com", sess.User.Email)
}

func TestProviderRefresh_ApiError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error_description wins", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid Refresh Token: Already Used"}`, "Invalid Refresh Token: Already Used"},
		{"msg field", http.StatusUnauthorized, `{"code":401,"msg":"Invalid JWT"}`, "Invalid JWT"},
		{"message field", http.StatusBadRequest, `{"message":"Refresh Token Not Found"}`, "Refresh Token Not Found"},
		{"bare error field", http.StatusBadRequest, `{"error":"invalid_grant"}`, "invalid_grant"},
		{"unparseable body falls back to status text", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewProvider(server.URL, "", time.Second)
			_, err := p.Refresh(context.Background(), "bad-token")

			require.Error(t, err)
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestProviderRefresh_NoSession(t *testing.T) {
	for _, body := range []string{``, `null`, `{}`, `{"user":{"id":"u1"}}`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		p := NewProvider(server.URL, "", time.Second)
		sess, err := p.Refresh(context.Background(), "token")
		server.Close()

		require.NoError(t, err, "body %q", body)
		assert.Nil(t, sess, "body %q", body)
	}
}

func TestProviderRefresh_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":`))
	}))
	defer server.Close()

	p := NewProvider(server.URL, "", time.Second)
	_, err := p.Refresh(context.Background(), "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse token response")
}

func TestProviderRefresh_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p := NewProvider(server.URL, "", 20*time.Millisecond)
	_, err := p.Refresh(context.Background(), "token")
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, strings.Contains(err.Error(), "status"), "a timeout is not an API error")
	assert.NotErrorAs(t, err, &apiErr)
}

func TestProviderExchangeCode_EmitsSignedIn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "the-code", body["auth_code"])
		assert.Equal(t, "the-verifier", body["code_verifier"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":   "a1",
			"refresh_token":  "r1",
			"expires_in":     3600,
			"provider_token": "google-access",
			"user":           map[string]string{"id": "u1", "email": "x@y.com"},
		})
	}))
	defer server.Close()

	p := NewProvider(server.URL, "", time.Second)
	var events []Event
	unsubscribe := p.Subscribe(func(e Event) { events = append(events, e) })
	defer unsubscribe()

	sess, err := p.ExchangeCode(context.Background(), "the-code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "google-access", sess.ProviderToken)

	require.Len(t, events, 2)
	assert.Equal(t, InitialSession, events[0].Kind)
	assert.Nil(t, events[0].Session)
	assert.Equal(t, SignedIn, events[1].Kind)
	assert.Equal(t, "u1", events[1].Subject())
}

func TestProviderExchangeCode_FailureEmitsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description":"invalid flow state"}`))
	}))
	defer server.Close()

	p := NewProvider(server.URL, "", time.Second)
	var events []Event
	p.Subscribe(func(e Event) { events = append(events, e) })

	_, err := p.ExchangeCode(context.Background(), "code", "verifier")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid flow state")
	assert.Len(t, events, 1, "only the initial event")

	_, err = p.ExchangeCode(context.Background(), "", "verifier")
	assert.Error(t, err)
}

func TestProviderSignOut_EmitsSignedOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logout", r.URL.Path)
		assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	p := NewProvider(server.URL, "", time.Second)
	var last Event
	p.Subscribe(func(e Event) { last = e })

	require.NoError(t, p.SignOut(context.Background(), "a1", "u1"))
	assert.Equal(t, SignedOut, last.Kind)
	assert.Equal(t, "u1", last.Subject())
}

func TestProviderAuthorizeURL(t *testing.T) {
	p := NewProvider("https://auth.example.com/auth/v1/", "", 0)
	raw := p.AuthorizeURL(AuthorizeOptions{
		RedirectTo:    "http://localhost:8080/auth/callback",
		CodeChallenge: "challenge",
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "google", q.Get("provider"))
	assert.Equal(t, strings.Join(DefaultScopes, " "), q.Get("scopes"))
	assert.Equal(t, "http://localhost:8080/auth/callback", q.Get("redirect_to"))
	assert.Equal(t, "challenge", q.Get("code_challenge"))
	assert.Equal(t, "s256", q.Get("code_challenge_method"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
}

func TestNewPKCE(t *testing.T) {
	a := NewPKCE()
	b := NewPKCE()

	assert.NotEmpty(t, a.Verifier)
	assert.NotEmpty(t, a.Challenge)
	assert.NotEqual(t, a.Verifier, a.Challenge)
	assert.NotEqual(t, a.Verifier, b.Verifier)
}
