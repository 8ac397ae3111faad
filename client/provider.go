package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every provider call when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

// DefaultScopes are requested from Google when signing in.
var DefaultScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/contacts.readonly",
	"https://www.googleapis.com/auth/calendar.readonly",
}

// APIError is an error answer from the provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Message)
}

// Provider talks to a GoTrue-compatible authorization server and is the
// source of authentication events for its subscribers.
type Provider struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// Limiter, when set, paces every request sent to the provider.
	Limiter *RateLimiter

	events Dispatcher
}

// NewProvider constructs a Provider. A zero timeout uses DefaultTimeout.
func NewProvider(baseURL, apiKey string, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Provider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Subscribe registers h for provider events. h immediately receives an
// InitialSession event without a session: the provider keeps no session of
// its own to restore.
func (p *Provider) Subscribe(h Handler) (unsubscribe func()) {
	unsubscribe = p.events.Subscribe(h)
	p.events.deliver(h, Event{Kind: InitialSession})
	return unsubscribe
}

// Publish forwards an event received out of band, e.g. from a provider webhook.
func (p *Provider) Publish(evt Event) {
	p.events.Emit(evt)
}

// Refresh exchanges refreshToken for a new session. A nil session with a nil
// error means the provider answered successfully but returned no session.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	sess, err := p.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return sess, nil
}

// ExchangeCode trades an authorization code and its PKCE verifier for a
// session and announces the sign-in to subscribers.
func (p *Provider) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	if code == "" {
		return nil, errors.New("authorization code is empty")
	}
	sess, err := p.token(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	if sess == nil {
		return nil, errors.New("code exchange returned no session")
	}
	p.events.Emit(Event{Kind: SignedIn, Session: sess})
	return sess, nil
}

// SignOut revokes the session's refresh tokens at the provider and announces
// the sign-out to subscribers.
func (p *Provider) SignOut(ctx context.Context, accessToken, userID string) error {
	req, err := p.newRequest(ctx, http.MethodPost, "/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	if _, err := p.do(req); err != nil {
		return fmt.Errorf("sign out failed: %w", err)
	}
	p.events.Emit(Event{Kind: SignedOut, UserID: userID})
	return nil
}

// AuthorizeOptions configures the sign-in redirect.
type AuthorizeOptions struct {
	Provider      string
	RedirectTo    string
	Scopes        []string
	CodeChallenge string
}

// AuthorizeURL builds the URL the browser is sent to in order to sign in.
// Offline access and forced consent make the upstream service issue a
// refresh token on every sign-in.
func (p *Provider) AuthorizeURL(opts AuthorizeOptions) string {
	provider := opts.Provider
	if provider == "" {
		provider = "google"
	}
	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	q := url.Values{}
	q.Set("provider", provider)
	q.Set("scopes", strings.Join(scopes, " "))
	if opts.RedirectTo != "" {
		q.Set("redirect_to", opts.RedirectTo)
	}
	if opts.CodeChallenge != "" {
		q.Set("code_challenge", opts.CodeChallenge)
		q.Set("code_challenge_method", "s256")
	}
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("include_granted_scopes", "true")
	q.Set("response_type", "code")

	return p.BaseURL + "/authorize?" + q.Encode()
}

func (p *Provider) token(ctx context.Context, grantType string, payload map[string]string) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := p.newRequest(ctx, http.MethodPost, "/token?grant_type="+url.QueryEscape(grantType), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := p.do(req)
	if err != nil {
		return nil, err
	}

	var sess Session
	if len(bytes.TrimSpace(respBody)) == 0 || bytes.Equal(bytes.TrimSpace(respBody), []byte("null")) {
		return nil, nil
	}
	if err := json.Unmarshal(respBody, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, nil
	}
	return &sess, nil
}

func (p *Provider) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("path", path).Msg("Failed to create provider request")
		return nil, err
	}
	if p.APIKey != "" {
		req.Header.Set("apikey", p.APIKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and returns the body of a 2xx response. Non-2xx answers are
// returned as *APIError.
func (p *Provider) do(req *http.Request) ([]byte, error) {
	if err := p.Limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	httpClient := p.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("Sending provider request")
	resp, err := httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("Provider request failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
		log.Warn().Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("Provider returned an error")
		return nil, apiErr
	}
	return body, nil
}

// errorMessage picks the most descriptive message out of a provider error body.
func errorMessage(body []byte, status int) string {
	var payload struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.ErrorDescription, payload.Msg, payload.Message, payload.Error} {
			if m != "" {
				return m
			}
		}
	}
	return http.StatusText(status)
}
