package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/habedi/sessiond/auth"
	"github.com/habedi/sessiond/client"
)

// Refresher exchanges a refresh token for new credentials.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*auth.Refreshed, error)
}

// SessionLister lists a user's stored sessions.
type SessionLister interface {
	ListSessions(ctx context.Context, userID string) ([]auth.DisplayRecord, error)
}

// StateReader reports a user's in-memory session state.
type StateReader interface {
	State(userID string) auth.State
}

// IdentityProvider is the part of the provider client the sign-in routes use.
type IdentityProvider interface {
	AuthorizeURL(opts client.AuthorizeOptions) string
	ExchangeCode(ctx context.Context, code, verifier string) (*client.Session, error)
	SignOut(ctx context.Context, accessToken, userID string) error
	Publish(evt client.Event)
}

// SubjectVerifier validates a bearer token and returns the user it names.
type SubjectVerifier interface {
	Subject(token string) (string, error)
}

// Deps are the collaborators behind the HTTP routes. Routes whose
// collaborators are nil are not registered.
type Deps struct {
	Refresher Refresher
	Sessions  SessionLister
	States    StateReader
	Provider  IdentityProvider
	// Bearer verifies the provider-issued access tokens of API callers.
	Bearer SubjectVerifier
	// Hooks verifies the tokens provider webhooks are signed with.
	Hooks SubjectVerifier

	OAuthProvider string
	Scopes        []string
	RedirectURL   string
	// SecureCookies marks the PKCE cookie Secure; set outside local development.
	SecureCookies bool
}

type handler struct {
	deps Deps
}

// NewRouter wires the gin routes and middleware.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())

	h := &handler{deps: deps}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if deps.Refresher != nil {
		r.POST("/refresh", h.refresh)
	}

	if deps.Bearer != nil {
		bearer := RequireBearer(deps.Bearer)
		if deps.Sessions != nil {
			r.GET("/sessions", bearer, h.listSessions)
		}
		if deps.States != nil {
			r.GET("/me", bearer, h.me)
		}
		if deps.Provider != nil {
			r.POST("/auth/logout", bearer, h.logout)
		}
	}

	if deps.Provider != nil {
		authGroup := r.Group("/auth")
		{
			authGroup.GET("/login", h.login)
			authGroup.GET("/callback", h.callback)
		}
		if deps.Hooks != nil {
			r.POST("/hooks/auth", RequireBearer(deps.Hooks), h.authHook)
		}
	}

	return r
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
