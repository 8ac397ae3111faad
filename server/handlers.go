package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habedi/sessiond/auth"
	"github.com/habedi/sessiond/client"
	"github.com/rs/zerolog/log"
)

const pkceCookie = "sessiond_pkce"

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

func (h *handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.deps.Refresher.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		var rejected *auth.ProviderRejectedError
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token is required"})
		case errors.As(err, &rejected):
			log.Warn().Str("request_id", c.GetString(requestIDKey)).Msg("Provider rejected refresh token")
			c.JSON(http.StatusBadRequest, gin.H{"error": rejected.Message})
		case errors.Is(err, auth.ErrNoSessionReturned):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to refresh session"})
		default:
			log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("Unexpected error in refresh route")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Token refreshed successfully",
		"session": sessionBody{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			ExpiresAt:    res.ExpiresAt.Unix(),
		},
	})
}

func (h *handler) listSessions(c *gin.Context) {
	sub := c.GetString(subjectKey)
	if userID := c.Query("user_id"); userID != "" && userID != sub {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	records, err := h.deps.Sessions.ListSessions(c.Request.Context(), sub)
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("Failed to list sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": records})
}

func (h *handler) me(c *gin.Context) {
	state := h.deps.States.State(c.GetString(subjectKey))
	body := gin.H{
		"user_id":   state.UserID,
		"email":     state.Email,
		"signed_in": state.SignedIn,
	}
	if !state.ExpiresAt.IsZero() {
		body["expires_at"] = state.ExpiresAt.Unix()
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) login(c *gin.Context) {
	pkce := client.NewPKCE()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(pkceCookie, pkce.Verifier, int((10 * time.Minute).Seconds()), "/auth", "", h.deps.SecureCookies, true)

	target := h.deps.Provider.AuthorizeURL(client.AuthorizeOptions{
		Provider:      h.deps.OAuthProvider,
		RedirectTo:    h.deps.RedirectURL,
		Scopes:        h.deps.Scopes,
		CodeChallenge: pkce.Challenge,
	})
	c.Redirect(http.StatusFound, target)
}

func (h *handler) callback(c *gin.Context) {
	if msg := c.Query("error_description"); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if msg := c.Query("error"); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code is required"})
		return
	}
	verifier, err := c.Cookie(pkceCookie)
	if err != nil || verifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Sign-in was not started from this browser"})
		return
	}
	c.SetCookie(pkceCookie, "", -1, "/auth", "", h.deps.SecureCookies, true)

	sess, err := h.deps.Provider.ExchangeCode(c.Request.Context(), code, verifier)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": apiErr.Message})
			return
		}
		log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("Code exchange failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Signed in successfully",
		"user_id": sess.User.ID,
		"email":   sess.User.Email,
	})
}

func (h *handler) logout(c *gin.Context) {
	err := h.deps.Provider.SignOut(c.Request.Context(), c.GetString(tokenKey), c.GetString(subjectKey))
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": apiErr.Message})
			return
		}
		log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("Sign out failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out successfully"})
}

// authHook accepts auth events pushed by the provider and hands them to
// the provider's subscribers.
func (h *handler) authHook(c *gin.Context) {
	var evt client.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	evt.Kind = client.ParseEventKind(string(evt.Kind))

	log.Info().Str("event", string(evt.Kind)).Str("user_id", evt.Subject()).Msg("Received auth hook")
	h.deps.Provider.Publish(evt)
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
