package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/internal/service"
)

const (
	loginStateCookie = "steam_login_state"
	loginStatePath   = "/v1/auth/steam"
	loginStateMaxAge = 600
)

// AuthAPI is the part of the auth service the handler uses
type AuthAPI interface {
	LoginURL(state string) string
	CompleteLogin(ctx context.Context, params url.Values) (*model.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*model.AuthResponse, error)
	Logout(ctx context.Context, userID string) error
	Me(ctx context.Context, userID string) (*model.Me, error)
}

// AuthHandler handles Steam sign-in and the backend session
type AuthHandler struct {
	auth          AuthAPI
	frontendURL   string
	secureCookies bool
}

// AuthHandlerConfig holds dependencies for the auth handler
type AuthHandlerConfig struct {
	Auth          AuthAPI
	FrontendURL   string // where the browser lands after the Steam callback
	SecureCookies bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		auth:          cfg.Auth,
		frontendURL:   strings.TrimRight(cfg.FrontendURL, "/"),
		secureCookies: cfg.SecureCookies,
	}
}

// SteamLogin handles GET /v1/auth/steam/login
func (h *AuthHandler) SteamLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     loginStateCookie,
		Value:    state,
		Path:     loginStatePath,
		MaxAge:   loginStateMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.LoginURL(state), http.StatusFound)
}

// SteamCallback handles GET /v1/auth/steam/callback.
//
// Browsers are redirected to the frontend with the session in the URL
// fragment, which never reaches a server log. Clients asking for JSON get
// the session in the body instead.
func (h *AuthHandler) SteamCallback(w http.ResponseWriter, r *http.Request) {
	wantsJSON := strings.Contains(r.Header.Get("Accept"), "application/json")

	cookie, err := r.Cookie(loginStateCookie)
	http.SetCookie(w, &http.Cookie{
		Name:     loginStateCookie,
		Path:     loginStatePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		if wantsJSON {
			WriteError(w, model.NewUnauthorizedError("login state mismatch"))
			return
		}
		h.redirectError(w, r, "state_mismatch")
		return
	}

	resp, err := h.auth.CompleteLogin(r.Context(), r.URL.Query())
	if err != nil {
		if wantsJSON {
			WriteError(w, MapServiceErrorWithContext(err, "steam login"))
			return
		}
		code := "login_failed"
		if errors.Is(err, service.ErrUserBanned) {
			code = "banned"
		}
		h.redirectError(w, r, code)
		return
	}

	if wantsJSON {
		WriteData(w, http.StatusOK, resp, map[string]string{"me": "/v1/me"})
		return
	}

	fragment := url.Values{}
	fragment.Set("access_token", resp.AccessToken)
	fragment.Set("refresh_token", resp.RefreshToken)
	fragment.Set("token_type", resp.TokenType)
	fragment.Set("expires_in", strconv.Itoa(resp.ExpiresIn))
	http.Redirect(w, r, h.frontendURL+"/auth/callback#"+fragment.Encode(), http.StatusFound)
}

func (h *AuthHandler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/auth/callback#error="+url.QueryEscape(code), http.StatusFound)
}

// Refresh handles POST /v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if err := DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		WriteError(w, model.NewBadRequestError("refresh_token is required"))
		return
	}

	resp, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "refresh session"))
		return
	}
	WriteData(w, http.StatusOK, resp, nil)
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}
	if err := h.auth.Logout(r.Context(), userID); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "logout"))
		return
	}
	WriteNoContent(w)
}

// Me handles GET /v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.auth.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "load profile"))
		return
	}
	WriteData(w, http.StatusOK, me, map[string]string{
		"self":         "/v1/me",
		"wallet":       "/v1/wallet",
		"transactions": "/v1/wallet/transactions",
		"stream":       "/v1/me/stream",
	})
}
