package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/epicstrade/rifas/pkg/jwt"
)

// ============================================================================
// Mock TokenValidator
// ============================================================================

type mockValidator struct {
	validateFunc func(token string) (*jwt.Claims, error)
}

func (m *mockValidator) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return m.validateFunc(token)
}

func validatorFor(userID, steamID, role string) *mockValidator {
	return &mockValidator{
		validateFunc: func(token string) (*jwt.Claims, error) {
			if token != "good" {
				return nil, jwt.ErrInvalidToken
			}
			return &jwt.Claims{Subject: userID, SteamID: steamID, Role: role}, nil
		},
	}
}

func erroringValidator(err error) *mockValidator {
	return &mockValidator{
		validateFunc: func(token string) (*jwt.Claims, error) { return nil, err },
	}
}

type captureHandler struct {
	called bool
	ctx    context.Context
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

// ============================================================================
// Auth() Tests
// ============================================================================

func TestAuth_RejectsBadHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"no bearer prefix", "good"},
		{"only bearer", "Bearer"},
		{"empty token", "Bearer "},
		{"wrong scheme", "Basic good"},
		{"bad token", "Bearer forged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &captureHandler{}
			req := httptest.NewRequest(http.MethodPost, "/v1/raffles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			Auth(validatorFor("user:1", "7656", "user"))(h).ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rr.Code)
			}
			if h.called {
				t.Error("handler must not run")
			}
		})
	}
}

func TestAuth_ValidToken_SetsIdentity(t *testing.T) {
	t.Parallel()

	h := &captureHandler{}
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "bearer good")
	rr := httptest.NewRecorder()
	Auth(validatorFor("user:42", "76561198000000042", "admin"))(h).ServeHTTP(rr, req)

	if !h.called {
		t.Fatal("handler was not called")
	}
	if got := GetUserID(h.ctx); got != "user:42" {
		t.Errorf("user id = %q", got)
	}
	if got := GetSteamID(h.ctx); got != "76561198000000042" {
		t.Errorf("steam id = %q", got)
	}
	if !IsAdmin(h.ctx) {
		t.Error("expected admin role")
	}
	if claims := GetClaims(h.ctx); claims == nil || claims.Subject != "user:42" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestAuth_QueryTokenOnlyForGET(t *testing.T) {
	t.Parallel()

	v := validatorFor("user:7", "7656", "user")

	h := &captureHandler{}
	rr := httptest.NewRecorder()
	Auth(v)(h).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/me/stream?access_token=good", nil))
	if !h.called {
		t.Errorf("GET with access_token should pass, got %d", rr.Code)
	}

	h = &captureHandler{}
	rr = httptest.NewRecorder()
	Auth(v)(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/raffles?access_token=good", nil))
	if h.called || rr.Code != http.StatusUnauthorized {
		t.Errorf("POST must not accept a query token, got %d", rr.Code)
	}
}

func TestAuth_ValidatorErrors_ReturnUnauthorized(t *testing.T) {
	t.Parallel()

	for _, err := range []error{jwt.ErrTokenExpired, jwt.ErrInvalidSignature, errors.New("boom")} {
		h := &captureHandler{}
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		req.Header.Set("Authorization", "Bearer x")
		rr := httptest.NewRecorder()
		Auth(erroringValidator(err))(h).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized || h.called {
			t.Errorf("%v: expected 401 without calling handler, got %d", err, rr.Code)
		}
	}
}

// ============================================================================
// OptionalAuth() Tests
// ============================================================================

func TestOptionalAuth_AnonymousProceeds(t *testing.T) {
	t.Parallel()

	for _, header := range []string{"", "garbage", "Bearer forged"} {
		h := &captureHandler{}
		req := httptest.NewRequest(http.MethodGet, "/v1/raffles", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		OptionalAuth(validatorFor("user:1", "7656", "user"))(h).ServeHTTP(httptest.NewRecorder(), req)

		if !h.called {
			t.Errorf("%q: handler not called", header)
		}
		if GetUserID(h.ctx) != "" {
			t.Errorf("%q: expected anonymous context", header)
		}
	}
}

func TestOptionalAuth_ValidToken_SetsIdentity(t *testing.T) {
	t.Parallel()

	h := &captureHandler{}
	req := httptest.NewRequest(http.MethodGet, "/v1/raffles", nil)
	req.Header.Set("Authorization", "Bearer good")
	OptionalAuth(validatorFor("user:9", "7656", "user"))(h).ServeHTTP(httptest.NewRecorder(), req)

	if GetUserID(h.ctx) != "user:9" {
		t.Errorf("expected user:9, got %q", GetUserID(h.ctx))
	}
	if IsAdmin(h.ctx) {
		t.Error("plain user must not be admin")
	}
}

// ============================================================================
// RequireAdmin Tests
// ============================================================================

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		role   string
		token  string
		status int
	}{
		{"admin passes", "admin", "good", http.StatusOK},
		{"user forbidden", "user", "good", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &captureHandler{}
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rr := httptest.NewRecorder()
			Chain(h, Auth(validatorFor("user:1", "7656", tt.role)), RequireAdmin).ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rr.Code)
			}
		})
	}

	rr := httptest.NewRecorder()
	RequireAdmin(&captureHandler{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous caller: expected 401, got %d", rr.Code)
	}
}

func TestContextGetters_Missing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if GetUserID(ctx) != "" || GetSteamID(ctx) != "" || IsAdmin(ctx) || GetClaims(ctx) != nil {
		t.Error("empty context must yield zero values")
	}
	ctx = context.WithValue(ctx, UserIDKey, 42)
	if GetUserID(ctx) != "" {
		t.Error("wrong type must yield empty id")
	}
}
