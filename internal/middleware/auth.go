package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/epicstrade/rifas/internal/model"
	"github.com/epicstrade/rifas/pkg/jwt"
)

// TokenValidator validates access tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

const (
	ClaimsKey  contextKey = "claims"
	SteamIDKey contextKey = "steamID"
	RoleKey    contextKey = "role"
)

// accessTokenParam carries the token for EventSource clients, which cannot
// set an Authorization header. Only GET requests may use it.
const accessTokenParam = "access_token"

var errMalformedHeader = errors.New("invalid authorization header format")

// Auth returns a middleware that requires a valid access token
func Auth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				model.NewUnauthorizedError(err.Error()).WriteJSON(w)
				return
			}
			if token == "" {
				model.NewUnauthorizedError("missing authorization header").WriteJSON(w)
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					model.NewUnauthorizedError("token expired").WriteJSON(w)
				case errors.Is(err, jwt.ErrInvalidSignature):
					model.NewUnauthorizedError("invalid token signature").WriteJSON(w)
				default:
					model.NewUnauthorizedError("invalid token").WriteJSON(w)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth sets the caller identity when a valid token is present and
// lets anonymous requests through otherwise
func OptionalAuth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil || token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin rejects callers whose token does not carry the admin role.
// It must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserID(r.Context()) == "" {
			model.NewUnauthorizedError("authentication required").WriteJSON(w)
			return
		}
		if !IsAdmin(r.Context()) {
			model.NewForbiddenError("admin access required").WriteJSON(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if r.Method == http.MethodGet {
			return r.URL.Query().Get(accessTokenParam), nil
		}
		return "", nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errMalformedHeader
	}
	return parts[1], nil
}

func withClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	ctx = context.WithValue(ctx, SteamIDKey, claims.SteamID)
	ctx = context.WithValue(ctx, RoleKey, claims.Role)
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetUserID extracts the user record ID from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetSteamID extracts the caller's SteamID64 from context
func GetSteamID(ctx context.Context) string {
	if id, ok := ctx.Value(SteamIDKey).(string); ok {
		return id
	}
	return ""
}

// IsAdmin reports whether the caller's token carries the admin role
func IsAdmin(ctx context.Context) bool {
	role, _ := ctx.Value(RoleKey).(string)
	return role == string(model.UserRoleAdmin)
}

// GetClaims extracts the JWT claims from context
func GetClaims(ctx context.Context) *jwt.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
