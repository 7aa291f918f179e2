package http

import (
	"context"
	"net/http"
	"strings"

	"careercompass/internal/entity"
	"careercompass/internal/usecase"
)

type contextKey string

const UserContextKey contextKey = "user"

type AuthMiddleware struct {
	authUc usecase.AuthUsecase
}

func NewAuthMiddleware(authUc usecase.AuthUsecase) *AuthMiddleware {
	return &AuthMiddleware{
		authUc: authUc,
	}
}

// PrincipalFrom returns the authenticated principal attached by the
// middleware, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *entity.TokenClaims {
	claims, _ := ctx.Value(UserContextKey).(*entity.TokenClaims)
	return claims
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// Authenticate rejects requests without a valid access token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "authorization header required"})
			return
		}

		claims, err := m.authUc.ValidateAccessToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "invalid or expired token"})
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MaybeAuthenticate attaches a principal when a valid token is present but
// lets anonymous requests through. Used by the file-serving endpoint, which
// decides per category whether authentication is required.
func (m *AuthMiddleware) MaybeAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if claims, err := m.authUc.ValidateAccessToken(token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), UserContextKey, claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}
