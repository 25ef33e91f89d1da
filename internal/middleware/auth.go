package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/intlpay/backend/internal/models"
	"github.com/intlpay/backend/internal/services"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier resolves a bearer token to the identity it was issued for.
type TokenVerifier interface {
	Verify(token string) (*models.Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Authenticate rejects requests without a valid session credential and stores
// the verified identity in the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				services.SendErrorResponse(w, "No token, authorization denied", http.StatusUnauthorized, nil)
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				log.Printf("[AUTH] Token rejected for %s %s: %v", r.Method, r.URL.Path, err)
				services.SendErrorResponse(w, "Token is not valid", http.StatusUnauthorized, nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*models.Identity)
	return identity, ok && identity != nil
}

// Authorize is the single role check behind every protected route.
func Authorize(identity *models.Identity, allowed []models.Role) error {
	if identity == nil {
		return services.ErrUnauthenticated
	}
	for _, role := range allowed {
		if identity.Role == role {
			return nil
		}
	}
	return services.ErrForbidden
}

// RequireRoles admits only identities holding one of roles. An empty list
// admits any authenticated identity.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				services.SendErrorResponse(w, "No token, authorization denied", http.StatusUnauthorized, nil)
				return
			}

			if len(roles) > 0 {
				if err := Authorize(identity, roles); err != nil {
					log.Printf("[AUTH] %s denied %s %s (role %s)", identity.ID, r.Method, r.URL.Path, identity.Role)
					services.SendErrorResponse(w, "Access denied: insufficient permissions", http.StatusForbidden, nil)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
