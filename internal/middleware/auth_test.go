package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/intlpay/backend/internal/models"
	"github.com/intlpay/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, ts *services.TokenService, role models.Role) string {
	t.Helper()
	token, _, err := ts.Issue(&models.Account{
		ID:    "6f1c2a3b-4d5e-4f60-8a7b-9c0d1e2f3a4b",
		Email: string(role) + "@example.com",
		Role:  role,
	})
	require.NoError(t, err)
	return token
}

func newGuardedRouter(ts *services.TokenService) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(ts))
		r.With(RequireRoles()).Get("/me", func(w http.ResponseWriter, r *http.Request) {
			identity, _ := IdentityFromContext(r.Context())
			json.NewEncoder(w).Encode(identity)
		})
		r.With(RequireRoles(models.RoleAdmin)).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	ts := services.NewTokenService("test-secret", time.Hour)
	router := newGuardedRouter(ts)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"foreign signature", "Bearer " + issue(t, services.NewTokenService("other", time.Hour), models.RoleAdmin), http.StatusUnauthorized},
		{"valid", "Bearer " + issue(t, ts, models.RoleCustomer), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				var resp services.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Message)
				assert.NotContains(t, w.Body.String(), "signature")
			}
		})
	}

	t.Run("identity reaches the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+issue(t, ts, models.RoleEmployee))
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		var identity models.Identity
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
		assert.Equal(t, models.RoleEmployee, identity.Role)
		assert.Equal(t, "employee@example.com", identity.Email)
	})
}

func TestRequireRoles(t *testing.T) {
	ts := services.NewTokenService("test-secret", time.Hour)
	router := newGuardedRouter(ts)

	for role, want := range map[models.Role]int{
		models.RoleCustomer: http.StatusForbidden,
		models.RoleEmployee: http.StatusForbidden,
		models.RoleAdmin:    http.StatusNoContent,
	} {
		t.Run(string(role), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+issue(t, ts, role))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, want, w.Code)
		})
	}

	t.Run("without identity", func(t *testing.T) {
		h := RequireRoles(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthorize(t *testing.T) {
	staff := []models.Role{models.RoleEmployee, models.RoleAdmin}

	assert.NoError(t, Authorize(&models.Identity{Role: models.RoleAdmin}, staff))
	assert.NoError(t, Authorize(&models.Identity{Role: models.RoleEmployee}, staff))
	assert.ErrorIs(t, Authorize(&models.Identity{Role: models.RoleCustomer}, staff), services.ErrForbidden)
	assert.ErrorIs(t, Authorize(nil, staff), services.ErrUnauthenticated)
	assert.ErrorIs(t, Authorize(&models.Identity{Role: models.RoleAdmin}, nil), services.ErrForbidden)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc.def.ghi")

	token, ok := BearerToken(req)
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)
}
