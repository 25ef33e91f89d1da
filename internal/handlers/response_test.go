package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/intlpay/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", &services.ValidationError{Fields: []string{"amount is required"}}, http.StatusBadRequest, "Validation failed"},
		{"invalid transition", fmt.Errorf("%w: transaction is approved", services.ErrInvalidTransition), http.StatusBadRequest, "only pending transactions can be reviewed: transaction is approved"},
		{"self modification", services.ErrSelfModification, http.StatusBadRequest, services.ErrSelfModification.Error()},
		{"duplicate email", services.ErrDuplicateEmail, http.StatusBadRequest, "email already registered"},
		{"invalid credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"unauthenticated", services.ErrUnauthenticated, http.StatusUnauthorized, "Token is not valid"},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, "Access denied: insufficient permissions"},
		{"not found", services.ErrAccountNotFound, http.StatusNotFound, "User not found"},
		{"rate limited", &services.RateLimitError{RetryAfter: 1500 * time.Millisecond}, http.StatusTooManyRequests, services.ErrRateLimited.Error()},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Responder{}.respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.wantMsg, body["message"])
			assert.NotContains(t, body, "error")
		})
	}

	t.Run("retry after rounds up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Responder{}.respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil),
			&services.RateLimitError{RetryAfter: 1500 * time.Millisecond})
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	})

	t.Run("debug exposes detail", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Responder{Debug: true}.respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("connection reset"))
		assert.Equal(t, "connection reset", decode(t, rec)["error"])
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"name":"Ann"}`, true},
		{"malformed", `{"name":`, false},
		{"unknown field", `{"name":"Ann","role":"admin"}`, false},
		{"trailing object", `{"name":"Ann"}{}`, false},
		{"too large", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dst payload
			assert.Equal(t, tt.ok, decodeJSON(rec, req, &dst))
			if !tt.ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestTransactionFilter(t *testing.T) {
	t.Run("admin view", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/?status=failed&paymentMethod=paypal&startDate=2025-03-01&endDate=2025-03-31&maxAmount=500.5", nil)

		f, err := transactionFilter(req, services.DefaultPageLimit, true)
		require.NoError(t, err)
		assert.Equal(t, "failed", string(f.AdminStatus))
		assert.Empty(t, f.Status)
		assert.Equal(t, "paypal", string(f.PaymentMethod))
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *f.From)
		assert.Equal(t, time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC), *f.To)
		assert.Equal(t, "500.5", f.MaxAmount.String())
		assert.Nil(t, f.MinAmount)
		assert.Equal(t, services.DefaultPageLimit, f.Page.Limit)
	})

	t.Run("all means no status", func(t *testing.T) {
		f, err := transactionFilter(httptest.NewRequest(http.MethodGet, "/?status=all", nil), 0, false)
		require.NoError(t, err)
		assert.Empty(t, f.Status)
		assert.Zero(t, f.Page.Limit)
	})

	t.Run("collects every bad field", func(t *testing.T) {
		_, err := transactionFilter(httptest.NewRequest(http.MethodGet,
			"/?status=done&paymentMethod=cash&minAmount=-1", nil), 0, false)

		var ve *services.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Len(t, ve.Fields, 3)
	})

	t.Run("limit is capped", func(t *testing.T) {
		f, err := transactionFilter(httptest.NewRequest(http.MethodGet, "/?limit=1000", nil), 0, true)
		require.NoError(t, err)
		assert.Equal(t, services.MaxPageLimit, f.Page.Limit)
	})
}

func TestPageFromQuery(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p, err := pageFromQuery(httptest.NewRequest(http.MethodGet, "/", nil), services.DefaultPageLimit)
		require.NoError(t, err)
		assert.Equal(t, services.Page{Page: 1, Limit: services.DefaultPageLimit}, p)
	})

	for _, page := range []string{"0", "-1", "x", "9223372036854775807", fmt.Sprint(services.MaxPage + 1)} {
		t.Run("page "+page, func(t *testing.T) {
			_, err := pageFromQuery(httptest.NewRequest(http.MethodGet, "/?limit=100&page="+page, nil), services.DefaultPageLimit)
			assert.ErrorIs(t, err, services.ErrValidationFailed)
		})
	}

	t.Run("last allowed page", func(t *testing.T) {
		p, err := pageFromQuery(httptest.NewRequest(http.MethodGet,
			fmt.Sprintf("/?limit=100&page=%d", services.MaxPage), nil), services.DefaultPageLimit)
		require.NoError(t, err)
		assert.Positive(t, p.Offset())
	})
}
