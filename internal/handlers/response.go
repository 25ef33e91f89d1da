package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/intlpay/backend/internal/audit"
	mW "github.com/intlpay/backend/internal/middleware"
	"github.com/intlpay/backend/internal/models"
	"github.com/intlpay/backend/internal/services"
)

const maxBodyBytes = 1_048_576 // 1 MB

// Responder renders results and maps domain errors onto HTTP statuses.
// Debug adds the underlying error to 500 responses.
type Responder struct {
	Debug bool
	Audit *audit.AuditLogger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads exactly one JSON object into dst. It writes the error
// response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		log.Printf("[HTTP] %s %s - decode error: %v", r.Method, r.URL.Path, err)
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

// identity returns the authenticated caller or writes a 401.
func (rs Responder) identity(w http.ResponseWriter, r *http.Request) (*models.Identity, bool) {
	identity, ok := mW.IdentityFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "No token, authorization denied", http.StatusUnauthorized, nil)
	}
	return identity, ok
}

// respondError writes the response for err.
func (rs Responder) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *services.ValidationError
		rle *services.RateLimitError
	)

	switch {
	case errors.As(err, &ve):
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, ve)
	case errors.As(err, &rle):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rle.RetryAfter.Seconds()))))
		services.SendErrorResponse(w, services.ErrRateLimited.Error(), http.StatusTooManyRequests, nil)
	case errors.Is(err, services.ErrRateLimited):
		services.SendErrorResponse(w, services.ErrRateLimited.Error(), http.StatusTooManyRequests, nil)
	case errors.Is(err, services.ErrSelfModification):
		rs.denied(r, err)
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrNotSettled):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		services.SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
	case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, services.ErrInvalidCredential):
		services.SendErrorResponse(w, "Token is not valid", http.StatusUnauthorized, nil)
	case errors.Is(err, services.ErrForbidden):
		rs.denied(r, err)
		services.SendErrorResponse(w, "Access denied: insufficient permissions", http.StatusForbidden, nil)
	case errors.Is(err, services.ErrNotFound):
		services.SendErrorResponse(w, capitalize(err.Error()), http.StatusNotFound, nil)
	default:
		log.Printf("[HTTP] %s %s - internal error: %v", r.Method, r.URL.Path, err)
		resp := services.ErrorResponse{Message: "Internal server error"}
		if rs.Debug {
			resp.Error = err.Error()
		}
		services.WriteErrorResponse(w, http.StatusInternalServerError, resp)
	}
}

func (rs Responder) denied(r *http.Request, err error) {
	if rs.Audit == nil {
		return
	}
	actor := ""
	if identity, ok := mW.IdentityFromContext(r.Context()); ok {
		actor = identity.ID
	}
	rs.Audit.LogDenied(actor, r.Method+" "+r.URL.Path, err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Pagination describes the page returned by a listing.
type Pagination struct {
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	Total       int  `json:"total"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

func newPagination(p services.Page, total int) Pagination {
	pages := p.Pages(total)
	return Pagination{
		TotalPages:  pages,
		CurrentPage: p.Page,
		Total:       total,
		HasNext:     p.Page < pages,
		HasPrev:     p.Page > 1,
	}
}

// pageFromQuery reads page and limit, falling back to defaultLimit.
func pageFromQuery(r *http.Request, defaultLimit int) (services.Page, error) {
	p := services.Page{Page: 1, Limit: defaultLimit}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, &services.ValidationError{Fields: []string{"page must be a positive integer"}}
		}
		if n > services.MaxPage {
			return p, &services.ValidationError{Fields: []string{fmt.Sprintf("page must not exceed %d", services.MaxPage)}}
		}
		p.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, &services.ValidationError{Fields: []string{"limit must be a positive integer"}}
		}
		p.Limit = n
	}
	return p.Normalize(), nil
}

const dateLayout = "2006-01-02"

func parseDate(field, v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, v); err != nil {
			return nil, &services.ValidationError{Fields: []string{field + " must be a date (YYYY-MM-DD)"}}
		}
		return &t, nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
