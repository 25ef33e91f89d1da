package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mW "github.com/intlpay/backend/internal/middleware"
	"github.com/intlpay/backend/internal/models"
	"github.com/intlpay/backend/internal/services"
	"github.com/tomasen/realip"
)

// AuthHandler serves registration, login and profile endpoints.
type AuthHandler struct {
	Responder
	accounts  *services.AccountService
	tokens    *services.TokenService
	limiter   *services.RateLimiter
	validator *services.ValidationHelper
}

func NewAuthHandler(accounts *services.AccountService, tokens *services.TokenService, limiter *services.RateLimiter, validator *services.ValidationHelper, rs Responder) *AuthHandler {
	return &AuthHandler{
		Responder: rs,
		accounts:  accounts,
		tokens:    tokens,
		limiter:   limiter,
		validator: validator,
	}
}

// UserView is the public projection of an account.
type UserView struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func userView(a *models.Account) UserView {
	return UserView{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserResponse struct {
	Message string   `json:"message,omitempty"`
	User    UserView `json:"user"`
}

// Register godoc
// @Summary Register an account
// @Description Creates an account (customer unless a valid role is supplied) and returns a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RegisterInput true "Registration details"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} services.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := services.Prepare(h.validator, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	account, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(account)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{
		Message:   "User registered successfully",
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userView(account),
	})
}

// Login godoc
// @Summary Log in
// @Description Exchanges email and password for a session token. Failed attempts are rate limited per client and email.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginInput true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := services.Prepare(h.validator, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	subject := realip.FromRequest(r) + ":" + in.Email
	if err := h.limiter.Check(r.Context(), h.limiter.Login, subject); err != nil {
		log.Printf("[AUTH] Login blocked for %s: %v", subject, err)
		h.respondError(w, r, err)
		return
	}

	account, err := h.accounts.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.limiter.Hit(r.Context(), h.limiter.Login, subject)
			log.Printf("[AUTH] Failed login from %s", realip.FromRequest(r))
		}
		h.respondError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(account)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	log.Printf("[AUTH] Login successful for user %s", account.ID)
	writeJSON(w, http.StatusOK, SessionResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: expiresAt,
		User:      userView(account),
	})
}

// Logout godoc
// @Summary Log out
// @Description Acknowledges logout. Tokens stay valid until they expire; clients discard them.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := mW.BearerToken(r)
	if err := h.tokens.Revoke(r.Context(), token); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.Get(r.Context(), identity.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: userView(account)})
}

// Update godoc
// @Summary Update a profile
// @Description Customers update their own profile. Admins may update any account, including its role (never their own).
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body services.UpdateProfileInput true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /auth/update/{id} [put]
func (h *AuthHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req services.UpdateProfileInput
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := services.Prepare(h.validator, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	account, err := h.accounts.UpdateProfile(r.Context(), identity, chi.URLParam(r, "id"), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Message: "User updated successfully", User: userView(account)})
}

// Delete godoc
// @Summary Delete an account
// @Description Removes another account and all of its transactions
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 202 {object} MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /auth/delete/{id} [delete]
func (h *AuthHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	if _, err := h.accounts.Remove(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{Message: "User deleted successfully"})
}
