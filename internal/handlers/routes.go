package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/intlpay/backend/internal/audit"
	mW "github.com/intlpay/backend/internal/middleware"
	"github.com/intlpay/backend/internal/models"
	"github.com/intlpay/backend/internal/services"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	customer = []models.Role{models.RoleCustomer}
	staff    = []models.Role{models.RoleEmployee, models.RoleAdmin}
	admin    = []models.Role{models.RoleAdmin}
	anyRole  = []models.Role{}
)

// Route binds a handler to a method, a pattern under /api/v1 and the roles
// allowed to call it. Public routes skip authentication; an empty Roles list
// admits any authenticated caller.
type Route struct {
	Method  string
	Pattern string
	Public  bool
	Roles   []models.Role
	Handler http.HandlerFunc
}

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Auth         *AuthHandler
	Transactions *TransactionHandler
	Admin        *AdminHandler
}

// Deps are the services the handlers are built from.
type Deps struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Reports      *services.ReportService
	Tokens       *services.TokenService
	Limiter      *services.RateLimiter
	ISO20022     *services.ISO20022Service
	QR           *services.QRService
	Validator    *services.ValidationHelper
	Audit        *audit.AuditLogger
	Debug        bool
}

func New(d Deps) *Handlers {
	rs := Responder{Debug: d.Debug, Audit: d.Audit}
	return &Handlers{
		Auth:         NewAuthHandler(d.Accounts, d.Tokens, d.Limiter, d.Validator, rs),
		Transactions: NewTransactionHandler(d.Transactions, d.Limiter, d.ISO20022, d.QR, d.Validator, rs),
		Admin:        NewAdminHandler(d.Accounts, d.Transactions, d.Reports, d.Validator, rs),
	}
}

// Routes is the complete access policy of the API.
func (h *Handlers) Routes() []Route {
	return []Route{
		{http.MethodPost, "/auth/register", true, nil, h.Auth.Register},
		{http.MethodPost, "/auth/login", true, nil, h.Auth.Login},
		{http.MethodPost, "/auth/logout", false, anyRole, h.Auth.Logout},
		{http.MethodGet, "/auth/me", false, anyRole, h.Auth.Me},
		{http.MethodPut, "/auth/update/{id}", false, []models.Role{models.RoleAdmin, models.RoleCustomer}, h.Auth.Update},
		{http.MethodDelete, "/auth/delete/{id}", false, admin, h.Auth.Delete},

		{http.MethodPost, "/transactions", false, customer, h.Transactions.Create},
		{http.MethodGet, "/transactions/my", false, customer, h.Transactions.ListOwn},
		{http.MethodGet, "/transactions", false, staff, h.Transactions.ListAll},
		{http.MethodGet, "/transactions/{id}", false, anyRole, h.Transactions.GetOne},
		{http.MethodPut, "/transactions/{id}/status", false, staff, h.Transactions.UpdateStatus},
		{http.MethodDelete, "/transactions/{id}", false, admin, h.Transactions.Delete},
		{http.MethodGet, "/transactions/{id}/receipt", false, anyRole, h.Transactions.Receipt},
		{http.MethodGet, "/transactions/{id}/iso20022", false, staff, h.Transactions.ISO20022},

		{http.MethodGet, "/employees/transactions", false, staff, h.Transactions.EmployeeList},
		{http.MethodPatch, "/employees/transactions/{id}/status", false, staff, h.Transactions.EmployeeUpdateStatus},

		{http.MethodGet, "/admin/dashboard/stats", false, admin, h.Admin.DashboardStats},
		{http.MethodGet, "/admin/users", false, admin, h.Admin.ListUsers},
		{http.MethodGet, "/admin/users/{id}", false, admin, h.Admin.GetUser},
		{http.MethodPost, "/admin/users", false, admin, h.Admin.CreateUser},
		{http.MethodPut, "/admin/users/{id}/role", false, admin, h.Admin.UpdateUserRole},
		{http.MethodDelete, "/admin/users/{id}", false, admin, h.Admin.DeleteUser},
		{http.MethodGet, "/admin/transactions", false, admin, h.Admin.ListTransactions},
		{http.MethodGet, "/admin/transactions/{id}", false, admin, h.Admin.GetTransaction},
		{http.MethodPut, "/admin/transactions/{id}/status", false, admin, h.Admin.UpdateTransactionStatus},
		{http.MethodGet, "/admin/export/{format}", false, admin, h.Admin.Export},
	}
}

// Mount registers routes on r, wrapping every non-public route with
// authentication followed by its role check.
func Mount(r chi.Router, verifier mW.TokenVerifier, routes []Route) {
	r.Group(func(r chi.Router) {
		for _, rt := range routes {
			if rt.Public {
				r.Method(rt.Method, rt.Pattern, rt.Handler)
			}
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(mW.Authenticate(verifier))
		for _, rt := range routes {
			if !rt.Public {
				r.With(mW.RequireRoles(rt.Roles...)).Method(rt.Method, rt.Pattern, rt.Handler)
			}
		}
	})
}

// NewRouter builds the application router behind the given request stages.
func NewRouter(h *Handlers, verifier mW.TokenVerifier, stages ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(stages...)

	r.Get("/health", Health)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		Mount(r, verifier, h.Routes())
	})
	return r
}

// Health godoc
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
