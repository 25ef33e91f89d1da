package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/intlpay/backend/internal/models"
	"github.com/intlpay/backend/internal/services"
)

const recentTransactionsLimit = 10

// AdminHandler serves the admin console.
type AdminHandler struct {
	Responder
	accounts     *services.AccountService
	transactions *services.TransactionService
	reports      *services.ReportService
	validator    *services.ValidationHelper
}

func NewAdminHandler(accounts *services.AccountService, transactions *services.TransactionService, reports *services.ReportService, validator *services.ValidationHelper, rs Responder) *AdminHandler {
	return &AdminHandler{
		Responder:    rs,
		accounts:     accounts,
		transactions: transactions,
		reports:      reports,
		validator:    validator,
	}
}

// AdminTransaction adds the admin-vocabulary status to a transaction.
type AdminTransaction struct {
	models.Transaction
	AdminStatus models.AdminStatus `json:"adminStatus" example:"completed"`
}

func adminView(transactions []models.Transaction) []AdminTransaction {
	out := make([]AdminTransaction, len(transactions))
	for i, tx := range transactions {
		out[i] = AdminTransaction{Transaction: tx, AdminStatus: tx.Status.AdminView()}
	}
	return out
}

type UserListResponse struct {
	Users      []models.Account `json:"users"`
	Pagination Pagination       `json:"pagination"`
}

type UserDetailResponse struct {
	models.Account
	RecentTransactions []models.Transaction `json:"recentTransactions"`
}

type AccountResponse struct {
	Message string          `json:"message"`
	User    *models.Account `json:"user"`
}

type AdminTransactionListResponse struct {
	Transactions []AdminTransaction           `json:"transactions"`
	Pagination   Pagination                   `json:"pagination"`
	Summary      *services.TransactionSummary `json:"summary"`
}

type AdminTransactionResponse struct {
	Message     string           `json:"message"`
	Transaction AdminTransaction `json:"transaction"`
}

// DashboardStats godoc
// @Summary Dashboard statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.DashboardStats
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/dashboard/stats [get]
func (h *AdminHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	stats, err := h.reports.DashboardStats(r.Context(), identity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Matches name or email"
// @Param role query string false "customer, employee or admin"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (default 50, max 100)"
// @Success 200 {object} UserListResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r, services.DefaultPageLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	filter := services.AccountFilter{
		Search: r.URL.Query().Get("search"),
		Page:   page,
	}
	if role := r.URL.Query().Get("role"); role != "" && role != "all" {
		if !models.Role(role).Valid() {
			h.respondError(w, r, services.ErrInvalidRole)
			return
		}
		filter.Role = models.Role(role)
	}

	users, total, err := h.accounts.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{Users: users, Pagination: newPagination(page, total)})
}

// GetUser godoc
// @Summary Get a user
// @Description Returns the account with its 10 most recent transactions
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} UserDetailResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{id} [get]
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	recent, err := h.transactions.ListForCustomer(r.Context(), account.ID, recentTransactionsLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserDetailResponse{Account: *account, RecentTransactions: recent})
}

// CreateUser godoc
// @Summary Create a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.RegisterInput true "Account details"
// @Success 201 {object} AccountResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/users [post]
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req services.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := services.Prepare(h.validator, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	account, err := h.accounts.Create(r.Context(), identity, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AccountResponse{Message: "User created successfully", User: account})
}

// UpdateUserRole godoc
// @Summary Change a user's role
// @Description Admins cannot change their own role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body services.RoleInput true "New role"
// @Success 200 {object} AccountResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req services.RoleInput
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := services.Prepare(h.validator, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	account, err := h.accounts.SetRole(r.Context(), identity, chi.URLParam(r, "id"), in.Role)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{Message: "User role updated successfully", User: account})
}

// DeleteUser godoc
// @Summary Delete a user
// @Description Removes the account and all of its transactions. Admins cannot delete themselves.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	if _, err := h.accounts.Remove(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User and associated transactions deleted successfully"})
}

// ListTransactions godoc
// @Summary List transactions with summary
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, completed, failed, cancelled, under_review or all"
// @Param paymentMethod query string false "Payment method"
// @Param startDate query string false "YYYY-MM-DD"
// @Param endDate query string false "YYYY-MM-DD, inclusive"
// @Param minAmount query number false "Minimum amount"
// @Param maxAmount query number false "Maximum amount"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (default 50, max 100)"
// @Success 200 {object} AdminTransactionListResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /admin/transactions [get]
func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	filter, err := transactionFilter(r, services.DefaultPageLimit, true)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	transactions, total, err := h.transactions.ListAll(r.Context(), identity, filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := h.reports.Summarize(r.Context(), identity, filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminTransactionListResponse{
		Transactions: adminView(transactions),
		Pagination:   newPagination(filter.Page, total),
		Summary:      summary,
	})
}

// GetTransaction godoc
// @Summary Get a transaction
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} AdminTransaction
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/transactions/{id} [get]
func (h *AdminHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	tx, err := h.transactions.GetOne(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adminView([]models.Transaction{*tx})[0])
}

// UpdateTransactionStatus godoc
// @Summary Review a transaction (admin vocabulary)
// @Description completed approves, failed and cancelled reject. Only pending transactions can be reviewed.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param request body services.AdminStatusInput true "New status"
// @Success 200 {object} AdminTransactionResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/transactions/{id}/status [put]
func (h *AdminHandler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req services.AdminStatusInput
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := services.Prepare(h.validator, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	tx, err := h.transactions.TransitionAdmin(r.Context(), identity, chi.URLParam(r, "id"), models.AdminStatus(in.Status), in.AdminNotes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminTransactionResponse{
		Message:     "Transaction status updated successfully",
		Transaction: adminView([]models.Transaction{*tx})[0],
	})
}

// Export godoc
// @Summary Export data
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param format path string true "json"
// @Param dataType query string true "users or transactions"
// @Success 200 {object} services.Export
// @Failure 400 {object} services.ErrorResponse
// @Router /admin/export/{format} [get]
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	export, err := h.reports.Export(r.Context(), identity, chi.URLParam(r, "format"), r.URL.Query().Get("dataType"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}
