package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/intlpay/backend/internal/models"
	"github.com/intlpay/backend/internal/services"
)

// TransactionHandler serves the customer and staff transaction endpoints.
type TransactionHandler struct {
	Responder
	transactions *services.TransactionService
	limiter      *services.RateLimiter
	iso20022     *services.ISO20022Service
	qr           *services.QRService
	validator    *services.ValidationHelper
}

func NewTransactionHandler(transactions *services.TransactionService, limiter *services.RateLimiter, iso *services.ISO20022Service, qr *services.QRService, validator *services.ValidationHelper, rs Responder) *TransactionHandler {
	return &TransactionHandler{
		Responder:    rs,
		transactions: transactions,
		limiter:      limiter,
		iso20022:     iso,
		qr:           qr,
		validator:    validator,
	}
}

type TransactionResponse struct {
	Message     string              `json:"message,omitempty"`
	Transaction *models.Transaction `json:"transaction"`
}

type TransactionListResponse struct {
	Message      string               `json:"message"`
	Count        int                  `json:"count"`
	Total        int                  `json:"total"`
	Transactions []models.Transaction `json:"transactions"`
}

// Create godoc
// @Summary Create a transaction
// @Description Records a pending international transfer for the calling customer
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateTransactionInput true "Transfer details"
// @Success 201 {object} TransactionResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Router /transactions [post]
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	if err := h.limiter.Allow(r.Context(), h.limiter.Transaction, identity.ID); err != nil {
		h.respondError(w, r, err)
		return
	}

	var req services.CreateTransactionInput
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := services.Prepare(h.validator, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	tx, err := h.transactions.Create(r.Context(), identity, in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TransactionResponse{Message: "Transaction created successfully", Transaction: tx})
}

// ListOwn godoc
// @Summary List my transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} TransactionListResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /transactions/my [get]
func (h *TransactionHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	transactions, err := h.transactions.ListOwn(r.Context(), identity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransactionListResponse{
		Message:      "Transactions retrieved successfully",
		Count:        len(transactions),
		Total:        len(transactions),
		Transactions: transactions,
	})
}

// ListAll godoc
// @Summary List all transactions
// @Description Staff listing, newest first. Unpaginated unless limit is given.
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param paymentMethod query string false "Payment method"
// @Param startDate query string false "YYYY-MM-DD"
// @Param endDate query string false "YYYY-MM-DD"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} TransactionListResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /transactions [get]
func (h *TransactionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	transactions, total, ok := h.listAll(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TransactionListResponse{
		Message:      "Transactions retrieved successfully",
		Count:        len(transactions),
		Total:        total,
		Transactions: transactions,
	})
}

// EmployeeList godoc
// @Summary Review queue
// @Description Returns the staff listing as a bare array
// @Tags employees
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Success 200 {array} models.Transaction
// @Failure 403 {object} services.ErrorResponse
// @Router /employees/transactions [get]
func (h *TransactionHandler) EmployeeList(w http.ResponseWriter, r *http.Request) {
	transactions, _, ok := h.listAll(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (h *TransactionHandler) listAll(w http.ResponseWriter, r *http.Request) ([]models.Transaction, int, bool) {
	identity, ok := h.identity(w, r)
	if !ok {
		return nil, 0, false
	}

	filter, err := transactionFilter(r, 0, false)
	if err != nil {
		h.respondError(w, r, err)
		return nil, 0, false
	}

	transactions, total, err := h.transactions.ListAll(r.Context(), identity, filter)
	if err != nil {
		h.respondError(w, r, err)
		return nil, 0, false
	}
	return transactions, total, true
}

// GetOne godoc
// @Summary Get a transaction
// @Description Customers may only read their own transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} TransactionResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetOne(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TransactionResponse{Transaction: tx})
}

func (h *TransactionHandler) load(w http.ResponseWriter, r *http.Request) (*models.Transaction, bool) {
	identity, ok := h.identity(w, r)
	if !ok {
		return nil, false
	}

	tx, err := h.transactions.GetOne(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	return tx, true
}

// UpdateStatus godoc
// @Summary Review a transaction
// @Description Moves a pending transaction to approved or rejected. Reviewed transactions cannot change again.
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param request body services.StatusInput true "New status"
// @Success 200 {object} TransactionResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id}/status [put]
func (h *TransactionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.review(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TransactionResponse{
		Message:     fmt.Sprintf("Transaction %s successfully", tx.Status),
		Transaction: tx,
	})
}

// EmployeeUpdateStatus godoc
// @Summary Review a transaction
// @Description Same transition as PUT /transactions/{id}/status, returning the bare transaction
// @Tags employees
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param request body services.StatusInput true "New status"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /employees/transactions/{id}/status [patch]
func (h *TransactionHandler) EmployeeUpdateStatus(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.review(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) review(w http.ResponseWriter, r *http.Request) (*models.Transaction, bool) {
	identity, ok := h.identity(w, r)
	if !ok {
		return nil, false
	}

	var req services.StatusInput
	if !decodeJSON(w, r, &req) {
		return nil, false
	}

	in, err := services.Prepare(h.validator, req)
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}

	tx, err := h.transactions.Transition(r.Context(), identity, chi.URLParam(r, "id"), models.Status(in.Status), in.AdminNotes)
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	return tx, true
}

// Delete godoc
// @Summary Delete a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	if err := h.transactions.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Transaction deleted successfully"})
}

// Receipt godoc
// @Summary Transaction receipt
// @Description Returns a QR code (base64 PNG) encoding the transaction reference and status
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} services.Receipt
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id}/receipt [get]
func (h *TransactionHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.load(w, r)
	if !ok {
		return
	}

	receipt, err := h.qr.Receipt(tx)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// ISO20022 godoc
// @Summary ISO 20022 message
// @Description pacs.008 for approved transactions, pacs.002 status report otherwise. format=xml returns the raw document.
// @Tags transactions
// @Produce json
// @Produce xml
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param format query string false "json (default) or xml"
// @Success 200 {object} services.Document
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id}/iso20022 [get]
func (h *TransactionHandler) ISO20022(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.load(w, r)
	if !ok {
		return
	}

	doc, err := h.iso20022.Render(tx)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "xml" {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(doc.XML))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
