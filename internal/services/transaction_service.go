package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/intlpay/backend/internal/audit"
	"github.com/intlpay/backend/internal/models"
	"github.com/shopspring/decimal"
)

const notProvided = "Not provided"

// transactionSelect reads a transaction with its owner and reviewer from the
// relation named by the format argument.
const transactionSelect = `
	SELECT t.id, t.customer_id, t.swift_code, t.amount, t.currency, t.description,
		t.payment_method, t.recipient_name, t.recipient_bank, t.status,
		t.reviewed_by, t.reviewed_at, t.admin_notes, t.created_at, t.updated_at,
		c.name, c.email, r.name, r.email
	FROM %s t
	JOIN users c ON c.id = t.customer_id
	LEFT JOIN users r ON r.id = t.reviewed_by`

const transactionColumns = `id, customer_id, swift_code, amount, currency, description,
	payment_method, recipient_name, recipient_bank, status, reviewed_by, reviewed_at, admin_notes, created_at, updated_at`

// TransactionFilter narrows staff listings. Zero values are ignored.
type TransactionFilter struct {
	Status        models.Status
	AdminStatus   models.AdminStatus
	PaymentMethod models.PaymentMethod
	CustomerID    string
	From          *time.Time
	To            *time.Time
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Page          Page
}

func (f TransactionFilter) where() *whereBuilder {
	w := &whereBuilder{}
	if f.Status != "" {
		w.add("t.status = ?", string(f.Status))
	}
	if f.AdminStatus != "" {
		status, ok := f.AdminStatus.Canonical()
		// cancelled and under_review are never stored
		if !ok || f.AdminStatus == models.AdminStatusCancelled || f.AdminStatus == models.AdminStatusUnderReview {
			w.raw("FALSE")
		} else {
			w.add("t.status = ?", string(status))
		}
	}
	if f.PaymentMethod != "" {
		w.add("t.payment_method = ?", string(f.PaymentMethod))
	}
	if f.CustomerID != "" {
		w.add("t.customer_id = ?", f.CustomerID)
	}
	if f.From != nil {
		w.add("t.created_at >= ?", *f.From)
	}
	if f.To != nil {
		w.add("t.created_at <= ?", *f.To)
	}
	if f.MinAmount != nil {
		w.add("t.amount >= ?", f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		w.add("t.amount <= ?", f.MaxAmount.String())
	}
	return w
}

// TransactionService owns the transfer lifecycle: customers create pending
// requests, staff move them to approved or rejected exactly once.
type TransactionService struct {
	db       *sql.DB
	audit    *audit.AuditLogger
	currency string
	now      func() time.Time
}

func NewTransactionService(db *sql.DB, auditLogger *audit.AuditLogger, currency string) *TransactionService {
	return &TransactionService{
		db:       db,
		audit:    auditLogger,
		currency: currency,
		now:      time.Now,
	}
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx                          models.Transaction
		amount                      decimal.Decimal
		reviewedBy                  sql.NullString
		reviewedAt                  sql.NullTime
		adminNotes                  sql.NullString
		customerName, customerEmail string
		reviewerName, reviewerEmail sql.NullString
	)

	err := row.Scan(
		&tx.ID, &tx.CustomerID, &tx.SwiftCode, &amount, &tx.Currency, &tx.Description,
		&tx.PaymentMethod, &tx.RecipientName, &tx.RecipientBank, &tx.Status,
		&reviewedBy, &reviewedAt, &adminNotes, &tx.CreatedAt, &tx.UpdatedAt,
		&customerName, &customerEmail, &reviewerName, &reviewerEmail,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount = models.NewMoney(amount)
	tx.Customer = &models.Party{ID: tx.CustomerID, Name: customerName, Email: customerEmail}
	if reviewedBy.Valid {
		tx.ReviewedBy = &reviewedBy.String
		tx.Reviewer = &models.Party{ID: reviewedBy.String, Name: reviewerName.String, Email: reviewerEmail.String}
	}
	if reviewedAt.Valid {
		tx.ReviewedAt = &reviewedAt.Time
	}
	if adminNotes.Valid {
		tx.AdminNotes = &adminNotes.String
	}
	return &tx, nil
}

func (ts *TransactionService) queryTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := ts.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// Create records a pending transfer for the calling customer.
func (ts *TransactionService) Create(ctx context.Context, owner *models.Identity, in CreateTransactionInput) (*models.Transaction, error) {
	if owner == nil || owner.Role != models.RoleCustomer {
		return nil, ErrForbidden
	}

	amount, err := in.Amount.Decimal()
	if err != nil {
		return nil, &ValidationError{Fields: []string{customMessageFor("amount", "amount")}}
	}
	if !IsSwiftCode(in.SwiftCode) {
		return nil, &ValidationError{Fields: []string{customMessageFor("swift", "swiftCode")}}
	}

	description := in.Description
	if description == "" {
		description = "Payment transfer " + in.SwiftCode
	}
	method := models.PaymentMethod(in.PaymentMethod)
	if method == "" {
		method = models.PaymentBankTransfer
	}

	now := ts.now().UTC()
	row := ts.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO transactions (id, customer_id, swift_code, amount, currency, description,
				payment_method, recipient_name, recipient_bank, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10, $10)
			RETURNING `+transactionColumns+`
		)`+fmt.Sprintf(transactionSelect, "inserted"),
		uuid.NewString(), owner.ID, in.SwiftCode, amount.StringFixed(2), ts.currency, description,
		string(method), orDefault(in.RecipientName, notProvided), orDefault(in.RecipientBank, notProvided), now)

	tx, err := scanTransaction(row)
	// a still-valid token can outlive its account
	if errors.Is(err, sql.ErrNoRows) || isForeignKeyViolation(err) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	log.Printf("[TRANSACTION] Created %s for customer %s amount %s", tx.ID, owner.ID, tx.Amount.StringFixed(2))
	return tx, nil
}

// ListOwn returns the caller's transactions newest-first.
func (ts *TransactionService) ListOwn(ctx context.Context, owner *models.Identity) ([]models.Transaction, error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}
	return ts.ListForCustomer(ctx, owner.ID, 0)
}

// ListForCustomer returns up to limit of a customer's most recent transactions.
// A zero limit returns all of them.
func (ts *TransactionService) ListForCustomer(ctx context.Context, customerID string, limit int) ([]models.Transaction, error) {
	query := fmt.Sprintf(transactionSelect, "transactions") + " WHERE t.customer_id = $1 ORDER BY t.created_at DESC"
	if limit > 0 {
		return ts.queryTransactions(ctx, query+" LIMIT $2", customerID, limit)
	}
	return ts.queryTransactions(ctx, query, customerID)
}

// ListAll returns the filtered page and the total number of matching rows.
func (ts *TransactionService) ListAll(ctx context.Context, caller *models.Identity, filter TransactionFilter) ([]models.Transaction, int, error) {
	if caller == nil || !caller.Role.IsStaff() {
		return nil, 0, ErrForbidden
	}

	where := filter.where()

	var total int
	if err := ts.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions t"+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := fmt.Sprintf(transactionSelect, "transactions") + where.String() + " ORDER BY t.created_at DESC"
	query += where.paginate(filter.Page.Normalize())

	transactions, err := ts.queryTransactions(ctx, query, where.args...)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

// GetOne loads a transaction. Customers may only read their own.
func (ts *TransactionService) GetOne(ctx context.Context, caller *models.Identity, id string) (*models.Transaction, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTransactionNotFound
	}

	tx, err := scanTransaction(ts.db.QueryRowContext(ctx,
		fmt.Sprintf(transactionSelect, "transactions")+" WHERE t.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	switch {
	case caller.Role.IsStaff():
	case caller.Role == models.RoleCustomer && tx.CustomerID == caller.ID:
	default:
		return nil, ErrForbidden
	}
	return tx, nil
}

// Transition moves a pending transaction to approved or rejected and stores the
// reviewer's notes; empty notes are stored as NULL. The update is a single
// statement guarded by status = 'pending', so of two concurrent reviews exactly
// one succeeds.
func (ts *TransactionService) Transition(ctx context.Context, caller *models.Identity, id string, newStatus models.Status, notes string) (*models.Transaction, error) {
	if caller == nil || !caller.Role.IsStaff() {
		return nil, ErrForbidden
	}
	if newStatus != models.StatusApproved && newStatus != models.StatusRejected {
		return nil, ErrInvalidTransition
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTransactionNotFound
	}

	now := ts.now().UTC()
	row := ts.db.QueryRowContext(ctx, `
		WITH updated AS (
			UPDATE transactions
			SET status = $1, reviewed_by = $2, reviewed_at = $3, updated_at = $3, admin_notes = NULLIF($5, '')
			WHERE id = $4 AND status = 'pending'
			RETURNING `+transactionColumns+`
		)`+fmt.Sprintf(transactionSelect, "updated"),
		string(newStatus), caller.ID, now, id, notes)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ts.explainMiss(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	ts.audit.LogReview(tx.ID, caller.ID, string(models.StatusPending), string(newStatus))
	log.Printf("[TRANSACTION] %s %s by %s", tx.ID, newStatus, caller.ID)
	return tx, nil
}

// explainMiss tells a missing transaction apart from one already reviewed.
func (ts *TransactionService) explainMiss(ctx context.Context, id string) error {
	var status string
	err := ts.db.QueryRowContext(ctx, "SELECT status FROM transactions WHERE id = $1", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load transaction status: %w", err)
	}
	return fmt.Errorf("%w: transaction is %s", ErrInvalidTransition, status)
}

// TransitionAdmin applies a status expressed in the admin vocabulary.
func (ts *TransactionService) TransitionAdmin(ctx context.Context, caller *models.Identity, id string, status models.AdminStatus, notes string) (*models.Transaction, error) {
	if caller == nil || caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	canonical, ok := status.Canonical()
	if !ok || canonical == models.StatusPending {
		return nil, ErrInvalidTransition
	}
	return ts.Transition(ctx, caller, id, canonical, notes)
}

// Delete removes a transaction regardless of its status.
func (ts *TransactionService) Delete(ctx context.Context, caller *models.Identity, id string) error {
	if caller == nil || caller.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrTransactionNotFound
	}

	res, err := ts.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTransactionNotFound
	}

	ts.audit.LogTransactionDeleted(id, caller.ID)
	log.Printf("[TRANSACTION] %s deleted by %s", id, caller.ID)
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
