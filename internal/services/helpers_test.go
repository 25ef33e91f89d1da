package services

import (
	"bytes"
	"log"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/intlpay/backend/internal/audit"
	"github.com/intlpay/backend/internal/config"
	"github.com/intlpay/backend/internal/models"
	"github.com/shopspring/decimal"
)

const (
	customerID = "6f1c2a3b-4d5e-4f60-8a7b-9c0d1e2f3a4b"
	otherID    = "0a1b2c3d-4e5f-4a6b-8c7d-8e9f0a1b2c3d"
	employeeID = "11111111-2222-4333-8444-555555555555"
	adminID    = "99999999-8888-4777-8666-555555555555"
	txID       = "b3c4d5e6-f7a8-4b9c-8d0e-1f2a3b4c5d6e"
)

var (
	customer = &models.Identity{ID: customerID, Role: models.RoleCustomer, Email: "ann@example.com"}
	employee = &models.Identity{ID: employeeID, Role: models.RoleEmployee, Email: "emp@example.com"}
	admin    = &models.Identity{ID: adminID, Role: models.RoleAdmin, Email: "admin@example.com"}
)

var testArgon2 = config.Argon2Config{
	Time:       1,
	Memory:     8 * 1024,
	Threads:    1,
	KeyLength:  32,
	SaltLength: 16,
}

func newTestAudit() (*audit.AuditLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return audit.NewAuditLoggerTo(log.New(&buf, "", 0)), &buf
}

var accountCols = []string{"id", "name", "email", "password_hash", "role", "created_at", "updated_at"}

func accountRows(accounts ...models.Account) *sqlmock.Rows {
	rows := sqlmock.NewRows(accountCols)
	for _, a := range accounts {
		rows.AddRow(a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role), a.CreatedAt, a.UpdatedAt)
	}
	return rows
}

var transactionCols = []string{
	"id", "customer_id", "swift_code", "amount", "currency", "description",
	"payment_method", "recipient_name", "recipient_bank", "status",
	"reviewed_by", "reviewed_at", "admin_notes", "created_at", "updated_at",
	"name", "email", "name", "email",
}

func transactionRows(txs ...models.Transaction) *sqlmock.Rows {
	rows := sqlmock.NewRows(transactionCols)
	for _, tx := range txs {
		var reviewedBy, reviewedAt, adminNotes, reviewerName, reviewerEmail any
		if tx.ReviewedBy != nil {
			reviewedBy, reviewerName, reviewerEmail = *tx.ReviewedBy, "Eve Staff", "emp@example.com"
		}
		if tx.ReviewedAt != nil {
			reviewedAt = *tx.ReviewedAt
		}
		if tx.AdminNotes != nil {
			adminNotes = *tx.AdminNotes
		}
		rows.AddRow(tx.ID, tx.CustomerID, tx.SwiftCode, tx.Amount.StringFixed(2), tx.Currency, tx.Description,
			string(tx.PaymentMethod), tx.RecipientName, tx.RecipientBank, string(tx.Status),
			reviewedBy, reviewedAt, adminNotes, tx.CreatedAt, tx.UpdatedAt,
			"Ann Lee", "ann@example.com", reviewerName, reviewerEmail)
	}
	return rows
}

func sampleTransaction(status models.Status) models.Transaction {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	tx := models.Transaction{
		ID:            txID,
		CustomerID:    customerID,
		SwiftCode:     "BOFAUS3N",
		Amount:        models.NewMoney(decimal.RequireFromString("100.50")),
		Currency:      "ZAR",
		Description:   "Payment transfer BOFAUS3N",
		PaymentMethod: models.PaymentBankTransfer,
		RecipientName: "John Smith",
		RecipientBank: "Bank of America",
		Status:        status,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	if status.Terminal() {
		reviewer := employeeID
		reviewed := created.Add(time.Hour)
		tx.ReviewedBy = &reviewer
		tx.ReviewedAt = &reviewed
		tx.UpdatedAt = reviewed
	}
	return tx
}
