package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the canonical review-flow status of a transaction.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a canonical status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Terminal reports whether the review path has resolved the transaction.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// AdminStatus is the reporting vocabulary used by the admin console.
type AdminStatus string

const (
	AdminStatusPending     AdminStatus = "pending"
	AdminStatusCompleted   AdminStatus = "completed"
	AdminStatusFailed      AdminStatus = "failed"
	AdminStatusCancelled   AdminStatus = "cancelled"
	AdminStatusUnderReview AdminStatus = "under_review"
)

// AdminStatuses lists the admin vocabulary in display order.
var AdminStatuses = []AdminStatus{
	AdminStatusPending,
	AdminStatusCompleted,
	AdminStatusFailed,
	AdminStatusCancelled,
	AdminStatusUnderReview,
}

// AdminView maps a canonical status onto the admin vocabulary.
func (s Status) AdminView() AdminStatus {
	switch s {
	case StatusApproved:
		return AdminStatusCompleted
	case StatusRejected:
		return AdminStatusFailed
	default:
		return AdminStatusPending
	}
}

// Canonical maps an admin status onto the canonical enumeration.
// The second return value is false for statuses outside the admin vocabulary.
func (a AdminStatus) Canonical() (Status, bool) {
	switch a {
	case AdminStatusCompleted:
		return StatusApproved, true
	case AdminStatusFailed, AdminStatusCancelled:
		return StatusRejected, true
	case AdminStatusPending, AdminStatusUnderReview:
		return StatusPending, true
	}
	return "", false
}

// PaymentMethod enumerates how the customer funds a transfer.
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentPayPal       PaymentMethod = "paypal"
)

// Money is a two-decimal amount serialized as a JSON number.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps d rounded to two decimal places.
func NewMoney(d decimal.Decimal) Money {
	return Money{d.Round(2)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

// Transaction is an international transfer request.
type Transaction struct {
	ID            string        `json:"id" db:"id"`
	CustomerID    string        `json:"customerId" db:"customer_id"`
	Customer      *Party        `json:"customer,omitempty"`
	SwiftCode     string        `json:"swiftCode" db:"swift_code" example:"BOFAUS3N"`
	Amount        Money         `json:"amount" db:"amount" swaggertype:"number" example:"100.00"`
	Currency      string        `json:"currency" db:"currency" example:"ZAR"`
	Description   string        `json:"description" db:"description"`
	PaymentMethod PaymentMethod `json:"paymentMethod" db:"payment_method" example:"bank_transfer"`
	RecipientName string        `json:"recipientName" db:"recipient_name"`
	RecipientBank string        `json:"recipientBank" db:"recipient_bank"`
	Status        Status        `json:"status" db:"status" example:"pending"`
	ReviewedBy    *string       `json:"reviewedBy" db:"reviewed_by"`
	Reviewer      *Party        `json:"reviewer,omitempty"`
	ReviewedAt    *time.Time    `json:"reviewedAt,omitempty" db:"reviewed_at"`
	AdminNotes    *string       `json:"adminNotes,omitempty" db:"admin_notes"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}
