package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// RegisterInput represents the registration request payload
// @Description Registration and admin account creation payload
type RegisterInput struct {
	Name     string `json:"name" validate:"required,personname" example:"Ann Lee"`                                // Full name
	Email    string `json:"email" validate:"required,email,max=254" example:"ann@example.com"`                    // Email address
	Password string `json:"password" validate:"required,strongpassword" example:"Abcdef1!"`                       // Password
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=customer employee admin" example:"customer"` // Optional role
}

func (in RegisterInput) Sanitized() RegisterInput {
	in.Name = SanitizeText(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.Role = strings.ToLower(SanitizeText(in.Role))
	return in
}

// LoginInput represents the login request payload
// @Description Login request structure
type LoginInput struct {
	Email    string `json:"email" validate:"required,email" example:"ann@example.com"`
	Password string `json:"password" validate:"required" example:"Abcdef1!"`
}

func (in LoginInput) Sanitized() LoginInput {
	in.Email = NormalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	return in
}

// UpdateProfileInput carries optional profile changes. Empty fields are left untouched.
type UpdateProfileInput struct {
	Name     string `json:"name,omitempty" validate:"omitempty,personname"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Password string `json:"password,omitempty" validate:"omitempty,strongpassword"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=customer employee admin"`
}

func (in UpdateProfileInput) Sanitized() UpdateProfileInput {
	in.Name = SanitizeText(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.Role = strings.ToLower(SanitizeText(in.Role))
	return in
}

// AmountText is an amount as written by the client. Both JSON numbers and
// JSON strings decode into it so the textual form can be checked for scale.
type AmountText string

func (a *AmountText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("amount must be a number or a numeric string")
	}
	*a = AmountText(n.String())
	return nil
}

func (a AmountText) Decimal() (decimal.Decimal, error) {
	return ParseAmount(string(a))
}

// CreateTransactionInput represents a new transfer request
// @Description Transfer request submitted by a customer
type CreateTransactionInput struct {
	SwiftCode     string     `json:"swiftCode" validate:"required,swift" example:"BOFAUS3N"`
	Amount        AmountText `json:"amount" validate:"required,amount" swaggertype:"number" example:"100.50"`
	RecipientName string     `json:"recipientName,omitempty" validate:"omitempty,personname" example:"John Smith"`
	RecipientBank string     `json:"recipientBank,omitempty" validate:"omitempty,max=100" example:"Bank of America"`
	Description   string     `json:"description,omitempty" validate:"omitempty,max=500"`
	PaymentMethod string     `json:"paymentMethod,omitempty" validate:"omitempty,oneof=bank_transfer credit_card debit_card paypal" example:"bank_transfer"`
}

func (in CreateTransactionInput) Sanitized() CreateTransactionInput {
	in.SwiftCode = SanitizeText(in.SwiftCode)
	in.Amount = AmountText(strings.TrimSpace(string(in.Amount)))
	in.RecipientName = SanitizeText(in.RecipientName)
	in.RecipientBank = SanitizeText(in.RecipientBank)
	in.Description = SanitizeText(in.Description)
	in.PaymentMethod = strings.ToLower(SanitizeText(in.PaymentMethod))
	return in
}

// StatusInput is a review decision on the canonical path.
type StatusInput struct {
	Status     string `json:"status" validate:"required,oneof=pending approved rejected" example:"approved"`
	AdminNotes string `json:"adminNotes,omitempty" validate:"omitempty,max=500"`
}

func (in StatusInput) Sanitized() StatusInput {
	in.Status = strings.ToLower(SanitizeText(in.Status))
	in.AdminNotes = SanitizeText(in.AdminNotes)
	return in
}

// AdminStatusInput is a status update in the admin console vocabulary.
type AdminStatusInput struct {
	Status     string `json:"status" validate:"required,oneof=pending completed failed cancelled under_review" example:"completed"`
	AdminNotes string `json:"adminNotes,omitempty" validate:"omitempty,max=500"`
}

func (in AdminStatusInput) Sanitized() AdminStatusInput {
	in.Status = strings.ToLower(SanitizeText(in.Status))
	in.AdminNotes = SanitizeText(in.AdminNotes)
	return in
}

// RoleInput carries a role assignment. The role itself is checked by the directory.
type RoleInput struct {
	Role string `json:"role" validate:"required" example:"employee"`
}

func (in RoleInput) Sanitized() RoleInput {
	in.Role = strings.ToLower(SanitizeText(in.Role))
	return in
}
