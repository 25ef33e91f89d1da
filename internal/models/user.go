package models

import "time"

// Role determines the set of operations an account may perform.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Roles lists every assignable role.
var Roles = []Role{RoleCustomer, RoleEmployee, RoleAdmin}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may review transactions.
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// Account is a portal user. PasswordHash never leaves the server.
type Account struct {
	ID           string    `json:"id" db:"id" example:"8f14e45f-ceea-467f-a8f0-3c2d1e6b0a11"`
	Name         string    `json:"name" db:"name" example:"Ann Lee"`
	Email        string    `json:"email" db:"email" example:"ann@example.com"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role" example:"customer"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Identity is the decoded subject of a verified session credential.
type Identity struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Email string `json:"email"`
}

// Party is the short account projection embedded in transactions.
type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
