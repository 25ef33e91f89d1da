package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is idempotent; every statement may be re-applied on startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		name          VARCHAR(50) NOT NULL,
		email         VARCHAR(254) NOT NULL,
		password_hash TEXT NOT NULL,
		role          VARCHAR(16) NOT NULL DEFAULT 'customer'
		              CHECK (role IN ('customer', 'employee', 'admin')),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_key ON users (LOWER(email))`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id             UUID PRIMARY KEY,
		customer_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		swift_code     VARCHAR(11) NOT NULL,
		amount         NUMERIC(18, 2) NOT NULL CHECK (amount > 0),
		currency       CHAR(3) NOT NULL,
		description    TEXT NOT NULL,
		payment_method VARCHAR(16) NOT NULL
		               CHECK (payment_method IN ('bank_transfer', 'credit_card', 'debit_card', 'paypal')),
		recipient_name TEXT NOT NULL,
		recipient_bank TEXT NOT NULL,
		status         VARCHAR(16) NOT NULL DEFAULT 'pending'
		               CHECK (status IN ('pending', 'approved', 'rejected')),
		reviewed_by    UUID REFERENCES users(id) ON DELETE SET NULL,
		reviewed_at    TIMESTAMPTZ,
		admin_notes    TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`ALTER TABLE transactions ADD COLUMN IF NOT EXISTS admin_notes TEXT`,
	`CREATE INDEX IF NOT EXISTS transactions_customer_created_idx ON transactions (customer_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS transactions_status_idx ON transactions (status)`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return nil
}
