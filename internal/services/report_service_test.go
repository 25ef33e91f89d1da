package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/intlpay/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportService(t *testing.T) (*ReportService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	auditLogger, _ := newTestAudit()
	accounts := NewAccountService(db, NewPasswordHasher(testArgon2), auditLogger)
	transactions := NewTransactionService(db, auditLogger, "ZAR")
	return NewReportService(db, accounts, transactions), mock
}

func TestReportService_DashboardStats(t *testing.T) {
	ctx := context.Background()

	t.Run("admin only", func(t *testing.T) {
		service, mock := newReportService(t)

		_, err := service.DashboardStats(ctx, employee)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("aggregates in admin vocabulary", func(t *testing.T) {
		service, mock := newReportService(t)
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		service.now = func() time.Time { return now }

		mock.ExpectQuery(`SELECT role, COUNT\(\*\) FROM users GROUP BY role`).
			WillReturnRows(sqlmock.NewRows([]string{"role", "count"}).
				AddRow("customer", 7).
				AddRow("employee", 2).
				AddRow("admin", 1))
		mock.ExpectQuery(`SELECT status, COUNT\(\*\), COALESCE\(SUM\(amount\), 0\) FROM transactions GROUP BY status`).
			WillReturnRows(sqlmock.NewRows([]string{"status", "count", "sum"}).
				AddRow("pending", 1, "10.00").
				AddRow("approved", 2, "350.25").
				AddRow("rejected", 1, "5.00"))
		mock.ExpectQuery(`SELECT \(SELECT COUNT\(\*\) FROM transactions WHERE created_at >= \$1\)`).
			WithArgs(now.Add(-30 * 24 * time.Hour)).
			WillReturnRows(sqlmock.NewRows([]string{"transactions", "users"}).AddRow(3, 4))

		stats, err := service.DashboardStats(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, 10, stats.TotalUsers)
		assert.Equal(t, 7, stats.CustomerCount)
		assert.Equal(t, 4, stats.TotalTransactions)
		assert.Equal(t, 1, stats.PendingTransactions)
		assert.Equal(t, 2, stats.CompletedTransactions)
		assert.Equal(t, 1, stats.FailedTransactions)
		assert.Zero(t, stats.CancelledTransactions)
		assert.Zero(t, stats.UnderReviewTransactions)
		assert.Equal(t, "350.25", stats.TotalVolume.StringFixed(2))
		assert.Equal(t, 3, stats.RecentTransactionsCount)
		assert.Equal(t, 4, stats.NewUsersCount)
		assert.Equal(t, 50, stats.SuccessRate)
		assert.Equal(t, 25, stats.PendingRate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, percent(0, 0))
	assert.Equal(t, 33, percent(1, 3))
	assert.Equal(t, 67, percent(2, 3))
	assert.Equal(t, 100, percent(4, 4))
}

func TestReportService_Summarize(t *testing.T) {
	service, mock := newReportService(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(SUM\(t.amount\), 0\).* FROM transactions t WHERE t.status = \$1`).
		WithArgs("approved").
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum", "avg", "min", "max"}).
			AddRow(3, "300.00", "100.0000000000000000", "50.00", "150.00"))

	summary, err := service.Summarize(context.Background(), admin, TransactionFilter{AdminStatus: models.AdminStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, "300.00", summary.TotalAmount.StringFixed(2))
	assert.Equal(t, "100.00", summary.AverageAmount.StringFixed(2))
	assert.Equal(t, "50.00", summary.MinAmount.StringFixed(2))
	assert.Equal(t, "150.00", summary.MaxAmount.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportService_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		service, mock := newReportService(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`FROM users ORDER BY created_at DESC`).
			WillReturnRows(accountRows(sampleAccount(customerID, models.RoleCustomer)))

		export, err := service.Export(ctx, admin, "json", "users")
		require.NoError(t, err)
		assert.Equal(t, 1, export.RecordCount)
		assert.Equal(t, adminID, export.ExportedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown data type", func(t *testing.T) {
		service, _ := newReportService(t)

		_, err := service.Export(ctx, admin, "json", "cards")
		assert.True(t, errors.Is(err, ErrValidationFailed))
	})

	t.Run("unsupported format", func(t *testing.T) {
		service, _ := newReportService(t)

		_, err := service.Export(ctx, admin, "pdf", "users")
		assert.True(t, errors.Is(err, ErrValidationFailed))
	})
}
