package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/intlpay/backend/internal/models"
	"github.com/shopspring/decimal"
)

const recentActivityWindow = 30 * 24 * time.Hour

// DashboardStats summarizes users and transactions for the admin console.
// Transaction counts use the admin status vocabulary.
type DashboardStats struct {
	TotalUsers              int          `json:"totalUsers"`
	TotalTransactions       int          `json:"totalTransactions"`
	PendingTransactions     int          `json:"pendingTransactions"`
	CompletedTransactions   int          `json:"completedTransactions"`
	FailedTransactions      int          `json:"failedTransactions"`
	CancelledTransactions   int          `json:"cancelledTransactions"`
	UnderReviewTransactions int          `json:"underReviewTransactions"`
	CustomerCount           int          `json:"customerCount"`
	EmployeeCount           int          `json:"employeeCount"`
	AdminCount              int          `json:"adminCount"`
	TotalVolume             models.Money `json:"totalVolume" swaggertype:"number"`
	RecentTransactionsCount int          `json:"recentTransactionsCount"`
	NewUsersCount           int          `json:"newUsersCount"`
	SuccessRate             int          `json:"successRate"`
	PendingRate             int          `json:"pendingRate"`
}

// TransactionSummary aggregates amounts over a filtered transaction set.
type TransactionSummary struct {
	Count         int          `json:"count"`
	TotalAmount   models.Money `json:"totalAmount" swaggertype:"number"`
	AverageAmount models.Money `json:"averageAmount" swaggertype:"number"`
	MinAmount     models.Money `json:"minAmount" swaggertype:"number"`
	MaxAmount     models.Money `json:"maxAmount" swaggertype:"number"`
}

// Export is a JSON dump of one data set.
type Export struct {
	Format      string    `json:"format"`
	DataType    string    `json:"dataType"`
	ExportedAt  time.Time `json:"exportedAt"`
	ExportedBy  string    `json:"exportedBy"`
	RecordCount int       `json:"recordCount"`
	Data        any       `json:"data"`
}

// ReportService answers read-only admin queries.
type ReportService struct {
	db           *sql.DB
	accounts     *AccountService
	transactions *TransactionService
	now          func() time.Time
}

func NewReportService(db *sql.DB, accounts *AccountService, transactions *TransactionService) *ReportService {
	return &ReportService{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		now:          time.Now,
	}
}

func (rs *ReportService) DashboardStats(ctx context.Context, caller *models.Identity) (*DashboardStats, error) {
	if caller == nil || caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	stats := &DashboardStats{TotalVolume: models.NewMoney(decimal.Zero)}
	since := rs.now().UTC().Add(-recentActivityWindow)

	rows, err := rs.db.QueryContext(ctx, "SELECT role, COUNT(*) FROM users GROUP BY role")
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	for rows.Next() {
		var role models.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.TotalUsers += n
		switch role {
		case models.RoleCustomer:
			stats.CustomerCount = n
		case models.RoleEmployee:
			stats.EmployeeCount = n
		case models.RoleAdmin:
			stats.AdminCount = n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = rs.db.QueryContext(ctx, "SELECT status, COUNT(*), COALESCE(SUM(amount), 0) FROM transactions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	for rows.Next() {
		var status models.Status
		var n int
		var volume decimal.Decimal
		if err := rows.Scan(&status, &n, &volume); err != nil {
			rows.Close()
			return nil, err
		}
		stats.TotalTransactions += n
		switch status.AdminView() {
		case models.AdminStatusCompleted:
			stats.CompletedTransactions = n
			stats.TotalVolume = models.NewMoney(volume)
		case models.AdminStatusFailed:
			stats.FailedTransactions = n
		default:
			stats.PendingTransactions = n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = rs.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM transactions WHERE created_at >= $1),
			(SELECT COUNT(*) FROM users WHERE created_at >= $1)
	`, since).Scan(&stats.RecentTransactionsCount, &stats.NewUsersCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent activity: %w", err)
	}

	stats.SuccessRate = percent(stats.CompletedTransactions, stats.TotalTransactions)
	stats.PendingRate = percent(stats.PendingTransactions, stats.TotalTransactions)

	log.Printf("[ADMIN] Dashboard stats fetched by %s", caller.ID)
	return stats, nil
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// Summarize aggregates the transactions matched by filter, ignoring its page.
func (rs *ReportService) Summarize(ctx context.Context, caller *models.Identity, filter TransactionFilter) (*TransactionSummary, error) {
	if caller == nil || caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	where := filter.where()
	var (
		summary                TransactionSummary
		total, avg, minA, maxA decimal.Decimal
	)
	err := rs.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(t.amount), 0), COALESCE(AVG(t.amount), 0),
			COALESCE(MIN(t.amount), 0), COALESCE(MAX(t.amount), 0)
		FROM transactions t`+where.String(), where.args...).Scan(&summary.Count, &total, &avg, &minA, &maxA)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}

	summary.TotalAmount = models.NewMoney(total)
	summary.AverageAmount = models.NewMoney(avg)
	summary.MinAmount = models.NewMoney(minA)
	summary.MaxAmount = models.NewMoney(maxA)
	return &summary, nil
}

// Export dumps every user or every transaction as JSON.
func (rs *ReportService) Export(ctx context.Context, caller *models.Identity, format, dataType string) (*Export, error) {
	if caller == nil || caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if format != "json" {
		return nil, &ValidationError{Fields: []string{fmt.Sprintf("format %q is not supported, use json", format)}}
	}

	export := &Export{
		Format:     format,
		DataType:   dataType,
		ExportedAt: rs.now().UTC(),
		ExportedBy: caller.ID,
	}

	switch dataType {
	case "users":
		accounts, _, err := rs.accounts.List(ctx, AccountFilter{})
		if err != nil {
			return nil, err
		}
		export.Data, export.RecordCount = accounts, len(accounts)
	case "transactions":
		transactions, _, err := rs.transactions.ListAll(ctx, caller, TransactionFilter{})
		if err != nil {
			return nil, err
		}
		export.Data, export.RecordCount = transactions, len(transactions)
	default:
		return nil, &ValidationError{Fields: []string{"dataType must be one of users, transactions"}}
	}

	log.Printf("[ADMIN] Exported %d %s records for %s", export.RecordCount, dataType, caller.ID)
	return export, nil
}
