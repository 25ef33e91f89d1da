package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/intlpay/backend/internal/audit"
	"github.com/intlpay/backend/internal/config"
	"github.com/intlpay/backend/internal/models"
	"github.com/intlpay/backend/internal/services"
	"github.com/stretchr/testify/require"
)

const (
	employeeID = "11111111-2222-4333-8444-555555555555"
	adminID    = "99999999-8888-4777-8666-555555555555"
	txID       = "b3c4d5e6-f7a8-4b9c-8d0e-1f2a3b4c5d6e"
)

var testArgon2 = config.Argon2Config{
	Time:       1,
	Memory:     8 * 1024,
	Threads:    1,
	KeyLength:  32,
	SaltLength: 16,
}

type testAPI struct {
	router   http.Handler
	db       sqlmock.Sqlmock
	redis    redismock.ClientMock
	tokens   *services.TokenService
	hasher   *services.PasswordHasher
	auditLog *bytes.Buffer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisClient, redisMock := redismock.NewClientMock()

	var auditBuf bytes.Buffer
	auditLogger := audit.NewAuditLoggerTo(log.New(&auditBuf, "", 0))

	hasher := services.NewPasswordHasher(testArgon2)
	tokens := services.NewTokenService("handler-test-secret", time.Hour)
	accounts := services.NewAccountService(db, hasher, auditLogger)
	transactions := services.NewTransactionService(db, auditLogger, "ZAR")

	h := New(Deps{
		Accounts:     accounts,
		Transactions: transactions,
		Reports:      services.NewReportService(db, accounts, transactions),
		Tokens:       tokens,
		Limiter: services.NewRateLimiter(redisClient, &config.RateLimitConfig{
			LoginAttempts:       5,
			LoginWindow:         15 * time.Minute,
			TransactionRequests: 10,
			TransactionWindow:   time.Hour,
			KeyPrefix:           "ratelimit",
		}),
		ISO20022:  services.NewISO20022Service("INTLZAJJ"),
		QR:        services.NewQRService(),
		Validator: services.NewValidationHelper(),
		Audit:     auditLogger,
		Debug:     true,
	})

	return &testAPI{
		router:   NewRouter(h, tokens),
		db:       mock,
		redis:    redisMock,
		tokens:   tokens,
		hasher:   hasher,
		auditLog: &auditBuf,
	}
}

func (api *testAPI) token(t *testing.T, id string, role models.Role) string {
	t.Helper()
	token, _, err := api.tokens.Issue(&models.Account{ID: id, Email: string(role) + "@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func (api *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var transactionCols = []string{
	"id", "customer_id", "swift_code", "amount", "currency", "description",
	"payment_method", "recipient_name", "recipient_bank", "status",
	"reviewed_by", "reviewed_at", "admin_notes", "created_at", "updated_at",
	"name", "email", "name", "email",
}

func transactionRow(customerID string, status models.Status, reviewer string) *sqlmock.Rows {
	return reviewedRow(customerID, status, reviewer, "")
}

func reviewedRow(customerID string, status models.Status, reviewer, notes string) *sqlmock.Rows {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var reviewedBy, reviewedAt, adminNotes, reviewerName, reviewerEmail any
	if reviewer != "" {
		reviewedBy, reviewedAt = reviewer, created.Add(time.Hour)
		reviewerName, reviewerEmail = "Eve Staff", "emp@example.com"
	}
	if notes != "" {
		adminNotes = notes
	}
	return sqlmock.NewRows(transactionCols).AddRow(
		txID, customerID, "BOFAUS3N", "100.00", "ZAR", "Payment transfer BOFAUS3N",
		"bank_transfer", "Bob", "Not provided", string(status),
		reviewedBy, reviewedAt, adminNotes, created, created,
		"Ann Lee", "ann@x.com", reviewerName, reviewerEmail)
}
