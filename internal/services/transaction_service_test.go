package services

import (
	"bytes"
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/intlpay/backend/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransactionService(t *testing.T) (*TransactionService, sqlmock.Sqlmock, *bytes.Buffer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	auditLogger, buf := newTestAudit()
	return NewTransactionService(db, auditLogger, "ZAR"), mock, buf
}

func TestTransactionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("only customers create", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		_, err := service.Create(ctx, employee, CreateTransactionInput{SwiftCode: "BOFAUS3N", Amount: "10"})
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pending with defaults", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)
		created := sampleTransaction(models.StatusPending)
		created.RecipientName = notProvided
		created.RecipientBank = notProvided

		mock.ExpectQuery("WITH inserted AS").
			WithArgs(sqlmock.AnyArg(), customerID, "BOFAUS3N", "100.50", "ZAR", "Payment transfer BOFAUS3N",
				"bank_transfer", notProvided, notProvided, sqlmock.AnyArg()).
			WillReturnRows(transactionRows(created))

		tx, err := service.Create(ctx, customer, CreateTransactionInput{SwiftCode: "BOFAUS3N", Amount: "100.5"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, tx.Status)
		assert.Nil(t, tx.ReviewedBy)
		assert.Nil(t, tx.Reviewer)
		assert.Equal(t, "100.50", tx.Amount.StringFixed(2))
		assert.Equal(t, "Ann Lee", tx.Customer.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deleted account", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		mock.ExpectQuery("WITH inserted AS").
			WillReturnError(&pq.Error{Code: "23503", Message: `insert or update on table "transactions" violates foreign key constraint`})

		_, err := service.Create(ctx, customer, CreateTransactionInput{SwiftCode: "BOFAUS3N", Amount: "10"})
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects bad amount before storage", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		_, err := service.Create(ctx, customer, CreateTransactionInput{SwiftCode: "BOFAUS3N", Amount: "0"})
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_GetOne(t *testing.T) {
	ctx := context.Background()
	pending := sampleTransaction(models.StatusPending)

	tests := []struct {
		name    string
		caller  *models.Identity
		wantErr error
	}{
		{"owner", customer, nil},
		{"other customer", &models.Identity{ID: otherID, Role: models.RoleCustomer, Email: "bob@example.com"}, ErrForbidden},
		{"employee", employee, nil},
		{"admin", admin, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, mock, _ := newTransactionService(t)
			mock.ExpectQuery(`FROM transactions t .* WHERE t.id = \$1`).
				WithArgs(txID).
				WillReturnRows(transactionRows(pending))

			tx, err := service.GetOne(ctx, tt.caller, txID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, tx)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, txID, tx.ID)
		})
	}

	t.Run("not found", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)
		mock.ExpectQuery("FROM transactions t").WillReturnRows(sqlmock.NewRows(transactionCols))

		_, err := service.GetOne(ctx, admin, txID)
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		service, _, _ := newTransactionService(t)

		_, err := service.GetOne(ctx, admin, "abc")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})
}

func TestTransactionService_Transition(t *testing.T) {
	ctx := context.Background()

	t.Run("approves pending", func(t *testing.T) {
		service, mock, auditLog := newTransactionService(t)
		approved := sampleTransaction(models.StatusApproved)

		mock.ExpectQuery(`WITH updated AS \( UPDATE transactions SET status = \$1, reviewed_by = \$2, reviewed_at = \$3, updated_at = \$3, admin_notes = NULLIF\(\$5, ''\) WHERE id = \$4 AND status = 'pending'`).
			WithArgs("approved", employeeID, sqlmock.AnyArg(), txID, "").
			WillReturnRows(transactionRows(approved))

		tx, err := service.Transition(ctx, employee, txID, models.StatusApproved, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, tx.Status)
		assert.Nil(t, tx.AdminNotes)
		require.NotNil(t, tx.Reviewer)
		assert.Equal(t, employeeID, tx.Reviewer.ID)
		assert.NotNil(t, tx.ReviewedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Contains(t, auditLog.String(), `"event_type":"TRANSACTION_REVIEW"`)
		assert.Contains(t, auditLog.String(), `"to_status":"approved"`)
	})

	for _, terminal := range []models.Status{models.StatusApproved, models.StatusRejected} {
		for _, target := range []models.Status{models.StatusApproved, models.StatusRejected} {
			t.Run("terminal "+string(terminal)+" to "+string(target), func(t *testing.T) {
				service, mock, _ := newTransactionService(t)

				mock.ExpectQuery("WITH updated AS").WillReturnRows(sqlmock.NewRows(transactionCols))
				mock.ExpectQuery(`SELECT status FROM transactions WHERE id = \$1`).
					WithArgs(txID).
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(terminal)))

				_, err := service.Transition(ctx, admin, txID, target, "")
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.NoError(t, mock.ExpectationsWereMet())
			})
		}
	}

	t.Run("unknown id", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		mock.ExpectQuery("WITH updated AS").WillReturnRows(sqlmock.NewRows(transactionCols))
		mock.ExpectQuery("SELECT status FROM transactions").WillReturnRows(sqlmock.NewRows([]string{"status"}))

		_, err := service.Transition(ctx, admin, txID, models.StatusRejected, "")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("pending is not a target", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		_, err := service.Transition(ctx, admin, txID, models.StatusPending, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("customers cannot review", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		_, err := service.Transition(ctx, customer, txID, models.StatusApproved, "")
		assert.ErrorIs(t, err, ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_ConcurrentTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	auditLogger, _ := newTestAudit()
	service := NewTransactionService(db, auditLogger, "ZAR")

	// the database lets exactly one conditional update match: the approval
	// lands first and the rejection finds the row already approved
	mock.ExpectQuery("WITH updated AS").
		WithArgs("approved", employeeID, sqlmock.AnyArg(), txID, "looks fine").
		WillReturnRows(transactionRows(sampleTransaction(models.StatusApproved)))
	mock.ExpectQuery("WITH updated AS").
		WithArgs("rejected", adminID, sqlmock.AnyArg(), txID, "suspicious").
		WillReturnRows(sqlmock.NewRows(transactionCols))
	mock.ExpectQuery("SELECT status FROM transactions").
		WithArgs(txID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))

	reviews := []struct {
		reviewer *models.Identity
		target   models.Status
		notes    string
	}{
		{employee, models.StatusApproved, "looks fine"},
		{admin, models.StatusRejected, "suspicious"},
	}

	var wg sync.WaitGroup
	results := make([]*models.Transaction, len(reviews))
	errs := make([]error, len(reviews))
	for i, review := range reviews {
		review := review
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.Transition(context.Background(), review.reviewer, txID, review.target, review.notes)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	assert.Equal(t, models.StatusApproved, results[0].Status)
	assert.ErrorIs(t, errs[1], ErrInvalidTransition)
	assert.Contains(t, errs[1].Error(), "transaction is approved")
	assert.Nil(t, results[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionService_TransitionAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("completed maps to approved", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		approved := sampleTransaction(models.StatusApproved)
		notes := "verified with the customer"
		approved.AdminNotes = &notes

		mock.ExpectQuery("WITH updated AS").
			WithArgs("approved", adminID, sqlmock.AnyArg(), txID, notes).
			WillReturnRows(transactionRows(approved))

		tx, err := service.TransitionAdmin(ctx, admin, txID, models.AdminStatusCompleted, notes)
		require.NoError(t, err)
		assert.Equal(t, models.AdminStatusCompleted, tx.Status.AdminView())
		require.NotNil(t, tx.AdminNotes)
		assert.Equal(t, notes, *tx.AdminNotes)
	})

	t.Run("cancelled maps to rejected", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		mock.ExpectQuery("WITH updated AS").
			WithArgs("rejected", adminID, sqlmock.AnyArg(), txID, "").
			WillReturnRows(transactionRows(sampleTransaction(models.StatusRejected)))

		_, err := service.TransitionAdmin(ctx, admin, txID, models.AdminStatusCancelled, "")
		require.NoError(t, err)
	})

	t.Run("under review is not a target", func(t *testing.T) {
		service, _, _ := newTransactionService(t)

		_, err := service.TransitionAdmin(ctx, admin, txID, models.AdminStatusUnderReview, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("employees use the review path", func(t *testing.T) {
		service, _, _ := newTransactionService(t)

		_, err := service.TransitionAdmin(ctx, employee, txID, models.AdminStatusCompleted, "")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestTransactionService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletes", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		mock.ExpectExec(`DELETE FROM transactions WHERE id = \$1`).
			WithArgs(txID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, service.Delete(ctx, admin, txID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)

		mock.ExpectExec("DELETE FROM transactions").WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, service.Delete(ctx, admin, txID), ErrTransactionNotFound)
	})

	t.Run("employee", func(t *testing.T) {
		service, _, _ := newTransactionService(t)

		assert.ErrorIs(t, service.Delete(ctx, employee, txID), ErrForbidden)
	})
}

func TestTransactionService_ListAll(t *testing.T) {
	ctx := context.Background()

	t.Run("filters and pages", func(t *testing.T) {
		service, mock, _ := newTransactionService(t)
		minAmount := decimal.RequireFromString("50")
		from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transactions t WHERE t.status = \$1 AND t.payment_method = \$2 AND t.created_at >= \$3 AND t.amount >= \$4`).
			WithArgs("pending", "bank_transfer", from, "50").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`ORDER BY t.created_at DESC LIMIT \$5 OFFSET \$6`).
			WithArgs("pending", "bank_transfer", from, "50", 20, 0).
			WillReturnRows(transactionRows(sampleTransaction(models.StatusPending)))

		txs, total, err := service.ListAll(ctx, employee, TransactionFilter{
			Status:        models.StatusPending,
			PaymentMethod: models.PaymentBankTransfer,
			From:          &from,
			MinAmount:     &minAmount,
			Page:          Page{Page: 1, Limit: 20},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, txs, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("customers are refused", func(t *testing.T) {
		service, _, _ := newTransactionService(t)

		_, _, err := service.ListAll(ctx, customer, TransactionFilter{})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestTransactionService_ListOwn(t *testing.T) {
	service, mock, _ := newTransactionService(t)

	mock.ExpectQuery(`WHERE t.customer_id = \$1 ORDER BY t.created_at DESC`).
		WithArgs(customerID).
		WillReturnRows(transactionRows(sampleTransaction(models.StatusPending), sampleTransaction(models.StatusRejected)))

	txs, err := service.ListOwn(context.Background(), customer)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	assert.Nil(t, txs[0].Reviewer)
	assert.NotNil(t, txs[1].Reviewer)
}

func TestTransactionFilter_where(t *testing.T) {
	t.Run("admin vocabulary", func(t *testing.T) {
		w := TransactionFilter{AdminStatus: models.AdminStatusFailed}.where()
		assert.Equal(t, " WHERE t.status = $1", w.String())
		assert.Equal(t, []any{"rejected"}, w.args)
	})

	t.Run("statuses that are never stored", func(t *testing.T) {
		w := TransactionFilter{AdminStatus: models.AdminStatusUnderReview}.where()
		assert.Equal(t, " WHERE FALSE", w.String())
		assert.Empty(t, w.args)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", TransactionFilter{}.where().String())
	})
}

func TestPage_Normalize(t *testing.T) {
	p := Page{Page: math.MaxInt, Limit: MaxPageLimit}.Normalize()
	assert.Equal(t, MaxPage, p.Page)
	assert.Equal(t, (MaxPage-1)*MaxPageLimit, p.Offset())
	assert.Positive(t, p.Offset())

	p = Page{Page: -3, Limit: 1000}.Normalize()
	assert.Equal(t, Page{Page: 1, Limit: MaxPageLimit}, p)
	assert.Zero(t, p.Offset())
}
