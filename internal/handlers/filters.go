package handlers

import (
	"net/http"

	"github.com/intlpay/backend/internal/models"
	"github.com/intlpay/backend/internal/services"
	"github.com/shopspring/decimal"
)

// transactionFilter reads the listing query string. Staff listings filter on
// the canonical status; adminView switches "status" to the admin vocabulary.
func transactionFilter(r *http.Request, defaultLimit int, adminView bool) (services.TransactionFilter, error) {
	var (
		f      services.TransactionFilter
		fields []string
		err    error
	)
	q := r.URL.Query()

	if f.Page, err = pageFromQuery(r, defaultLimit); err != nil {
		return f, err
	}

	if status := q.Get("status"); status != "" && status != "all" {
		if adminView {
			if _, ok := models.AdminStatus(status).Canonical(); !ok {
				fields = append(fields, "status must be one of pending, completed, failed, cancelled, under_review")
			}
			f.AdminStatus = models.AdminStatus(status)
		} else {
			if !models.Status(status).Valid() {
				fields = append(fields, "status must be one of pending, approved, rejected")
			}
			f.Status = models.Status(status)
		}
	}

	switch method := models.PaymentMethod(q.Get("paymentMethod")); method {
	case "", "all":
	case models.PaymentBankTransfer, models.PaymentCreditCard, models.PaymentDebitCard, models.PaymentPayPal:
		f.PaymentMethod = method
	default:
		fields = append(fields, "paymentMethod must be one of bank_transfer, credit_card, debit_card, paypal")
	}

	if f.From, err = parseDate("startDate", q.Get("startDate"), false); err != nil {
		return f, err
	}
	if f.To, err = parseDate("endDate", q.Get("endDate"), true); err != nil {
		return f, err
	}

	for _, bound := range []struct {
		name string
		dst  **decimal.Decimal
	}{{"minAmount", &f.MinAmount}, {"maxAmount", &f.MaxAmount}} {
		v := q.Get(bound.name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			fields = append(fields, bound.name+" must be a non-negative number")
			continue
		}
		*bound.dst = &d
	}

	if len(fields) > 0 {
		return f, &services.ValidationError{Fields: fields}
	}
	return f, nil
}
