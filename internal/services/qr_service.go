package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"time"

	"github.com/intlpay/backend/internal/models"
	"github.com/skip2/go-qrcode"
)

const receiptQRSize = 256

// Receipt is the scannable summary of a transfer request.
type Receipt struct {
	TransactionID string `json:"transactionId"`
	Payload       string `json:"payload"`
	Image         string `json:"image"` // base64 PNG
}

type receiptPayload struct {
	ID        string        `json:"id"`
	SwiftCode string        `json:"swiftCode"`
	Amount    models.Money  `json:"amount"`
	Currency  string        `json:"currency"`
	Status    models.Status `json:"status"`
	CreatedAt int64         `json:"createdAt"`
	IssuedAt  int64         `json:"issuedAt"`
}

type QRService struct {
	now func() time.Time
}

func NewQRService() *QRService {
	return &QRService{now: time.Now}
}

// Receipt encodes tx as a QR code. The payload is URL-safe base64 JSON.
func (s *QRService) Receipt(tx *models.Transaction) (*Receipt, error) {
	jsonData, err := json.Marshal(receiptPayload{
		ID:        tx.ID,
		SwiftCode: tx.SwiftCode,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		Status:    tx.Status,
		CreatedAt: tx.CreatedAt.Unix(),
		IssuedAt:  s.now().Unix(),
	})
	if err != nil {
		return nil, err
	}

	payload := base64.URLEncoding.EncodeToString(jsonData)

	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(receiptQRSize)); err != nil {
		return nil, err
	}

	return &Receipt{
		TransactionID: tx.ID,
		Payload:       payload,
		Image:         base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// DecodeReceipt reverses the payload encoding of Receipt.
func DecodeReceipt(payload string) (map[string]any, error) {
	data, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}
