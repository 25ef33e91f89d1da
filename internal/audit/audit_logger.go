package audit

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	ActorID       string    `json:"actor_id"`
	AccountID     string    `json:"account_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

// AuditLogger writes one JSON line per security-relevant event.
type AuditLogger struct {
	out *log.Logger
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{out: log.Default()}
}

// NewAuditLoggerTo writes events to l instead of the standard logger.
func NewAuditLoggerTo(l *log.Logger) *AuditLogger {
	return &AuditLogger{out: l}
}

func (a *AuditLogger) LogReview(transactionID, reviewerID, fromStatus, toStatus string) {
	a.log(AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "TRANSACTION_REVIEW",
		ActorID:       reviewerID,
		TransactionID: transactionID,
		Status:        "SUCCESS",
		Details: map[string]string{
			"from_status": fromStatus,
			"to_status":   toStatus,
		},
	})
}

func (a *AuditLogger) LogTransactionDeleted(transactionID, actorID string) {
	a.log(AuditEvent{
		Timestamp:     time.Now(),
		EventType:     "TRANSACTION_DELETE",
		ActorID:       actorID,
		TransactionID: transactionID,
		Status:        "SUCCESS",
	})
}

func (a *AuditLogger) LogRoleChange(actorID, accountID, newRole string) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "ROLE_CHANGE",
		ActorID:   actorID,
		AccountID: accountID,
		Status:    "SUCCESS",
		Details:   map[string]string{"role": newRole},
	})
}

func (a *AuditLogger) LogAccountRemoved(actorID, accountID string, transactionsRemoved int64) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: "ACCOUNT_DELETE",
		ActorID:   actorID,
		AccountID: accountID,
		Status:    "SUCCESS",
		Details:   map[string]int64{"transactions_removed": transactionsRemoved},
	})
}

func (a *AuditLogger) LogDenied(actorID, operation string, err error) {
	a.log(AuditEvent{
		Timestamp: time.Now(),
		EventType: operation,
		ActorID:   actorID,
		Status:    "DENIED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	a.out.Printf("AUDIT: %s", string(data))
}
