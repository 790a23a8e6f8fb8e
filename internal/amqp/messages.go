package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// TransactionEvent describes one transaction mutation. For deletions it
// carries the state of the row before removal.
type TransactionEvent struct {
	Event         EventKind `json:"event"`
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amount_cents"`
	CategoryID    *int64    `json:"category_id"`
	CreatedAt     time.Time `json:"created_at"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, tx core.Transaction) TransactionEvent {
	return TransactionEvent{
		Event:         kind,
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Type:          string(tx.Type),
		AmountCents:   tx.Amount.Cents,
		CategoryID:    tx.CategoryID,
		CreatedAt:     tx.CreatedAt,
		Timestamp:     time.Now().UTC(),
	}
}

func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return TransactionEvent{}, err
	}
	return e, nil
}
