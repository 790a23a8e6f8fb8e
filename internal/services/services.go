// Package services holds the application logic between the HTTP layer and storage.
package services

import (
	"context"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// EventPublisher delivers transaction events. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, e amqp.TransactionEvent) error
}

// Invalidator drops cached per-user read models.
type Invalidator interface {
	InvalidateUser(userID int64)
	InvalidateAll()
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateUser(int64) {}
func (noopInvalidator) InvalidateAll()       {}

// publish sends the event when a publisher is configured. Failures are
// logged; the mutation has already been stored.
func publish(ctx context.Context, p EventPublisher, kind amqp.EventKind, tx core.Transaction) {
	if p == nil {
		return
	}
	if err := p.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(kind, tx)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldEvent, kind,
			log.FieldTransactionID, tx.ID,
			log.FieldUserID, tx.UserID,
			log.FieldError, err)
	}
}
