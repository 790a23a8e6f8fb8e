package services

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// TransactionService manages a user's transactions. Every successful
// mutation drops the user's cached aggregates and publishes an event.
type TransactionService struct {
	repo        *storage.Repository
	publisher   EventPublisher
	invalidator Invalidator
}

// NewTransactionService accepts nil for publisher and invalidator.
func NewTransactionService(repo *storage.Repository, publisher EventPublisher, invalidator Invalidator) *TransactionService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &TransactionService{repo: repo, publisher: publisher, invalidator: invalidator}
}

func (s *TransactionService) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID)
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

// Create stores n after checking that its user and category exist.
func (s *TransactionService) Create(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.repo.GetUser(ctx, n.UserID); err != nil {
		return core.Transaction{}, err
	}
	if n.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, *n.CategoryID); err != nil {
			return core.Transaction{}, err
		}
	}

	tx, err := s.repo.CreateTransaction(ctx, n)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.invalidator.InvalidateUser(n.UserID)
	publish(ctx, s.publisher, amqp.EventCreated, tx)
	return tx, nil
}

// Update applies p to the caller's transaction. An empty patch returns the
// row unchanged.
func (s *TransactionService) Update(ctx context.Context, userID, id int64, p core.TransactionPatch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if p.IsEmpty() {
		return s.repo.GetTransaction(ctx, userID, id)
	}
	if c := p.CategoryID.Ptr(); c != nil {
		if _, err := s.repo.GetCategory(ctx, *c); err != nil {
			return core.Transaction{}, err
		}
	}

	tx, err := s.repo.UpdateTransaction(ctx, userID, id, p)
	if err != nil {
		return core.Transaction{}, err
	}

	s.invalidator.InvalidateUser(userID)
	publish(ctx, s.publisher, amqp.EventUpdated, tx)
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	tx, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}

	s.invalidator.InvalidateUser(userID)
	publish(ctx, s.publisher, amqp.EventDeleted, tx)
	return nil
}
