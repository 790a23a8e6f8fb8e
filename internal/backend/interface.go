// Package backend builds the storage and messaging stack selected by configuration.
package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the opened resources. Publisher is nil when messaging
// is disabled or the broker was unreachable at startup.
type BackendResult struct {
	Repository *storage.Repository
	Publisher  *amqp.Client
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
