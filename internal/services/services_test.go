package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestAuth(repo *storage.Repository) *AuthService {
	return NewAuthService(repo, auth.NewTokenIssuer("0123456789abcdef-test", time.Hour), auth.NewHasher(4))
}

func createUser(t *testing.T, repo *storage.Repository, username string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         core.RoleUser,
	})
	require.NoError(t, err)
	return u
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.TransactionEvent
	err    error
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, e amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []amqp.EventKind
	for _, e := range p.events {
		out = append(out, e.Event)
	}
	return out
}

type recordingInvalidator struct {
	users []int64
	all   int
}

func (r *recordingInvalidator) InvalidateUser(id int64) { r.users = append(r.users, id) }
func (r *recordingInvalidator) InvalidateAll()          { r.all++ }
