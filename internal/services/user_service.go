package services

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type UserService struct {
	repo        *storage.Repository
	invalidator Invalidator
}

func NewUserService(repo *storage.Repository, invalidator Invalidator) *UserService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &UserService{repo: repo, invalidator: invalidator}
}

func (s *UserService) Get(ctx context.Context, id int64) (core.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	return s.repo.ListUsers(ctx)
}

// Delete removes the user together with their transactions.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.invalidator.InvalidateUser(id)
	return nil
}
