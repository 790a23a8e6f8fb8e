package services

import (
	"context"
	"errors"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type CategoryService struct {
	repo        *storage.Repository
	invalidator Invalidator
}

func NewCategoryService(repo *storage.Repository, invalidator Invalidator) *CategoryService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &CategoryService{repo: repo, invalidator: invalidator}
}

// Create rejects empty or duplicate names with a validation error on "name".
func (s *CategoryService) Create(ctx context.Context, name string, t core.TransactionType) (core.Category, error) {
	name, err := core.ValidateCategory(name, t)
	if err != nil {
		return core.Category{}, err
	}

	c, err := s.repo.CreateCategory(ctx, name, t)
	if errors.Is(err, core.ErrConflict) {
		return core.Category{}, &core.ValidationError{Field: "name", Message: "Category name already exists", Err: err}
	}
	return c, err
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.repo.ListCategories(ctx)
}

// Delete removes the category and detaches it from every transaction, so
// all cached category breakdowns are dropped.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidator.InvalidateAll()
	return nil
}
