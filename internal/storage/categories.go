package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c  core.Category
		t  sql.NullString
		at nullTime
	)
	if err := row.Scan(&c.ID, &c.Name, &t, &at); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(t.String)
	c.CreatedAt = at.Time
	return c, nil
}

// CreateCategory inserts a category. An empty type is stored as NULL.
func (r *Repository) CreateCategory(ctx context.Context, name string, t core.TransactionType) (core.Category, error) {
	c := core.Category{Name: name, Type: t, CreatedAt: r.stamp(r.now())}
	err := r.queryRow(ctx,
		`INSERT INTO categories (name, type, created_at) VALUES (?, ?, ?) RETURNING id`,
		name, nullString(string(t)), r.dialect.timeArg(c.CreatedAt),
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, fmt.Errorf("create category %q: %w", name, core.ErrConflict)
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", log.FieldCategoryID, c.ID, "name", c.Name)
	return c, nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(r.queryRow(ctx, `SELECT id, name, type, created_at FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFound("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.query(ctx, `SELECT id, name, type, created_at FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category. Referencing transactions keep existing
// with a NULL category.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NotFound("category", id)
	}

	slog.InfoContext(ctx, "Category deleted", log.FieldCategoryID, id)
	return nil
}
