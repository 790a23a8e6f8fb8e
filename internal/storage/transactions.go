package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// transactionSelect expands the category and owner of each row.
const transactionSelect = `
SELECT t.id, t.type, t.amount_cents, t.created_at, t.user_id, t.category_id,
       c.name, c.type, c.created_at, u.username
FROM transactions t
JOIN users u ON u.id = t.user_id
LEFT JOIN categories c ON c.id = t.category_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t          core.Transaction
		typ        string
		cents      int64
		at         nullTime
		categoryID sql.NullInt64
		catName    sql.NullString
		catType    sql.NullString
		catAt      nullTime
		username   string
	)
	if err := row.Scan(&t.ID, &typ, &cents, &at, &t.UserID, &categoryID, &catName, &catType, &catAt, &username); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Amount = core.Money{Cents: cents}
	t.CreatedAt = at.Time
	t.User = &core.UserRef{ID: t.UserID, Username: username}
	if categoryID.Valid {
		id := categoryID.Int64
		t.CategoryID = &id
		t.Category = &core.Category{
			ID:        id,
			Name:      catName.String,
			Type:      core.TransactionType(catType.String),
			CreatedAt: catAt.Time,
		}
	}
	return t, nil
}

func (r *Repository) listTransactions(ctx context.Context, where string, args ...any) ([]core.Transaction, error) {
	rows, err := r.query(ctx, transactionSelect+` WHERE `+where+` ORDER BY t.created_at DESC, t.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// CreateTransaction inserts n and returns the stored, expanded transaction.
// The caller resolves the user and category beforehand.
func (r *Repository) CreateTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	var id int64
	err := r.queryRow(ctx,
		`INSERT INTO transactions (type, amount_cents, created_at, user_id, category_id) VALUES (?, ?, ?, ?, ?) RETURNING id`,
		string(n.Type), n.Amount.Cents, r.dialect.timeArg(r.stamp(n.CreatedAt)), n.UserID, nullInt(n.CategoryID),
	).Scan(&id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		log.NewFields().WithTransaction(id, string(n.Type), n.Amount.Cents).WithUser(n.UserID).ToSlice()...)

	return r.GetTransaction(ctx, n.UserID, id)
}

// GetTransaction returns the transaction only if it belongs to userID.
func (r *Repository) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.queryRow(ctx, transactionSelect+` WHERE t.id = ? AND t.user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns the user's transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := r.listTransactions(ctx, `t.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// ListTransactionsBetween returns the user's transactions created in [from, to).
func (r *Repository) ListTransactionsBetween(ctx context.Context, userID int64, from, to time.Time) ([]core.Transaction, error) {
	txs, err := r.listTransactions(ctx, `t.user_id = ? AND t.created_at >= ? AND t.created_at < ?`,
		userID, r.dialect.timeArg(from), r.dialect.timeArg(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	return txs, nil
}

// UpdateTransaction applies the non-empty fields of p to the user's
// transaction. A row owned by someone else is reported as not found.
func (r *Repository) UpdateTransaction(ctx context.Context, userID, id int64, p core.TransactionPatch) (core.Transaction, error) {
	var (
		sets []string
		args []any
	)
	if p.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*p.Type))
	}
	if p.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, p.Amount.Cents)
	}
	if p.CategoryID.Set {
		sets = append(sets, "category_id = ?")
		args = append(args, nullInt(p.CategoryID.Ptr()))
	}
	if len(sets) == 0 {
		return r.GetTransaction(ctx, userID, id)
	}

	args = append(args, id, userID)
	res, err := r.exec(ctx, `UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return core.Transaction{}, err
	}
	if n == 0 {
		return core.Transaction{}, core.NotFound("transaction", id)
	}

	slog.InfoContext(ctx, "Transaction updated", log.FieldTransactionID, id, log.FieldUserID, userID)
	return r.GetTransaction(ctx, userID, id)
}

// DeleteTransaction removes the user's transaction.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.NotFound("transaction", id)
	}

	slog.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id, log.FieldUserID, userID)
	return nil
}
