package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// SumByType returns the total of the user's transactions of type t, zero if none.
func (r *Repository) SumByType(ctx context.Context, userID int64, t core.TransactionType) (core.Money, error) {
	var cents int64
	err := r.queryRow(ctx,
		`SELECT CAST(COALESCE(SUM(amount_cents), 0) AS BIGINT) FROM transactions WHERE user_id = ? AND type = ?`,
		userID, string(t),
	).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum %s: %w", t, err)
	}
	return core.Money{Cents: cents}, nil
}

// MonthlyTotals groups the user's transactions of the given UTC year by
// creation month and type. Months without data are absent.
func (r *Repository) MonthlyTotals(ctx context.Context, userID int64, year int) ([]core.MonthTypeTotal, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	month := r.dialect.monthOf("created_at")

	rows, err := r.query(ctx, `
SELECT `+month+` AS month, type, CAST(SUM(amount_cents) AS BIGINT) AS total
FROM transactions
WHERE user_id = ? AND created_at >= ? AND created_at < ?
GROUP BY `+month+`, type
ORDER BY month`,
		userID, r.dialect.timeArg(from), r.dialect.timeArg(to))
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var totals []core.MonthTypeTotal
	for rows.Next() {
		var (
			m     core.MonthTypeTotal
			typ   string
			cents int64
		)
		if err := rows.Scan(&m.Month, &typ, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		m.Type = core.TransactionType(typ)
		m.Total = core.Money{Cents: cents}
		totals = append(totals, m)
	}
	return totals, rows.Err()
}

// CategoryTotals sums the user's transactions per category. Uncategorized
// transactions form one group with a nil id and name.
func (r *Repository) CategoryTotals(ctx context.Context, userID int64) ([]core.CategoryTotal, error) {
	rows, err := r.query(ctx, `
SELECT t.category_id, c.name, CAST(SUM(t.amount_cents) AS BIGINT) AS total
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.user_id = ?
GROUP BY t.category_id, c.name
ORDER BY total DESC, t.category_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var (
			id    sql.NullInt64
			name  sql.NullString
			cents int64
			ct    core.CategoryTotal
		)
		if err := rows.Scan(&id, &name, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		if id.Valid {
			v := id.Int64
			ct.CategoryID = &v
		}
		if name.Valid {
			v := name.String
			ct.Name = &v
		}
		ct.Total = core.Money{Cents: cents}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}
