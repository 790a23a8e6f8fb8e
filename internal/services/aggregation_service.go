package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const dayLayout = "2006-01-02"

// AggregationService computes the dashboard views of one user's
// transactions. Calendar days and months are taken in UTC.
type AggregationService struct {
	repo  *storage.Repository
	cache cache.Cache[any]
	group singleflight.Group
	now   func() time.Time

	// generations guards against a fill that started before an
	// invalidation storing its result after it.
	genMu       sync.Mutex
	generations map[int64]uint64
	epoch       uint64
}

// NewAggregationService caches results in c when it is non-nil.
func NewAggregationService(repo *storage.Repository, c cache.Cache[any]) *AggregationService {
	return &AggregationService{repo: repo, cache: c, now: time.Now, generations: make(map[int64]uint64)}
}

// WithClock replaces the time source, for tests.
func (s *AggregationService) WithClock(now func() time.Time) *AggregationService {
	s.now = now
	return s
}

func userPrefix(userID int64) string {
	return cache.Key("user", strconv.FormatInt(userID, 10)) + ":"
}

func (s *AggregationService) InvalidateUser(userID int64) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[userID]++
	s.cache.DeletePrefix(userPrefix(userID))
}

func (s *AggregationService) InvalidateAll() {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.epoch++
	s.cache.Purge()
}

// generation identifies the user's cached state; callers hold genMu.
func (s *AggregationService) generation(userID int64) string {
	return strconv.FormatUint(s.epoch, 10) + "." + strconv.FormatUint(s.generations[userID], 10)
}

// cached returns the user's value under name, filling it with fill at most
// once across concurrent callers. A result computed across an invalidation
// is returned but not stored.
func cached[T any](s *AggregationService, userID int64, name string, fill func() (T, error)) (T, error) {
	if s.cache == nil {
		return fill()
	}
	key := userPrefix(userID) + name
	if v, ok := s.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	s.genMu.Lock()
	gen := s.generation(userID)
	s.genMu.Unlock()

	// Callers arriving after an invalidation start their own fill.
	v, err, _ := s.group.Do(key+"@"+gen, func() (any, error) {
		t, err := fill()
		if err != nil {
			return nil, err
		}
		s.genMu.Lock()
		if s.generation(userID) == gen {
			s.cache.Set(key, t)
		}
		s.genMu.Unlock()
		return t, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// DashboardSummary sums income and expenses concurrently. The two sums may
// straddle a concurrent write.
func (s *AggregationService) DashboardSummary(ctx context.Context, userID int64) (core.Summary, error) {
	return cached(s, userID, "summary", func() (core.Summary, error) {
		var income, expenses core.Money

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			income, err = s.repo.SumByType(gctx, userID, core.Income)
			return err
		})
		g.Go(func() error {
			var err error
			expenses, err = s.repo.SumByType(gctx, userID, core.Expense)
			return err
		})
		if err := g.Wait(); err != nil {
			return core.Summary{}, fmt.Errorf("dashboard summary: %w", err)
		}

		return core.Summary{
			Income:   income,
			Expenses: expenses,
			Savings:  income.Sub(expenses),
		}, nil
	})
}

// WeeklySeries returns seven daily entries from six days ago through today,
// oldest first.
func (s *AggregationService) WeeklySeries(ctx context.Context, userID int64) ([]core.DailyEntry, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return cached(s, userID, "weekly:"+today.Format(dayLayout), func() ([]core.DailyEntry, error) {
		from := today.AddDate(0, 0, -6)
		txs, err := s.repo.ListTransactionsBetween(ctx, userID, from, today.AddDate(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("weekly series: %w", err)
		}

		entries := make([]core.DailyEntry, 7)
		index := make(map[string]int, 7)
		for i := range entries {
			date := from.AddDate(0, 0, i).Format(dayLayout)
			entries[i] = core.DailyEntry{Date: date, Transactions: []core.Transaction{}}
			index[date] = i
		}

		for _, tx := range txs {
			i, ok := index[tx.CreatedAt.UTC().Format(dayLayout)]
			if !ok {
				continue
			}
			e := &entries[i]
			switch tx.Type {
			case core.Income:
				e.Income = e.Income.Add(tx.Amount)
			case core.Expense:
				e.Expenses = e.Expenses.Add(tx.Amount)
			}
			e.Transactions = append(e.Transactions, tx)
		}
		return entries, nil
	})
}

// MonthlySeries returns twelve entries, January first, for the given year.
func (s *AggregationService) MonthlySeries(ctx context.Context, userID int64, year int) ([]core.MonthlyEntry, error) {
	return cached(s, userID, "monthly:"+strconv.Itoa(year), func() ([]core.MonthlyEntry, error) {
		totals, err := s.repo.MonthlyTotals(ctx, userID, year)
		if err != nil {
			return nil, fmt.Errorf("monthly series: %w", err)
		}

		entries := make([]core.MonthlyEntry, 12)
		for i := range entries {
			entries[i].Month = time.Month(i + 1).String()[:3]
		}
		for _, t := range totals {
			if t.Month < 1 || t.Month > 12 {
				continue
			}
			e := &entries[t.Month-1]
			switch t.Type {
			case core.Income:
				e.Income = e.Income.Add(t.Total)
			case core.Expense:
				e.Expense = e.Expense.Add(t.Total)
			}
		}
		return entries, nil
	})
}

// CategoryUsagePercent returns each category's share of the user's total
// amount, largest first. A user with no transactions gets an empty list.
func (s *AggregationService) CategoryUsagePercent(ctx context.Context, userID int64) ([]core.CategoryUsage, error) {
	return cached(s, userID, "categories", func() ([]core.CategoryUsage, error) {
		totals, err := s.repo.CategoryTotals(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("category usage: %w", err)
		}

		var sum core.Money
		for _, t := range totals {
			sum = sum.Add(t.Total)
		}

		usage := []core.CategoryUsage{}
		if sum.Cents == 0 {
			return usage, nil
		}
		for _, t := range totals {
			usage = append(usage, core.CategoryUsage{
				CategoryID: t.CategoryID,
				Category:   t.Name,
				Total:      t.Total,
				Percent:    core.Percent(t.Total, sum),
			})
		}
		return usage, nil
	})
}
