package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

var testNow = time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo *storage.Repository, userID int64, typ core.TransactionType, amount string, at time.Time, category *int64) {
	t.Helper()
	_, err := repo.CreateTransaction(context.Background(), core.NewTransaction{
		Type:       typ,
		Amount:     core.MustMoney(amount),
		UserID:     userID,
		CategoryID: category,
		CreatedAt:  at,
	})
	require.NoError(t, err)
}

func TestAggregation_SummaryAndWeekly(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewAggregationService(repo, nil).WithClock(func() time.Time { return testNow })

	u := createUser(t, repo, "alice")
	d1 := time.Date(2024, time.March, 8, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, time.March, 9, 9, 30, 0, 0, time.UTC)
	seed(t, repo, u.ID, core.Income, "100", d1, nil)
	seed(t, repo, u.ID, core.Expense, "40", d1.Add(time.Hour), nil)
	seed(t, repo, u.ID, core.Income, "50", d2, nil)

	sum, err := svc.DashboardSummary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), sum.Income.Cents)
	assert.Equal(t, int64(4000), sum.Expenses.Cents)
	assert.Equal(t, int64(11000), sum.Savings.Cents)

	week, err := svc.WeeklySeries(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, week, 7)
	assert.Equal(t, "2024-03-04", week[0].Date)
	assert.Equal(t, "2024-03-10", week[6].Date)

	day1 := week[4]
	assert.Equal(t, "2024-03-08", day1.Date)
	assert.Equal(t, int64(10000), day1.Income.Cents)
	assert.Equal(t, int64(4000), day1.Expenses.Cents)
	assert.Len(t, day1.Transactions, 2)

	assert.Equal(t, int64(5000), week[5].Income.Cents)
	assert.Empty(t, week[6].Transactions)
	assert.NotNil(t, week[6].Transactions)
}

func TestAggregation_WeeklyWindowEdges(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewAggregationService(repo, nil).WithClock(func() time.Time { return testNow })
	u := createUser(t, repo, "alice")

	// testNow is 2024-03-10, so the window is 03-04 00:00:00 up to 03-11.
	seed(t, repo, u.ID, core.Expense, "7", time.Date(2024, time.March, 3, 23, 59, 59, 0, time.UTC), nil)
	seed(t, repo, u.ID, core.Income, "100", time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), nil)
	seed(t, repo, u.ID, core.Income, "1", time.Date(2024, time.March, 10, 23, 59, 59, 0, time.UTC), nil)
	seed(t, repo, u.ID, core.Expense, "9", time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), nil)

	week, err := svc.WeeklySeries(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, week, 7)

	first := week[0]
	assert.Equal(t, "2024-03-04", first.Date)
	assert.Equal(t, int64(10000), first.Income.Cents)
	assert.Zero(t, first.Expenses.Cents, "the day before the window must be excluded")
	assert.Len(t, first.Transactions, 1)

	last := week[6]
	assert.Equal(t, "2024-03-10", last.Date)
	assert.Equal(t, int64(100), last.Income.Cents)
	assert.Zero(t, last.Expenses.Cents, "tomorrow must be excluded")

	var expenses int64
	for _, d := range week {
		expenses += d.Expenses.Cents
	}
	assert.Zero(t, expenses)
}

func TestAggregation_EmptyUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewAggregationService(repo, nil).WithClock(func() time.Time { return testNow })
	u := createUser(t, repo, "nobody")

	sum, err := svc.DashboardSummary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Summary{}, sum)

	months, err := svc.MonthlySeries(ctx, u.ID, 2024)
	require.NoError(t, err)
	require.Len(t, months, 12)
	for _, m := range months {
		assert.Zero(t, m.Income.Cents)
		assert.Zero(t, m.Expense.Cents)
	}

	usage, err := svc.CategoryUsagePercent(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, usage)
	assert.Empty(t, usage)
}

func TestAggregation_MonthlySeries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewAggregationService(repo, nil)
	u := createUser(t, repo, "alice")

	seed(t, repo, u.ID, core.Income, "10", time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC), nil)
	seed(t, repo, u.ID, core.Expense, "2.50", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), nil)
	seed(t, repo, u.ID, core.Expense, "1", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), nil)
	seed(t, repo, u.ID, core.Income, "99", time.Date(2023, time.December, 31, 23, 0, 0, 0, time.UTC), nil)

	months, err := svc.MonthlySeries(ctx, u.ID, 2024)
	require.NoError(t, err)
	require.Len(t, months, 12)

	want := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	for i, m := range months {
		assert.Equal(t, want[i], m.Month)
	}
	assert.Equal(t, int64(1000), months[0].Income.Cents)
	assert.Equal(t, int64(350), months[2].Expense.Cents)
	assert.Zero(t, months[11].Income.Cents, "previous year must not leak")
}

func TestAggregation_CategoryUsagePercent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewAggregationService(repo, nil)
	u := createUser(t, repo, "alice")
	other := createUser(t, repo, "bob")

	food, err := repo.CreateCategory(ctx, "Food", core.Expense)
	require.NoError(t, err)
	rent, err := repo.CreateCategory(ctx, "Rent", core.Expense)
	require.NoError(t, err)

	seed(t, repo, u.ID, core.Expense, "50", testNow, &food.ID)
	seed(t, repo, u.ID, core.Expense, "25", testNow, &rent.ID)
	seed(t, repo, u.ID, core.Expense, "25", testNow, nil)
	seed(t, repo, other.ID, core.Expense, "1000", testNow, &rent.ID)

	usage, err := svc.CategoryUsagePercent(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, usage, 3)

	assert.Equal(t, "Food", *usage[0].Category)
	assert.Equal(t, 50.0, usage[0].Percent)

	var total float64
	var uncategorized bool
	for _, cu := range usage {
		total += cu.Percent
		if cu.CategoryID == nil {
			uncategorized = true
			assert.Nil(t, cu.Category)
			assert.Equal(t, 25.0, cu.Percent)
		}
	}
	assert.True(t, uncategorized)
	assert.InDelta(t, 100.0, total, 0.01)
}

func TestAggregation_CacheInvalidation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	agg := NewAggregationService(repo, cache.NewLRUCache[any](100, time.Hour))
	txs := NewTransactionService(repo, nil, agg)
	u := createUser(t, repo, "alice")

	_, err := txs.Create(ctx, core.NewTransaction{Type: core.Income, Amount: core.MustMoney("10"), UserID: u.ID})
	require.NoError(t, err)

	sum, err := agg.DashboardSummary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sum.Income.Cents)

	// written behind the service's back: the cached value stays
	seed(t, repo, u.ID, core.Income, "5", testNow, nil)
	sum, err = agg.DashboardSummary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sum.Income.Cents)

	_, err = txs.Create(ctx, core.NewTransaction{Type: core.Expense, Amount: core.MustMoney("3"), UserID: u.ID})
	require.NoError(t, err)
	sum, err = agg.DashboardSummary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), sum.Income.Cents)
	assert.Equal(t, int64(1200), sum.Savings.Cents)
}

func TestAggregation_ConcurrentReads(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	agg := NewAggregationService(repo, cache.NewLRUCache[any](100, time.Hour))
	u := createUser(t, repo, "alice")
	seed(t, repo, u.ID, core.Income, "10", testNow, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum, err := agg.DashboardSummary(ctx, u.ID)
			assert.NoError(t, err)
			assert.Equal(t, int64(1000), sum.Income.Cents)
		}()
	}
	wg.Wait()
}

func TestAggregation_FillAcrossInvalidationIsNotCached(t *testing.T) {
	for _, tc := range []struct {
		name       string
		invalidate func(*AggregationService)
	}{
		{"user", func(a *AggregationService) { a.InvalidateUser(1) }},
		{"all", func(a *AggregationService) { a.InvalidateAll() }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := cache.NewLRUCache[any](10, time.Hour)
			agg := NewAggregationService(newTestRepo(t), c)

			started := make(chan struct{})
			release := make(chan struct{})
			result := make(chan int, 1)
			go func() {
				v, err := cached(agg, 1, "summary", func() (int, error) {
					close(started)
					<-release
					return 1, nil
				})
				assert.NoError(t, err)
				result <- v
			}()

			<-started
			tc.invalidate(agg)
			close(release)
			assert.Equal(t, 1, <-result, "the caller still gets its own result")

			_, ok := c.Get(userPrefix(1) + "summary")
			assert.False(t, ok, "a result computed before the invalidation must not be stored")

			v, err := cached(agg, 1, "summary", func() (int, error) { return 2, nil })
			require.NoError(t, err)
			assert.Equal(t, 2, v)
			stored, ok := c.Get(userPrefix(1) + "summary")
			assert.True(t, ok)
			assert.Equal(t, 2, stored)
		})
	}
}
