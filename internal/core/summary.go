package core

// Summary holds dashboard totals for one user.
type Summary struct {
	Income   Money `json:"income"`
	Expenses Money `json:"expenses"`
	Savings  Money `json:"savings"`
}

// DailyEntry is one day of the weekly series.
type DailyEntry struct {
	Date         string        `json:"date"` // YYYY-MM-DD
	Income       Money         `json:"income"`
	Expenses     Money         `json:"expenses"`
	Transactions []Transaction `json:"transactions"`
}

// MonthlyEntry is one month of the yearly series.
type MonthlyEntry struct {
	Month   string `json:"month"` // Jan..Dec
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// CategoryUsage is one category's share of a user's total amount.
// CategoryID is nil for uncategorized transactions.
type CategoryUsage struct {
	CategoryID *int64  `json:"categoryId"`
	Category   *string `json:"category"`
	Total      Money   `json:"total"`
	Percent    float64 `json:"percent"`
}

// MonthTypeTotal is a raw per-month, per-type sum as returned by storage.
type MonthTypeTotal struct {
	Month int // 1-12
	Type  TransactionType
	Total Money
}

// CategoryTotal is a raw per-category sum as returned by storage.
type CategoryTotal struct {
	CategoryID *int64
	Name       *string
	Total      Money
}
