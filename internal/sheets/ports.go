// Package sheets defines the spreadsheet ledger the export worker writes to.
package sheets

import (
	"context"
	"time"
)

// LedgerEntry is one exported transaction event, written as one row.
type LedgerEntry struct {
	Timestamp     time.Time
	Event         string
	TransactionID int64
	UserID        int64
	Type          string
	AmountCents   int64
	CategoryID    *int64
	CreatedAt     time.Time
}

// LedgerAppender appends entries after the last row of the ledger.
type LedgerAppender interface {
	AppendEntry(ctx context.Context, e LedgerEntry) error
}
