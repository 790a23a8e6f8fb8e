package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Dialect selects the SQL flavour and driver of a Repository.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// sqliteTimeLayout is the layout SQLite's own date functions produce and parse.
const sqliteTimeLayout = "2006-01-02 15:04:05"

func (d Dialect) IsValid() bool {
	return d == SQLite || d == Postgres
}

func (d Dialect) String() string {
	return string(d)
}

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// monthOf returns an expression yielding the 1-12 UTC month of a timestamp column.
func (d Dialect) monthOf(col string) string {
	if d == Postgres {
		return fmt.Sprintf("CAST(EXTRACT(MONTH FROM %s AT TIME ZONE 'UTC') AS INTEGER)", col)
	}
	return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", col)
}

// timeArg encodes t for binding. SQLite stores UTC text so that strftime and
// range comparisons work on it.
func (d Dialect) timeArg(t time.Time) any {
	t = t.UTC()
	if d == Postgres {
		return t
	}
	return t.Format(sqliteTimeLayout)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// nullTime scans timestamps from either driver: time.Time from pgx and
// DATETIME columns, text from expressions SQLite did not type.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = x.UTC(), true
		return nil
	case string:
		return n.parse(x)
	case []byte:
		return n.parse(string(x))
	default:
		return fmt.Errorf("unsupported time value %T", v)
	}
}

func (n *nullTime) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, "2006-01-02 15:04:05.999999999-07:00", time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("parse time %q", s)
}
