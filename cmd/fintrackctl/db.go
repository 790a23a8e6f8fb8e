package main

import (
	"flag"
	"fmt"

	"fintrack/internal/config"
	"fintrack/internal/storage"
)

// dbFlags selects the database; defaults come from the environment.
type dbFlags struct {
	backend string
	dsn     string
}

func (d *dbFlags) register(f *flag.FlagSet) {
	cfg := config.Load()
	f.StringVar(&d.backend, "backend", cfg.DataBackend, "database backend (sqlite, postgres)")
	f.StringVar(&d.dsn, "dsn", cfg.DSN(), "SQLite file path or PostgreSQL URL")
}

func (d *dbFlags) resolve() (storage.Dialect, string, error) {
	dialect := storage.Dialect(d.backend)
	if !dialect.IsValid() {
		return "", "", fmt.Errorf("unknown backend %q", d.backend)
	}
	if d.dsn == "" {
		return "", "", fmt.Errorf("-dsn is required for the %s backend", dialect)
	}
	return dialect, d.dsn, nil
}
