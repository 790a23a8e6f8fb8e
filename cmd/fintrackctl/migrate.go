package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"fintrack/internal/storage"
)

type migrateCmd struct {
	db     dbFlags
	status bool
	stdout io.Writer
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations" }
func (*migrateCmd) Usage() string {
	return `fintrackctl migrate [-backend sqlite|postgres] [-dsn <dsn>] [-status]

  Applies every pending migration. With -status only the current schema
  version is printed.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	c.db.register(f)
	f.BoolVar(&c.status, "status", false, "print the schema version without migrating")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *migrateCmd) run() error {
	out := c.stdout
	if out == nil {
		out = os.Stdout
	}

	dialect, dsn, err := c.db.resolve()
	if err != nil {
		return err
	}

	if !c.status {
		if err := storage.RunMigrations(dialect, dsn); err != nil {
			return err
		}
	}

	version, dirty, err := storage.MigrationVersion(dialect, dsn)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
