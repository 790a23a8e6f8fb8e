// Command fintrackctl runs administrative tasks against the fintrack database.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"fintrack/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&migrateCmd{}, "database")
	commander.Register(&adduserCmd{stdin: os.Stdin, stdout: os.Stdout}, "users")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
