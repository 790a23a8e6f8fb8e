package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"golang.org/x/term"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type adduserCmd struct {
	db         dbFlags
	username   string
	email      string
	password   string
	admin      bool
	bcryptCost int

	stdin  io.Reader
	stdout io.Writer
}

func (*adduserCmd) Name() string     { return "adduser" }
func (*adduserCmd) Synopsis() string { return "create a user account" }
func (*adduserCmd) Usage() string {
	return `fintrackctl adduser -username <name> -email <email> [-password <pw>] [-admin]

  Creates a user. The password is prompted for when omitted. Use -admin to
  bootstrap the first administrator.
`
}

func (c *adduserCmd) SetFlags(f *flag.FlagSet) {
	c.db.register(f)
	f.StringVar(&c.username, "username", "", "username")
	f.StringVar(&c.email, "email", "", "email address")
	f.StringVar(&c.password, "password", "", "password (optional, will prompt if omitted)")
	f.BoolVar(&c.admin, "admin", false, "grant the admin role")
	f.IntVar(&c.bcryptCost, "bcrypt-cost", config.Load().BcryptCost, "bcrypt cost factor")
}

func (c *adduserCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" || c.email == "" {
		fmt.Fprintln(os.Stderr, "missing required flags: -username and -email")
		return subcommands.ExitUsageError
	}
	if err := c.run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *adduserCmd) run(ctx context.Context) error {
	password := c.password
	if password == "" {
		fmt.Fprint(c.stdout, "Password: ")
		var err error
		password, err = readPassword(c.stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(c.stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	dialect, dsn, err := c.db.resolve()
	if err != nil {
		return err
	}
	repo, err := storage.NewRepository(dialect, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	role := core.RoleUser
	if c.admin {
		role = core.RoleAdmin
	}

	// Registration never issues tokens, so no issuer is needed.
	svc := services.NewAuthService(repo, nil, auth.NewHasher(c.bcryptCost))
	u, err := svc.Register(ctx, services.RegisterInput{
		Username: c.username,
		Email:    c.email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "User %s created successfully with ID %d (role %s)\n", u.Username, u.ID, u.Role)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
