package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func tempDB(t *testing.T) dbFlags {
	t.Helper()
	return dbFlags{backend: "sqlite", dsn: filepath.Join(t.TempDir(), "fintrack.db")}
}

func TestMigrate(t *testing.T) {
	var out bytes.Buffer
	cmd := &migrateCmd{db: tempDB(t), stdout: &out}

	require.NoError(t, cmd.run())
	assert.Contains(t, out.String(), "dirty=false")
	assert.NotContains(t, out.String(), "schema version 0 ")

	out.Reset()
	cmd.status = true
	require.NoError(t, cmd.run())
	assert.True(t, strings.HasPrefix(out.String(), "schema version "))
}

func TestMigrate_UnknownBackend(t *testing.T) {
	cmd := &migrateCmd{db: dbFlags{backend: "memory", dsn: "x"}}
	assert.ErrorContains(t, cmd.run(), "unknown backend")
}

func TestAddUser_PromptsForPassword(t *testing.T) {
	db := tempDB(t)
	var out bytes.Buffer
	cmd := &adduserCmd{
		db:         db,
		username:   "root",
		email:      "Root@Example.com",
		admin:      true,
		bcryptCost: 4,
		stdin:      strings.NewReader("s3cret-password\n"),
		stdout:     &out,
	}

	require.NoError(t, cmd.run(context.Background()))
	assert.Contains(t, out.String(), "Password: ")
	assert.Contains(t, out.String(), "User root created successfully")

	repo, err := storage.NewSQLiteRepository(db.dsn)
	require.NoError(t, err)
	defer repo.Close()

	u, err := repo.GetUserByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, u.Role)
	assert.NotEqual(t, "s3cret-password", u.PasswordHash)
}

func TestAddUser_Duplicate(t *testing.T) {
	db := tempDB(t)
	newCmd := func() *adduserCmd {
		return &adduserCmd{
			db:         db,
			username:   "alice",
			email:      "alice@example.com",
			password:   "password123",
			bcryptCost: 4,
			stdout:     &bytes.Buffer{},
		}
	}

	require.NoError(t, newCmd().run(context.Background()))

	err := newCmd().run(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
}

func TestAddUser_EmptyPassword(t *testing.T) {
	cmd := &adduserCmd{
		db:       tempDB(t),
		username: "bob",
		email:    "bob@example.com",
		stdin:    strings.NewReader("   \n"),
		stdout:   &bytes.Buffer{},
	}
	assert.ErrorContains(t, cmd.run(context.Background()), "password cannot be empty")
}
