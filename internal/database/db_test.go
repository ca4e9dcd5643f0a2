package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/pushbell/internal/models"
)

func TestOpenSQLiteMemoryAndMigrate(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, AutoMigrate(db))
	require.True(t, db.Migrator().HasTable(&models.StateEntry{}))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "oracle")
}

func TestAutoMigrateNilHandle(t *testing.T) {
	require.Error(t, AutoMigrate(nil))
	require.NoError(t, Close(nil))
}

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "pushbell", Name: "pushbell"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=pushbell dbname=pushbell sslmode=disable", dsn)
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options:  map[string]string{"sslmode": "require", "search_path": "public"},
	})
	require.NoError(t, err)
	for _, part := range []string{"host=db.example.com", "port=6543", "password=pass", "sslmode=require", "search_path=public"} {
		require.True(t, strings.Contains(dsn, part), "dsn %q missing %q", dsn, part)
	}
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "root", Password: "pw", Name: "bell"})
	require.NoError(t, err)
	require.Equal(t, "root:pw@tcp(127.0.0.1:3306)/bell?charset=utf8mb4&loc=UTC&parseTime=True", dsn)

	_, err = buildMySQLDSN(Config{Name: "bell"})
	require.Error(t, err)
}

func TestDSNOverrideWins(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://x"})
	require.NoError(t, err)
	require.Equal(t, "postgres://x", dsn)
}
