package persistence

import (
	"context"
	"os"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/order-desk/migrations"
)

func TestMigrationFilesOrderedSQLOnly(t *testing.T) {
	source := fstest.MapFS{
		"002_more.sql":   {Data: []byte("SELECT 2")},
		"001_orders.sql": {Data: []byte("SELECT 1")},
		"README.md":      {Data: []byte("notes")},
		".hidden.sql":    {Data: []byte("SELECT 0")},
		"archive/x.sql":  {Data: []byte("SELECT 3")},
		"010_later.sql":  {Data: []byte("SELECT 10")},
	}

	files, err := migrationFiles(source)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_orders.sql", "002_more.sql", "010_later.sql"}, files)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	files, err := migrationFiles(migrations.FS)
	require.NoError(t, err)
	require.Contains(t, files, "001_orders.sql")

	raw, err := migrations.FS.ReadFile("001_orders.sql")
	require.NoError(t, err)
	for _, table := range []string{"order_counter", "orders", "order_history"} {
		assert.Contains(t, string(raw), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, migrations.FS, zap.NewNop()))
}

func TestRunMigrationsPostgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("ORDERDESK_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("ORDERDESK_TEST_DATABASE_URL is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, RunMigrations(ctx, pool, migrations.FS, zap.NewNop()))
	// A second run finds every version recorded and changes nothing.
	require.NoError(t, RunMigrations(ctx, pool, migrations.FS, zap.NewNop()))

	var versions int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = '001_orders.sql'`).Scan(&versions))
	assert.Equal(t, 1, versions)
}
