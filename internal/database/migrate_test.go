//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/database"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "faceratio_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/faceratio_test?sslmode=disable", host, port.Port())
}

func TestMigratorIntegration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	db, err := database.OpenSQL(ctx, dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	name, err := database.DatabaseName(dsn)
	require.NoError(t, err)

	t.Run("Up runs migrations successfully", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, name, nil)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Up())
		require.NoError(t, migrator.Up(), "second Up is a no-op")

		assertTableExists(t, db, "analyses")
		assertTableExists(t, db, "analysis_cache")
		assertTableExists(t, db, "rate_limit_counters")
	})

	t.Run("Version returns current version", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, name, nil)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty, "migration should not be dirty")
		assert.Equal(t, uint(3), version)

		_, _, pending, err := migrator.Pending()
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("potential below overall is rejected", func(t *testing.T) {
		_, err := db.Exec(`
			INSERT INTO analyses (source, profile, topology, overall, potential, facets, quality)
			VALUES ('image', 'basic', 'face_mesh_478', 70, 60, '{}', '{}')
		`)
		assert.Error(t, err)
	})

	t.Run("Down rolls back one step", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, name, nil)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Down())
		version, _, err := migrator.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)

		current, latest, pending, err := migrator.Pending()
		require.NoError(t, err)
		assert.Equal(t, uint(2), current)
		assert.Equal(t, uint(3), latest)
		assert.True(t, pending)
	})

	t.Run("NewPool connects", func(t *testing.T) {
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(dsn))
		require.NoError(t, err)
		defer pool.Close()
		assert.NoError(t, database.HealthCheck(ctx, pool))
	})
}

func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)

	require.NoError(t, err)
	assert.True(t, exists, "table %s should exist", tableName)
}
