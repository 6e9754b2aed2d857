package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/stapelberg/postgrestest"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// EphemeralPostgresDB implements Repository using an ephemeral PostgreSQL
// instance that is destroyed on Close. Used for development and tests.
type EphemeralPostgresDB struct {
	*BunDB
	server *postgrestest.Server
}

// SetupEphemeralPostgresDatabase creates an ephemeral PostgreSQL instance
func SetupEphemeralPostgresDatabase() (*EphemeralPostgresDB, error) {
	Logger.Info("Starting ephemeral PostgreSQL server...")

	ctx := context.Background()

	// Start the ephemeral PostgreSQL server
	// Uses a temporary directory by default for simplicity
	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start ephemeral postgres: %w", err)
	}

	// Create a new database for the service
	previewDSN, err := pgt.CreateDatabase(ctx)
	if err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to create docpreview database: %w", err)
	}

	Logger.Info("Created ephemeral database", "dsn", previewDSN)

	sqlDB, err := sql.Open("postgres", previewDSN)
	if err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to open docpreview database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	bunDB := newBunDB(sqlDB, pgdialect.New(), "ephemeral")
	if err := bunDB.runMigrations(ctx); err != nil {
		bunDB.Close()
		pgt.Cleanup()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	Logger.Info("Connected to ephemeral PostgreSQL database successfully")

	return &EphemeralPostgresDB{
		BunDB:  bunDB,
		server: pgt,
	}, nil
}

// Close closes the database connection and cleans up the ephemeral server
func (e *EphemeralPostgresDB) Close() error {
	if e.BunDB != nil {
		if err := e.BunDB.Close(); err != nil {
			Logger.Warn("Failed to close database connection", "error", err)
		}
	}

	if e.server != nil {
		Logger.Info("Cleaning up ephemeral PostgreSQL server...")
		e.server.Cleanup()
		Logger.Info("Ephemeral PostgreSQL server cleaned up")
	}

	return nil
}
