package postgres

import (
	"admin-service/internal/repository/postgres/migrations"
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var gooseUpContext = goose.UpContext

// Migrate applies the embedded schema migrations through a database/sql
// handle borrowed from the pool.
func (db *DB) Migrate(ctx context.Context) error {
	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	return runMigrations(ctx, sqlDB)
}

func runMigrations(ctx context.Context, sqlDB *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(migrationsDialect); err != nil {
		return errFailedRunMigrations(err)
	}

	if err := gooseUpContext(ctx, sqlDB, migrationsDir); err != nil {
		return errFailedRunMigrations(err)
	}

	return nil
}
