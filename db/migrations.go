package db

import (
	"context"
	"database/sql"
	"embed"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the posts schema up to date on conn.
func Migrate(ctx context.Context, conn *sql.DB, driver string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	dialect := "postgres"
	if driver == DriverSQLite {
		dialect = "sqlite3"
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "failed to set dialect")
	}

	if err := goose.UpContext(ctx, conn, "migrations"); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}

	log.Println("database migration check complete. All migrations are up to date")
	return nil
}
