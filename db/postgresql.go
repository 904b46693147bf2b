package db

import (
	"context"
	"database/sql"
	"log"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// InitDB opens a connection pool for driver and checks that it answers.
func InitDB(ctx context.Context, driver, dataSourceName string) (*sql.DB, error) {
	conn, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if driver == DriverSQLite {
		// every new connection to an in-memory sqlite database is a separate database
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(20)
		conn.SetMaxIdleConns(10)
	}

	log.Printf("Database connection (%s) initialized successfully.", driver)
	return conn, nil
}
