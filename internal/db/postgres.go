package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func postgresConnection(conn *sql.DB) Connection {
	return Connection{
		Backend: BackendPostgres,
		Timeout: 5 * time.Second,
		Ping:    conn.PingContext,
		Close:   conn.Close,
	}
}

// ConnectPostgres opens a pooled PostgreSQL connection and verifies it.
func ConnectPostgres(dsn string, logger *zap.Logger) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %w", err)
	}
	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	if err := postgresConnection(conn).Verify(logger); err != nil {
		return nil, err
	}
	return conn, nil
}

// DisconnectPostgres closes the pool.
func DisconnectPostgres(conn *sql.DB, logger *zap.Logger) error {
	if conn == nil {
		return nil
	}
	return postgresConnection(conn).Shutdown(logger)
}
