package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// DefaultConnectTimeout bounds how long OpenPostgres keeps retrying the
// initial connection.
const DefaultConnectTimeout = 30 * time.Second

// NewPostgresStore connects to the destination database at url.
func NewPostgresStore(ctx context.Context, url string, connectTimeout time.Duration) (*SQLStore, error) {
	db, err := OpenPostgres(ctx, url, connectTimeout)
	if err != nil {
		return nil, err
	}
	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an open Postgres connection pool.
func NewPostgresStoreFromDB(db *sql.DB) *SQLStore {
	return newSQLStore(db, postgresDialect, false)
}

// OpenPostgres opens a pool and pings it with exponential backoff until it
// answers or connectTimeout elapses. A database that is still starting up
// (a fresh container, say) is the common reason for the first pings to fail.
func OpenPostgres(ctx context.Context, url string, connectTimeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectTimeout

	err = backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := db.PingContext(pingCtx)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	return db, nil
}

// retryable reports whether a failed ping may succeed later. The server
// answering with an authentication or unknown-database error will not.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return true
	}
	return !strings.HasPrefix(pgErr.Code, "28") && pgErr.Code != "3D000"
}
