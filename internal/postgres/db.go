package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/restaurant-orders/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// inTx commits when fn returns nil and rolls back otherwise.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Internal(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(err, "commit")
	}
	return nil
}

// translate maps driver errors onto error kinds. what names the thing being
// touched and ends up in the client message.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("%s not found", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, err, "%s already exists", what)
		case codeForeignKeyViolation:
			return apperr.Wrap(apperr.KindValidation, err, "%s references a missing record", what)
		case codeCheckViolation:
			return apperr.Wrap(apperr.KindValidation, err, "%s violates %s", what, pgErr.ConstraintName)
		}
	}
	return apperr.Internal(err, "%s", what)
}

func exists(ctx context.Context, tx pgx.Tx, query string, args ...any) (bool, error) {
	var ok bool
	if err := tx.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, apperr.Internal(err, "exists query")
	}
	return ok, nil
}

// validID reports whether id can be compared against a uuid column. Lookups
// with anything else are answered as not found without a round trip.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}
