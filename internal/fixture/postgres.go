package fixture

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool is the subset of pgxpool.Pool the store uses, so tests can mock it.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlDeleteTestFilms = `DELETE FROM films WHERE lower(title) LIKE '%' || lower($1) || '%'`
	sqlDeleteUser      = `DELETE FROM users WHERE lower(email) = lower($1)`
)

// PostgresStore resets fixtures in a Postgres-backed deployment. Collection
// names map one to one onto table names.
type PostgresStore struct {
	pool   DBPool
	log    *zap.Logger
	closer func()
}

// NewPostgresStore creates a store and verifies the connection.
func NewPostgresStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool, log: logger.Named("fixture.postgres")}, nil
}

// ClearCollections deletes every row of the named tables in one transaction.
// Tables are emptied in reverse order so dependents listed after their
// parents go first.
func (s *PostgresStore) ClearCollections(ctx context.Context, names ...string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	for i := len(names) - 1; i >= 0; i-- {
		table := pgx.Identifier{names[i]}.Sanitize()
		tag, err := tx.Exec(ctx, "DELETE FROM "+table)
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
		s.log.Debug("Cleared table.", zap.String("table", names[i]), zap.Int64("rows", tag.RowsAffected()))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Cleared collections.", zap.Strings("collections", names))
	return nil
}

func (s *PostgresStore) RemoveTestFilms(ctx context.Context, marker string) error {
	tag, err := s.pool.Exec(ctx, sqlDeleteTestFilms, marker)
	if err != nil {
		return fmt.Errorf("failed to remove test films: %w", err)
	}
	s.log.Info("Removed test films.", zap.String("marker", marker), zap.Int64("removed", tag.RowsAffected()))
	return nil
}

func (s *PostgresStore) RemoveUser(ctx context.Context, email string) error {
	tag, err := s.pool.Exec(ctx, sqlDeleteUser, email)
	if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	s.log.Info("Removed user.", zap.String("email", email), zap.Int64("removed", tag.RowsAffected()))
	return nil
}

// Close releases the pool when the store opened it.
func (s *PostgresStore) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}
