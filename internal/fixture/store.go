// Package fixture resets the backend data the acceptance suite depends on.
package fixture

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/config"
)

// Store is the narrow record interface the suite hooks need.
type Store interface {
	// ClearCollections empties each named collection.
	ClearCollections(ctx context.Context, names ...string) error
	// RemoveTestFilms drops films whose title contains marker, ignoring case.
	RemoveTestFilms(ctx context.Context, marker string) error
	// RemoveUser drops the user registered under email.
	RemoveUser(ctx context.Context, email string) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open creates the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.FixtureConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case DriverFile:
		return NewFileStore(cfg.Path, logger)
	case DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		s, err := NewPostgresStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		s.closer = pool.Close
		return s, nil
	case DriverNone, "":
		return NopStore{}, nil
	}
	return nil, fmt.Errorf("unknown fixture driver %q", cfg.Driver)
}

// NopStore is used when the suite runs against an environment it must not touch.
type NopStore struct{}

func (NopStore) ClearCollections(context.Context, ...string) error { return nil }
func (NopStore) RemoveTestFilms(context.Context, string) error     { return nil }
func (NopStore) RemoveUser(context.Context, string) error          { return nil }
func (NopStore) Close() error                                      { return nil }
