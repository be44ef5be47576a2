// ABOUTME: Factory selecting a source store implementation from configuration.
// ABOUTME: Supports the memory, sqlite, and postgres drivers.
package storage

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a store.
type Options struct {
	Driver    string
	Path      string // sqlite database file
	DSN       string // postgres connection string
	Table     string // postgres table name
	Dimension int    // postgres vector column width
	HNSW      bool   // postgres HNSW index
}

// Open creates the store named by opts.Driver.
func Open(ctx context.Context, opts Options) (SourceStore, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		if opts.Path == "" {
			return nil, fmt.Errorf("%w: sqlite driver requires a path", ErrInvalidArgument)
		}
		return OpenSQLiteStore(ctx, opts.Path)
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("%w: postgres driver requires a DSN", ErrInvalidArgument)
		}
		pgOpts := []PGOption{WithTable(opts.Table)}
		if opts.HNSW {
			pgOpts = append(pgOpts, WithHNSWIndex())
		}
		return OpenPGVectorStore(ctx, opts.DSN, opts.Dimension, pgOpts...)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", ErrInvalidArgument, opts.Driver)
	}
}
