package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to open a warehouse backend.
type Config struct {
	// Kind must match a registered backend kind ("mysql", "postgres",
	// "sqlite", "mssql").
	Kind string
	// DSN is passed through to the backend factory; validation is
	// backend-specific.
	DSN string
}

// Warehouse is the backend-agnostic interface the pipeline runs against.
//
// IMPORTANT: the interface is intentionally minimal and shaped around the
// steps of the staging load and star promotion. Each backend implements the
// semantics in its own idiomatic way (MySQL INSERT IGNORE, Postgres
// ON CONFLICT DO NOTHING, SQLite OR IGNORE, SQL Server NOT EXISTS merge).
type Warehouse interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// Ping verifies connectivity and returns the server version string.
	Ping(ctx context.Context) (string, error)

	// EnsureSchema creates tables idempotently (create-if-not-exists).
	EnsureSchema(ctx context.Context, tables []TableSpec) error

	// Append bulk-inserts rows as-is. No dedupe, no upsert.
	Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// UpsertIgnore inserts only rows whose identity (spec.Conflict) is not
	// already present, leaving existing rows untouched. Implemented as the
	// two-phase scratch protocol: materialize the candidate rows in a
	// scratch table, insert-ignore-select into the target, drop the scratch
	// table, as separate statements on the same session/transaction.
	UpsertIgnore(ctx context.Context, spec TableSpec, columns []string, rows [][]any) error

	// ReadAll returns every row of a table, restricted to the named columns.
	ReadAll(ctx context.Context, table string, columns []string) ([][]any, error)

	// SelectKeyValue returns keyColumn -> valueColumn for the whole table,
	// with keys normalized via NormalizeKey. Used for surrogate-key lookups.
	SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[string]int64, error)
}

type factory func(ctx context.Context, cfg Config) (Warehouse, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Call from an init() function in
// the backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. This is intentional, to fail fast on
//     ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Warehouse using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Warehouse, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
