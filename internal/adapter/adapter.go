// Package adapter transforms rows between the local store's representation
// (camelCase keys, integer booleans) and the remote store's representation
// (snake_case keys, native booleans). Adapters are pure and perform no I/O;
// the transport layer applies them on each side of a sync.
package adapter

import (
	"errors"
	"fmt"
)

// ErrAdapterMismatch reports a row that does not carry every column
// registered for its table. The row is rejected; other rows are unaffected.
var ErrAdapterMismatch = errors.New("row does not match registered columns")

// ErrUnknownTable reports a table name that was never registered.
var ErrUnknownTable = errors.New("table not registered")

// Normalizer canonicalizes remote-bound values after renaming and boolean
// conversion, e.g. rewriting timestamps into the remote's string format.
type Normalizer func(row map[string]any) error

// Table declares the sync contract for one table: its remote (snake_case)
// column names, which of them are boolean-typed, the natural key the
// transport uses for UPSERT decisions, and an optional value normalizer.
type Table struct {
	Name        string
	Columns     []string
	BoolColumns []string
	ConflictKey []string
	Normalize   Normalizer
}

// compiled is a Table with precomputed rename maps.
type compiled struct {
	table         Table
	remoteToLocal map[string]string
	localToRemote map[string]string
	boolColumns   map[string]bool
}

// Registry holds the compiled adapters for every registered table. It is
// immutable after construction and safe for concurrent readers.
type Registry struct {
	tables map[string]*compiled
}

// NewRegistry compiles the given table declarations. Column names must be
// snake_case and unique per table; boolean and conflict-key columns must be
// declared columns.
func NewRegistry(tables ...Table) (*Registry, error) {
	r := &Registry{tables: make(map[string]*compiled, len(tables))}
	for _, t := range tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table with empty name")
		}
		if _, ok := r.tables[t.Name]; ok {
			return nil, fmt.Errorf("table %q registered twice", t.Name)
		}
		c, err := compile(t)
		if err != nil {
			return nil, fmt.Errorf("compile(%s) > %w", t.Name, err)
		}
		r.tables[t.Name] = c
	}
	return r, nil
}

func compile(t Table) (*compiled, error) {
	c := &compiled{
		table:         t,
		remoteToLocal: make(map[string]string, len(t.Columns)),
		localToRemote: make(map[string]string, len(t.Columns)),
		boolColumns:   make(map[string]bool, len(t.BoolColumns)),
	}
	for _, col := range t.Columns {
		local := snakeToCamel(col)
		if _, ok := c.remoteToLocal[col]; ok {
			return nil, fmt.Errorf("column %q declared twice", col)
		}
		if prev, ok := c.localToRemote[local]; ok {
			return nil, fmt.Errorf("columns %q and %q map to the same local key %q", prev, col, local)
		}
		// Reject names the rename cannot round-trip, e.g. doubled or
		// trailing underscores; a lossy mapping would silently corrupt
		// the sync payload.
		if camelToSnake(local) != col {
			return nil, fmt.Errorf("column %q does not survive the rename round trip", col)
		}
		c.remoteToLocal[col] = local
		c.localToRemote[local] = col
	}
	for _, col := range t.BoolColumns {
		if _, ok := c.remoteToLocal[col]; !ok {
			return nil, fmt.Errorf("boolean column %q is not a declared column", col)
		}
		c.boolColumns[col] = true
	}
	for _, col := range t.ConflictKey {
		if _, ok := c.remoteToLocal[col]; !ok {
			return nil, fmt.Errorf("conflict key column %q is not a declared column", col)
		}
	}
	return c, nil
}

// ConflictKey returns the column set the transport should use to decide
// UPSERT semantics for the table.
func (r *Registry) ConflictKey(table string) ([]string, error) {
	c, ok := r.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return c.table.ConflictKey, nil
}

// ToLocal converts a remote row into its local representation: snake_case
// keys become camelCase and boolean columns become 0/1 integers.
func (r *Registry) ToLocal(table string, remoteRow map[string]any) (map[string]any, error) {
	c, ok := r.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	local := make(map[string]any, len(c.table.Columns))
	for _, col := range c.table.Columns {
		v, ok := remoteRow[col]
		if !ok {
			return nil, fmt.Errorf("%w: table %s missing column %q", ErrAdapterMismatch, table, col)
		}
		if c.boolColumns[col] {
			b, err := toBoolInt(v)
			if err != nil {
				return nil, fmt.Errorf("%w: table %s column %q: %v", ErrAdapterMismatch, table, col, err)
			}
			v = b
		}
		local[c.remoteToLocal[col]] = v
	}
	if len(remoteRow) != len(c.table.Columns) {
		return nil, fmt.Errorf("%w: table %s has %d unregistered columns", ErrAdapterMismatch, table, len(remoteRow)-len(c.table.Columns))
	}
	return local, nil
}

// ToRemote converts a local row into its remote representation and then runs
// the table's normalizer, if any.
func (r *Registry) ToRemote(table string, localRow map[string]any) (map[string]any, error) {
	c, ok := r.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	remote := make(map[string]any, len(c.table.Columns))
	for _, col := range c.table.Columns {
		localKey := c.remoteToLocal[col]
		v, ok := localRow[localKey]
		if !ok {
			return nil, fmt.Errorf("%w: table %s missing column %q", ErrAdapterMismatch, table, localKey)
		}
		if c.boolColumns[col] {
			b, err := toBool(v)
			if err != nil {
				return nil, fmt.Errorf("%w: table %s column %q: %v", ErrAdapterMismatch, table, localKey, err)
			}
			v = b
		}
		remote[col] = v
	}
	if len(localRow) != len(c.table.Columns) {
		return nil, fmt.Errorf("%w: table %s has %d unregistered columns", ErrAdapterMismatch, table, len(localRow)-len(c.table.Columns))
	}

	if c.table.Normalize != nil {
		if err := c.table.Normalize(remote); err != nil {
			return nil, fmt.Errorf("normalize(%s) > %w", table, err)
		}
	}
	return remote, nil
}

// toBool accepts the local 0/1 integer encodings and native booleans.
func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case int:
		return b != 0, nil
	case int64:
		return b != 0, nil
	case float64:
		return b != 0, nil
	default:
		return false, fmt.Errorf("value %v (%T) is not boolean-encodable", v, v)
	}
}

// toBoolInt converts a remote boolean into the local 0/1 integer encoding.
func toBoolInt(v any) (int64, error) {
	b, err := toBool(v)
	if err != nil {
		return 0, err
	}
	if b {
		return 1, nil
	}
	return 0, nil
}
