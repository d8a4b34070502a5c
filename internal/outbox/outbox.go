// Package outbox captures row changes for outbound sync. Writers append a
// change inside the same local transaction as the row write, so the capture
// is exactly as durable as the change itself. The transport layer drains the
// log when connectivity returns; drained rows are flagged, never deleted.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Op is the kind of row change captured.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one captured row change, in the local representation. The
// adapter layer converts Payload to the remote representation at drain time.
type Change struct {
	ID         string     `db:"id"`
	TableName  string     `db:"table_name"`
	Op         Op         `db:"op"`
	RowKey     string     `db:"row_key"`
	Payload    []byte     `db:"payload"`
	RecordedAt time.Time  `db:"recorded_at"`
	DrainedAt  *time.Time `db:"drained_at"`
}

// Writer appends changes to the outbox.
type Writer interface {
	Append(ctx context.Context, tx *sqlx.Tx, table string, op Op, rowKey string, row any) error
}

// Reader drains pending changes for the transport layer.
type Reader interface {
	Pending(ctx context.Context, limit int) ([]Change, error)
	MarkDrained(ctx context.Context, ids []string) error
}

// DBOutbox implements Writer and Reader against the local store.
type DBOutbox struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewDBOutbox creates a DBOutbox.
func NewDBOutbox(db *sqlx.DB) *DBOutbox {
	return &DBOutbox{db: db, now: time.Now}
}

// Append serializes the row and records the change within the caller's
// transaction. The entry becomes visible to Pending only when that
// transaction commits.
func (o *DBOutbox) Append(ctx context.Context, tx *sqlx.Tx, table string, op Op, rowKey string, row any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("json.Marshal() > %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_change (id, table_name, op, row_key, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), table, string(op), rowKey, payload, o.now().UTC()); err != nil {
		return fmt.Errorf("tx.ExecContext(insert outbox_change) > %w", err)
	}
	return nil
}

// Pending returns up to limit undrained changes in capture order.
func (o *DBOutbox) Pending(ctx context.Context, limit int) ([]Change, error) {
	var changes []Change
	if err := o.db.SelectContext(ctx, &changes,
		`SELECT * FROM outbox_change WHERE drained_at IS NULL ORDER BY recorded_at, id LIMIT ?`,
		limit); err != nil {
		return nil, fmt.Errorf("db.SelectContext(outbox_change) > %w", err)
	}
	return changes, nil
}

// MarkDrained stamps the given changes as handed to the transport.
func (o *DBOutbox) MarkDrained(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`UPDATE outbox_change SET drained_at = ? WHERE id IN (?) AND drained_at IS NULL`,
		o.now().UTC(), ids)
	if err != nil {
		return fmt.Errorf("sqlx.In() > %w", err)
	}
	if _, err := o.db.ExecContext(ctx, o.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("db.ExecContext(mark drained) > %w", err)
	}
	return nil
}
