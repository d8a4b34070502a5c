// Package queue builds the daily practice queue: the ordered set of tunes a
// user should play in one sitting, bucketed by how overdue each tune is.
package queue

import (
	"time"
)

// Buckets classify a tune by its coalesced due date relative to the
// generation windows.
const (
	BucketToday    = 1
	BucketLapsed   = 2
	BucketBackfill = 3
)

// Entry is one tune in a generated daily queue. Entries are append-only:
// a superseded generation keeps its rows with Active false.
type Entry struct {
	ID              string     `db:"id" json:"id"`
	UserRef         string     `db:"user_ref" json:"userRef"`
	RepertoireRef   int64      `db:"repertoire_ref" json:"repertoireRef"`
	TuneRef         int64      `db:"tune_ref" json:"tuneRef"`
	WindowStart     time.Time  `db:"window_start" json:"windowStart"`
	WindowEnd       time.Time  `db:"window_end" json:"windowEnd"`
	Bucket          int        `db:"bucket" json:"bucket"`
	OrderIndex      int        `db:"order_index" json:"orderIndex"`
	DueAtGeneration *time.Time `db:"due_at_generation" json:"dueAtGeneration"`
	CompletedAt     *time.Time `db:"completed_at" json:"completedAt"`
	Active          bool       `db:"active" json:"active"`
}
