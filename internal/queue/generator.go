package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/reelbook/reelbook/internal/outbox"
	"github.com/reelbook/reelbook/internal/practice"
)

//go:generate mockgen -source=generator.go -destination=../mocks/queue/mock_generator.go -package=mock_queue

// RepertoireReader lists the schedulable tunes the generator classifies.
type RepertoireReader interface {
	ListSchedulable(ctx context.Context, repertoireRef int64) ([]practice.RepertoireTune, error)
}

// GenerateOptions control one generation run.
type GenerateOptions struct {
	// Force supersedes an existing active generation for the day instead of
	// returning it unchanged.
	Force bool
	// IncludeBackfill admits tunes older than the lapsed floor.
	IncludeBackfill bool
}

// Generator builds, supersedes and refills daily queues.
type Generator struct {
	db         *sqlx.DB
	repertoire RepertoireReader
	outbox     outbox.Writer
	lookback   time.Duration
	tzOffset   time.Duration
	logger     *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator creates a Generator. lookbackDays separates recently lapsed
// tunes from backfill; tzOffsetMinutes shifts the calendar day boundary to
// the user's local time.
func NewGenerator(db *sqlx.DB, repertoire RepertoireReader, ob outbox.Writer, lookbackDays, tzOffsetMinutes int, opts ...Option) *Generator {
	g := &Generator{
		db:         db,
		repertoire: repertoire,
		outbox:     ob,
		lookback:   time.Duration(lookbackDays) * 24 * time.Hour,
		tzOffset:   time.Duration(tzOffsetMinutes) * time.Minute,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WindowStart returns the start of the calendar day containing sitDownAt in
// the user's local time, expressed in UTC. It identifies one day's queue.
func (g *Generator) WindowStart(sitDownAt time.Time) time.Time {
	local := sitDownAt.UTC().Add(g.tzOffset)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return start.Add(-g.tzOffset)
}

// Generate builds the queue for the day containing sitDownAt. Generation is
// idempotent per day: an existing active generation is returned unchanged
// unless opts.Force supersedes it.
func (g *Generator) Generate(ctx context.Context, userRef string, repertoireRef int64, sitDownAt time.Time, opts GenerateOptions) ([]Entry, error) {
	windowStart := g.WindowStart(sitDownAt)
	windowEnd := windowStart.AddDate(0, 0, 1)
	lapsedFloor := windowStart.Add(-g.lookback)

	existing, err := g.Active(ctx, userRef, repertoireRef, windowStart)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && !opts.Force {
		return existing, nil
	}

	tunes, err := g.repertoire.ListSchedulable(ctx, repertoireRef)
	if err != nil {
		return nil, fmt.Errorf("repertoire.ListSchedulable() > %w", err)
	}

	entries := classify(tunes, userRef, repertoireRef, windowStart, windowEnd, lapsedFloor, opts.IncludeBackfill)

	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(existing) > 0 {
		if err := g.supersede(ctx, tx, existing); err != nil {
			return nil, err
		}
	}
	if err := g.insertEntries(ctx, tx, entries); err != nil {
		// A concurrent generation may have won the partial unique index
		// race; adopt its rows instead of failing the sit-down.
		_ = tx.Rollback()
		winner, readErr := g.Active(ctx, userRef, repertoireRef, windowStart)
		if readErr == nil && len(winner) > 0 {
			g.logger.Warn("queue generation lost a concurrent race, adopting existing queue",
				"user", userRef, "repertoire", repertoireRef, "window_start", windowStart)
			return winner, nil
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx.Commit() > %w", err)
	}
	return entries, nil
}

// Refill appends up to count backfill entries to the day's active queue:
// tunes due before the lapsed floor and not already queued. Bucket 1 and 2
// entries are never replaced.
func (g *Generator) Refill(ctx context.Context, userRef string, repertoireRef int64, windowStart time.Time, count int) ([]Entry, error) {
	if count <= 0 {
		return nil, nil
	}

	existing, err := g.Active(ctx, userRef, repertoireRef, windowStart)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("no active queue for %s/%d at %s to refill",
			userRef, repertoireRef, windowStart.UTC().Format(time.RFC3339))
	}

	queued := make(map[int64]bool, len(existing))
	maxIndex := -1
	for _, e := range existing {
		queued[e.TuneRef] = true
		if e.OrderIndex > maxIndex {
			maxIndex = e.OrderIndex
		}
	}

	tunes, err := g.repertoire.ListSchedulable(ctx, repertoireRef)
	if err != nil {
		return nil, fmt.Errorf("repertoire.ListSchedulable() > %w", err)
	}

	lapsedFloor := windowStart.Add(-g.lookback)
	var candidates []practice.RepertoireTune
	for _, tune := range tunes {
		due := tune.CoalescedDue()
		if due == nil || !due.Before(lapsedFloor) || queued[tune.TuneRef] {
			continue
		}
		candidates = append(candidates, tune)
	}
	sort.Slice(candidates, func(i, j int) bool {
		di, dj := candidates[i].CoalescedDue(), candidates[j].CoalescedDue()
		if !di.Equal(*dj) {
			return di.Before(*dj)
		}
		return candidates[i].TuneRef < candidates[j].TuneRef
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}

	added := make([]Entry, 0, len(candidates))
	for i, tune := range candidates {
		added = append(added, Entry{
			ID:              uuid.NewString(),
			UserRef:         userRef,
			RepertoireRef:   repertoireRef,
			TuneRef:         tune.TuneRef,
			WindowStart:     windowStart.UTC(),
			WindowEnd:       existing[0].WindowEnd,
			Bucket:          BucketBackfill,
			OrderIndex:      maxIndex + 1 + i,
			DueAtGeneration: tune.CoalescedDue(),
			Active:          true,
		})
	}
	if len(added) == 0 {
		return nil, nil
	}

	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := g.insertEntries(ctx, tx, added); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx.Commit() > %w", err)
	}
	return added, nil
}

// Active returns the day's active queue in play order.
func (g *Generator) Active(ctx context.Context, userRef string, repertoireRef int64, windowStart time.Time) ([]Entry, error) {
	var entries []Entry
	if err := g.db.SelectContext(ctx, &entries,
		`SELECT * FROM daily_queue
		WHERE user_ref = ? AND repertoire_ref = ? AND window_start = ? AND active = 1
		ORDER BY order_index`,
		userRef, repertoireRef, windowStart.UTC()); err != nil {
		return nil, fmt.Errorf("db.SelectContext(daily_queue) > %w", err)
	}
	return entries, nil
}

// classify assigns every schedulable tune to a bucket and fixes the play
// order: today's tunes first, then recently lapsed, then backfill, each
// bucket ordered by due date. Tunes due beyond the window are not queued.
func classify(tunes []practice.RepertoireTune, userRef string, repertoireRef int64, windowStart, windowEnd, lapsedFloor time.Time, includeBackfill bool) []Entry {
	type classified struct {
		tune   practice.RepertoireTune
		bucket int
		due    time.Time
	}
	var picked []classified
	for _, tune := range tunes {
		due := tune.CoalescedDue()
		switch {
		case due == nil:
			// Never scheduled counts as due today.
			picked = append(picked, classified{tune: tune, bucket: BucketToday, due: windowStart})
		case due.Before(lapsedFloor):
			if includeBackfill {
				picked = append(picked, classified{tune: tune, bucket: BucketBackfill, due: *due})
			}
		case due.Before(windowStart):
			picked = append(picked, classified{tune: tune, bucket: BucketLapsed, due: *due})
		case due.Before(windowEnd):
			picked = append(picked, classified{tune: tune, bucket: BucketToday, due: *due})
		}
	}
	sort.Slice(picked, func(i, j int) bool {
		if picked[i].bucket != picked[j].bucket {
			return picked[i].bucket < picked[j].bucket
		}
		if !picked[i].due.Equal(picked[j].due) {
			return picked[i].due.Before(picked[j].due)
		}
		return picked[i].tune.TuneRef < picked[j].tune.TuneRef
	})

	entries := make([]Entry, 0, len(picked))
	for i, c := range picked {
		entries = append(entries, Entry{
			ID:              uuid.NewString(),
			UserRef:         userRef,
			RepertoireRef:   repertoireRef,
			TuneRef:         c.tune.TuneRef,
			WindowStart:     windowStart.UTC(),
			WindowEnd:       windowEnd.UTC(),
			Bucket:          c.bucket,
			OrderIndex:      i,
			DueAtGeneration: c.tune.CoalescedDue(),
			Active:          true,
		})
	}
	return entries
}

// supersede retires a prior generation in place. Rows are kept for
// diagnostics, never deleted.
func (g *Generator) supersede(ctx context.Context, tx *sqlx.Tx, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE daily_queue SET active = 0
		WHERE user_ref = ? AND repertoire_ref = ? AND window_start = ? AND active = 1`,
		entries[0].UserRef, entries[0].RepertoireRef, entries[0].WindowStart.UTC()); err != nil {
		return fmt.Errorf("tx.ExecContext(supersede daily_queue) > %w", err)
	}
	for i := range entries {
		entries[i].Active = false
		if err := g.outbox.Append(ctx, tx, "daily_queue", outbox.OpUpdate, entries[i].ID, entries[i]); err != nil {
			return fmt.Errorf("outbox.Append() > %w", err)
		}
	}
	return nil
}

func (g *Generator) insertEntries(ctx context.Context, tx *sqlx.Tx, entries []Entry) error {
	for _, entry := range entries {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO daily_queue
				(id, user_ref, repertoire_ref, tune_ref, window_start, window_end,
				bucket, order_index, due_at_generation, completed_at, active)
			VALUES
				(:id, :user_ref, :repertoire_ref, :tune_ref, :window_start, :window_end,
				:bucket, :order_index, :due_at_generation, :completed_at, :active)`,
			entry); err != nil {
			return fmt.Errorf("tx.NamedExecContext(insert daily_queue) > %w", err)
		}
		if err := g.outbox.Append(ctx, tx, "daily_queue", outbox.OpInsert, entry.ID, entry); err != nil {
			return fmt.Errorf("outbox.Append() > %w", err)
		}
	}
	return nil
}
