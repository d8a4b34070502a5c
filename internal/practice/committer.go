package practice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/reelbook/reelbook/internal/card"
	"github.com/reelbook/reelbook/internal/outbox"
	"github.com/reelbook/reelbook/internal/scheduling"
)

// Committer turns a session's staged evaluations into durable history in one
// atomic transaction. Partial application would leave duplicate or orphaned
// queue entries behind, so every step is verified and any failure rolls the
// whole batch back.
type Committer struct {
	db        *sqlx.DB
	scheduler *scheduling.Service
	outbox    outbox.Writer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCommitter creates a Committer.
func NewCommitter(db *sqlx.DB, scheduler *scheduling.Service, ob outbox.Writer) *Committer {
	return &Committer{
		db:        db,
		scheduler: scheduler,
		outbox:    ob,
		locks:     make(map[string]*sync.Mutex),
	}
}

// scopeLock returns the mutex serializing commits for one (user, repertoire)
// scope. Commits for different repertoires proceed in parallel.
func (c *Committer) scopeLock(userRef string, repertoireRef int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := fmt.Sprintf("%s/%d", userRef, repertoireRef)
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

// CommitResult summarizes one committed batch.
type CommitResult struct {
	Committed int
	Skipped   int
}

// queueMember identifies an active queue entry a staged evaluation may
// complete.
type queueMember struct {
	TuneRef     int64      `db:"tune_ref"`
	CompletedAt *time.Time `db:"completed_at"`
}

// Commit reads every staged evaluation for the scope, intersects it with the
// active queue window being submitted, and persists the surviving ratings as
// practice records. Stale or foreign staged evaluations are skipped, not
// errors. On any failure nothing is committed and the staged batch remains
// intact and safe to retry.
func (c *Committer) Commit(ctx context.Context, userRef string, repertoireRef int64, windowStart time.Time) (CommitResult, error) {
	lock := c.scopeLock(userRef, repertoireRef)
	lock.Lock()
	defer lock.Unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return CommitResult{}, fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var staged []StagedEvaluation
	if err := tx.SelectContext(ctx, &staged,
		`SELECT * FROM staged_evaluation
		WHERE user_ref = ? AND repertoire_ref = ? AND practiced_at IS NOT NULL
		ORDER BY practiced_at, tune_ref`,
		userRef, repertoireRef); err != nil {
		return CommitResult{}, fmt.Errorf("tx.SelectContext(staged_evaluation) > %w", err)
	}

	var members []queueMember
	if err := tx.SelectContext(ctx, &members,
		`SELECT tune_ref, completed_at FROM daily_queue
		WHERE user_ref = ? AND repertoire_ref = ? AND window_start = ? AND active = 1`,
		userRef, repertoireRef, windowStart.UTC()); err != nil {
		return CommitResult{}, fmt.Errorf("tx.SelectContext(daily_queue) > %w", err)
	}
	inWindow := make(map[int64]bool, len(members))
	for _, m := range members {
		inWindow[m.TuneRef] = true
	}

	var result CommitResult
	for _, ev := range staged {
		if !inWindow[ev.TuneRef] {
			result.Skipped++
			continue
		}
		if err := c.commitOne(ctx, tx, userRef, repertoireRef, windowStart, ev); err != nil {
			return CommitResult{}, err
		}
		result.Committed++
	}

	// The commit makes the whole batch durable at once; synchronous=FULL on
	// the local store flushes it before Commit returns.
	if err := tx.Commit(); err != nil {
		return CommitResult{}, fmt.Errorf("tx.Commit() > %w", err)
	}
	return result, nil
}

// commitOne persists one surviving staged evaluation: record, projection,
// stage cleanup and queue completion, each step verified before moving on.
func (c *Committer) commitOne(ctx context.Context, tx *sqlx.Tx, userRef string, repertoireRef int64, windowStart time.Time, ev StagedEvaluation) error {
	if ev.Quality == nil {
		return fmt.Errorf("%w: staged evaluation for tune %d has a timestamp but no rating", ErrIntegrity, ev.TuneRef)
	}
	rating, err := card.ParseRating(*ev.Quality)
	if err != nil {
		return fmt.Errorf("card.ParseRating() > %w", err)
	}

	practicedAt, err := freeTimestamp(ctx, tx, ev.TuneRef, repertoireRef,
		ev.PracticedAt.UTC().Truncate(time.Second))
	if err != nil {
		return err
	}

	prior, err := latestRecord(ctx, tx, ev.TuneRef, repertoireRef)
	if err != nil {
		return err
	}
	var priorCard *card.Card
	if prior != nil {
		pc, err := prior.Card()
		if err != nil {
			return fmt.Errorf("prior.Card() > %w", err)
		}
		priorCard = &pc
	}

	goal := ev.Goal
	if goal == "" {
		goal = scheduling.GoalRecall
	}
	next, err := c.scheduler.ScheduleWithPrior(ctx, scheduling.Request{
		UserRef:       userRef,
		TuneRef:       ev.TuneRef,
		RepertoireRef: repertoireRef,
		Rating:        rating,
		Goal:          goal,
		Technique:     ev.Technique,
		At:            practicedAt,
	}, priorCard)
	if err != nil {
		return fmt.Errorf("scheduler.ScheduleWithPrior() > %w", err)
	}

	record := &PracticeRecord{
		RepertoireRef: repertoireRef,
		TuneRef:       ev.TuneRef,
		PracticedAt:   practicedAt,
		Quality:       rating.String(),
		Goal:          goal,
		Technique:     ev.Technique,
	}
	record.setCard(next)

	if err := insertRecord(ctx, tx, record); err != nil {
		return err
	}
	if err := projectDue(ctx, tx, repertoireRef, ev.TuneRef, record.Due); err != nil {
		return err
	}

	deleted, err := tx.ExecContext(ctx,
		`DELETE FROM staged_evaluation
		WHERE user_ref = ? AND tune_ref = ? AND repertoire_ref = ?`,
		userRef, ev.TuneRef, repertoireRef)
	if err != nil {
		return fmt.Errorf("tx.ExecContext(delete staged_evaluation) > %w", err)
	}
	if n, err := deleted.RowsAffected(); err != nil {
		return fmt.Errorf("deleted.RowsAffected() > %w", err)
	} else if n != 1 {
		return fmt.Errorf("%w: staged evaluation for tune %d vanished mid-commit", ErrIntegrity, ev.TuneRef)
	}

	stamped, err := tx.ExecContext(ctx,
		`UPDATE daily_queue SET completed_at = ?
		WHERE user_ref = ? AND repertoire_ref = ? AND tune_ref = ?
			AND window_start = ? AND active = 1`,
		practicedAt, userRef, repertoireRef, ev.TuneRef, windowStart.UTC())
	if err != nil {
		return fmt.Errorf("tx.ExecContext(stamp daily_queue) > %w", err)
	}
	// A silent no-op here means the tune would reappear in tomorrow's queue
	// unexplained; treat it as fatal, not a warning.
	if n, err := stamped.RowsAffected(); err != nil {
		return fmt.Errorf("stamped.RowsAffected() > %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: completion stamp for tune %d did not persist", ErrIntegrity, ev.TuneRef)
	}

	if err := c.outbox.Append(ctx, tx, "practice_record", outbox.OpInsert, recordKey(record), record); err != nil {
		return fmt.Errorf("outbox.Append() > %w", err)
	}
	if err := captureProjection(ctx, tx, c.outbox, repertoireRef, ev.TuneRef); err != nil {
		return err
	}
	return nil
}
