package practice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/reelbook/reelbook/internal/card"
	"github.com/reelbook/reelbook/internal/outbox"
	"github.com/reelbook/reelbook/internal/scheduling"
)

// maxTimestampProbes bounds the +1s collision probing for practiced_at.
// Exceeding it means something is systematically wrong with the clock or the
// history and the operation must fail rather than guess further.
const maxTimestampProbes = 60

// RecordInput is one rating to commit immediately.
type RecordInput struct {
	TuneRef       int64
	RepertoireRef int64
	Rating        string
	Goal          string
	Technique     string
	PracticedAt   time.Time
}

// Recorder persists single ratings end-to-end: schedule, insert the record,
// update the denormalized due date, capture the change for sync — all in one
// local transaction.
type Recorder struct {
	db        *sqlx.DB
	scheduler *scheduling.Service
	outbox    outbox.Writer
}

// NewRecorder creates a Recorder.
func NewRecorder(db *sqlx.DB, scheduler *scheduling.Service, ob outbox.Writer) *Recorder {
	return &Recorder{db: db, scheduler: scheduler, outbox: ob}
}

// Record rates one tune and commits the result immediately. practiced_at is
// normalized to whole seconds so near-simultaneous ratings from devices with
// sub-second clock differences do not produce near-duplicate history.
func (r *Recorder) Record(ctx context.Context, userRef string, in RecordInput) (*PracticeRecord, error) {
	rating, err := card.ParseRating(in.Rating)
	if err != nil {
		return nil, err
	}

	practicedAt := in.PracticedAt.UTC().Truncate(time.Second)
	goal := in.Goal
	if goal == "" {
		goal = scheduling.GoalRecall
	}

	next, err := r.scheduler.Schedule(ctx, scheduling.Request{
		UserRef:       userRef,
		TuneRef:       in.TuneRef,
		RepertoireRef: in.RepertoireRef,
		Rating:        rating,
		Goal:          goal,
		Technique:     in.Technique,
		At:            practicedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler.Schedule() > %w", err)
	}

	record := &PracticeRecord{
		RepertoireRef: in.RepertoireRef,
		TuneRef:       in.TuneRef,
		PracticedAt:   practicedAt,
		Quality:       rating.String(),
		Goal:          goal,
		Technique:     in.Technique,
	}
	record.setCard(next)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	record.PracticedAt, err = freeTimestamp(ctx, tx, in.TuneRef, in.RepertoireRef, practicedAt)
	if err != nil {
		return nil, err
	}

	if err := insertRecord(ctx, tx, record); err != nil {
		return nil, err
	}
	if err := projectDue(ctx, tx, record.RepertoireRef, record.TuneRef, record.Due); err != nil {
		return nil, err
	}
	if err := r.outbox.Append(ctx, tx, "practice_record", outbox.OpInsert, recordKey(record), record); err != nil {
		return nil, fmt.Errorf("outbox.Append() > %w", err)
	}
	if err := captureProjection(ctx, tx, r.outbox, record.RepertoireRef, record.TuneRef); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx.Commit() > %w", err)
	}
	return record, nil
}

// UndoLast deletes the most recent record for the tune and reverts the
// denormalized due date to the record before it, or clears it if none.
func (r *Recorder) UndoLast(ctx context.Context, tuneRef, repertoireRef int64) (*PracticeRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	last, err := latestRecord(ctx, tx, tuneRef, repertoireRef)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, fmt.Errorf("no practice record to undo for tune %d in repertoire %d", tuneRef, repertoireRef)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM practice_record WHERE id = ?`, last.ID); err != nil {
		return nil, fmt.Errorf("tx.ExecContext(delete practice_record) > %w", err)
	}

	prior, err := latestRecord(ctx, tx, tuneRef, repertoireRef)
	if err != nil {
		return nil, err
	}
	var priorDue *time.Time
	if prior != nil {
		priorDue = &prior.Due
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE repertoire_tune SET current_due = ?
		WHERE repertoire_ref = ? AND tune_ref = ?`,
		priorDue, repertoireRef, tuneRef); err != nil {
		return nil, fmt.Errorf("tx.ExecContext(revert current_due) > %w", err)
	}

	if err := r.outbox.Append(ctx, tx, "practice_record", outbox.OpDelete, recordKey(last), last); err != nil {
		return nil, fmt.Errorf("outbox.Append() > %w", err)
	}
	if err := captureProjection(ctx, tx, r.outbox, repertoireRef, tuneRef); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx.Commit() > %w", err)
	}
	return last, nil
}

// freeTimestamp probes for a practiced_at not already used by the tune's
// history, advancing one second per collision up to maxTimestampProbes.
func freeTimestamp(ctx context.Context, tx *sqlx.Tx, tuneRef, repertoireRef int64, at time.Time) (time.Time, error) {
	candidate := at
	for i := 0; i < maxTimestampProbes; i++ {
		var count int
		if err := tx.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM practice_record
			WHERE tune_ref = ? AND repertoire_ref = ? AND practiced_at = ?`,
			tuneRef, repertoireRef, candidate); err != nil {
			return time.Time{}, fmt.Errorf("tx.GetContext(count practice_record) > %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = candidate.Add(time.Second)
	}
	return time.Time{}, fmt.Errorf("%w: no collision-free timestamp for tune %d in repertoire %d after %d probes",
		ErrIntegrity, tuneRef, repertoireRef, maxTimestampProbes)
}

// insertRecord inserts the record and fills in its generated ID.
func insertRecord(ctx context.Context, tx *sqlx.Tx, record *PracticeRecord) error {
	result, err := tx.NamedExecContext(ctx,
		`INSERT INTO practice_record
			(repertoire_ref, tune_ref, practiced_at, quality, goal, technique,
			due, stability, difficulty, elapsed_days, scheduled_days, reps, lapses, state, last_review)
		VALUES
			(:repertoire_ref, :tune_ref, :practiced_at, :quality, :goal, :technique,
			:due, :stability, :difficulty, :elapsed_days, :scheduled_days, :reps, :lapses, :state, :last_review)`,
		record)
	if err != nil {
		return fmt.Errorf("tx.NamedExecContext(insert practice_record) > %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("result.LastInsertId() > %w", err)
	}
	record.ID = id
	return nil
}

// projectDue writes the new due date into the denormalized projection,
// clearing any one-off override, creating the row if the tune was never
// projected before.
func projectDue(ctx context.Context, tx *sqlx.Tx, repertoireRef, tuneRef int64, due time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO repertoire_tune (repertoire_ref, tune_ref, current_due, one_off_due)
		VALUES (?, ?, ?, NULL)
		ON CONFLICT (repertoire_ref, tune_ref) DO UPDATE SET
			current_due = excluded.current_due,
			one_off_due = NULL`,
		repertoireRef, tuneRef, due); err != nil {
		return fmt.Errorf("tx.ExecContext(project due) > %w", err)
	}
	return nil
}

// captureProjection snapshots the repertoire_tune row inside the transaction
// and records it on the outbox, so other devices pick up the due-date change
// and not just the practice record behind it. A missing row is a no-op: there
// is no projection to announce.
func captureProjection(ctx context.Context, tx *sqlx.Tx, ob outbox.Writer, repertoireRef, tuneRef int64) error {
	var row RepertoireTune
	err := tx.GetContext(ctx, &row,
		`SELECT * FROM repertoire_tune WHERE repertoire_ref = ? AND tune_ref = ?`,
		repertoireRef, tuneRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tx.GetContext(repertoire_tune) > %w", err)
	}
	if err := ob.Append(ctx, tx, "repertoire_tune", outbox.OpUpdate, projectionKey(repertoireRef, tuneRef), row); err != nil {
		return fmt.Errorf("outbox.Append() > %w", err)
	}
	return nil
}

func projectionKey(repertoireRef, tuneRef int64) string {
	return fmt.Sprintf("%d/%d", repertoireRef, tuneRef)
}

func recordKey(record *PracticeRecord) string {
	return fmt.Sprintf("%d/%d/%s", record.TuneRef, record.RepertoireRef,
		record.PracticedAt.UTC().Format(time.RFC3339))
}
