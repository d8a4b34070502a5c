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
)

//go:generate mockgen -source=repository.go -destination=../mocks/practice/mock_repository.go -package=mock_practice

// Repository defines read and staging operations on practice storage. The
// transactional write paths live on Recorder and Committer, which manage
// their own transaction boundaries.
type Repository interface {
	LatestRecord(ctx context.Context, tuneRef, repertoireRef int64) (*PracticeRecord, error)
	LatestCard(ctx context.Context, tuneRef, repertoireRef int64) (*card.Card, error)
	ListSchedulable(ctx context.Context, repertoireRef int64) ([]RepertoireTune, error)
	UpsertStaged(ctx context.Context, staged StagedEvaluation) error
	ListStaged(ctx context.Context, userRef string, repertoireRef int64) ([]StagedEvaluation, error)
	DeleteStaged(ctx context.Context, userRef string, tuneRef, repertoireRef int64) error
	SetOneOffDue(ctx context.Context, repertoireRef, tuneRef int64, due *time.Time) error
}

// DBRepository implements Repository against the local store.
type DBRepository struct {
	db     *sqlx.DB
	outbox outbox.Writer
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB, ob outbox.Writer) *DBRepository {
	return &DBRepository{db: db, outbox: ob}
}

// LatestRecord returns the most recent practice record for a tune in a
// repertoire, or nil if the tune has never been practiced there.
func (r *DBRepository) LatestRecord(ctx context.Context, tuneRef, repertoireRef int64) (*PracticeRecord, error) {
	return latestRecord(ctx, r.db, tuneRef, repertoireRef)
}

// latestRecord runs against either the pool or an open transaction.
func latestRecord(ctx context.Context, q sqlx.QueryerContext, tuneRef, repertoireRef int64) (*PracticeRecord, error) {
	var record PracticeRecord
	err := sqlx.GetContext(ctx, q, &record,
		`SELECT * FROM practice_record
		WHERE tune_ref = ? AND repertoire_ref = ?
		ORDER BY practiced_at DESC, id DESC LIMIT 1`,
		tuneRef, repertoireRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlx.GetContext(latest practice_record) > %w", err)
	}
	return &record, nil
}

// LatestCard returns the memory state embedded in the most recent record.
// It implements the scheduling service's history port.
func (r *DBRepository) LatestCard(ctx context.Context, tuneRef, repertoireRef int64) (*card.Card, error) {
	record, err := r.LatestRecord(ctx, tuneRef, repertoireRef)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	c, err := record.Card()
	if err != nil {
		return nil, fmt.Errorf("record.Card() > %w", err)
	}
	return &c, nil
}

// ListSchedulable returns every schedulable tune in the repertoire with its
// denormalized due info.
func (r *DBRepository) ListSchedulable(ctx context.Context, repertoireRef int64) ([]RepertoireTune, error) {
	var tunes []RepertoireTune
	if err := r.db.SelectContext(ctx, &tunes,
		`SELECT * FROM repertoire_tune
		WHERE repertoire_ref = ? AND schedulable = 1
		ORDER BY tune_ref`,
		repertoireRef); err != nil {
		return nil, fmt.Errorf("db.SelectContext(repertoire_tune) > %w", err)
	}
	return tunes, nil
}

// UpsertStaged creates or replaces the draft rating for the staged key.
func (r *DBRepository) UpsertStaged(ctx context.Context, staged StagedEvaluation) error {
	if _, err := r.db.NamedExecContext(ctx,
		`INSERT INTO staged_evaluation
			(user_ref, tune_ref, repertoire_ref, practiced_at, quality, goal, technique, notes)
		VALUES (:user_ref, :tune_ref, :repertoire_ref, :practiced_at, :quality, :goal, :technique, :notes)
		ON CONFLICT (user_ref, tune_ref, repertoire_ref) DO UPDATE SET
			practiced_at = excluded.practiced_at,
			quality = excluded.quality,
			goal = excluded.goal,
			technique = excluded.technique,
			notes = excluded.notes`,
		staged); err != nil {
		return fmt.Errorf("db.NamedExecContext(upsert staged_evaluation) > %w", err)
	}
	return nil
}

// ListStaged returns all draft ratings for the user and repertoire.
func (r *DBRepository) ListStaged(ctx context.Context, userRef string, repertoireRef int64) ([]StagedEvaluation, error) {
	var staged []StagedEvaluation
	if err := r.db.SelectContext(ctx, &staged,
		`SELECT * FROM staged_evaluation
		WHERE user_ref = ? AND repertoire_ref = ?
		ORDER BY tune_ref`,
		userRef, repertoireRef); err != nil {
		return nil, fmt.Errorf("db.SelectContext(staged_evaluation) > %w", err)
	}
	return staged, nil
}

// DeleteStaged removes one draft rating outside the commit path, e.g. when
// the user discards it.
func (r *DBRepository) DeleteStaged(ctx context.Context, userRef string, tuneRef, repertoireRef int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM staged_evaluation
		WHERE user_ref = ? AND tune_ref = ? AND repertoire_ref = ?`,
		userRef, tuneRef, repertoireRef); err != nil {
		return fmt.Errorf("db.ExecContext(delete staged_evaluation) > %w", err)
	}
	return nil
}

// SetOneOffDue sets or clears the manual one-off override for a tune. The
// override is part of the synced projection, so the write and its outbox
// capture share one transaction.
func (r *DBRepository) SetOneOffDue(ctx context.Context, repertoireRef, tuneRef int64, due *time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTxx() > %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE repertoire_tune SET one_off_due = ?
		WHERE repertoire_ref = ? AND tune_ref = ?`,
		due, repertoireRef, tuneRef); err != nil {
		return fmt.Errorf("tx.ExecContext(set one_off_due) > %w", err)
	}
	if err := captureProjection(ctx, tx, r.outbox, repertoireRef, tuneRef); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit() > %w", err)
	}
	return nil
}
