package practice_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelbook/reelbook/internal/card"
	"github.com/reelbook/reelbook/internal/outbox"
	"github.com/reelbook/reelbook/internal/practice"
	"github.com/reelbook/reelbook/internal/testutil"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mockDB.Close()
	})
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestDBRepositoryLatestRecord(t *testing.T) {
	practicedAt := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	due := time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC)

	recordColumns := []string{
		"id", "repertoire_ref", "tune_ref", "practiced_at", "quality",
		"due", "stability", "reps", "state",
	}

	for name, tc := range map[string]struct {
		setup    func(mock sqlmock.Sqlmock)
		expected *practice.PracticeRecord
		wantErr  string
	}{
		"most recent record returned": {
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT \* FROM practice_record`).
					WithArgs(int64(7), int64(1)).
					WillReturnRows(sqlmock.NewRows(recordColumns).
						AddRow(int64(12), int64(1), int64(7), practicedAt, "good",
							due, 3.2, 4, "review"))
			},
			expected: &practice.PracticeRecord{
				ID:            12,
				RepertoireRef: 1,
				TuneRef:       7,
				PracticedAt:   practicedAt,
				Quality:       "good",
				Due:           due,
				Stability:     3.2,
				Reps:          4,
				State:         "review",
			},
		},
		"never practiced": {
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT \* FROM practice_record`).
					WithArgs(int64(7), int64(1)).
					WillReturnError(sql.ErrNoRows)
			},
			expected: nil,
		},
		"query fails": {
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT \* FROM practice_record`).
					WithArgs(int64(7), int64(1)).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: "sqlx.GetContext(latest practice_record)",
		},
	} {
		t.Run(name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tc.setup(mock)

			repo := practice.NewDBRepository(db, outbox.NewDBOutbox(db))
			record, err := repo.LatestRecord(context.Background(), 7, 1)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, record)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepositoryLatestCard(t *testing.T) {
	db, mock := newMockDB(t)
	due := time.Date(2025, 1, 4, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM practice_record`).
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "due", "stability", "reps", "state"}).
			AddRow(int64(12), due, 3.2, 4, "review"))

	repo := practice.NewDBRepository(db, outbox.NewDBOutbox(db))
	c, err := repo.LatestCard(context.Background(), 7, 1)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, card.StateReview, c.State)
	assert.Equal(t, due, c.Due)
	assert.Equal(t, 4, c.Reps)
}

func TestDBRepositoryLatestCardBadState(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM practice_record`).
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "state"}).
			AddRow(int64(12), "dormant"))

	repo := practice.NewDBRepository(db, outbox.NewDBOutbox(db))
	_, err := repo.LatestCard(context.Background(), 7, 1)
	require.ErrorContains(t, err, "record.Card()")
}

func TestDBRepositoryStagedLifecycle(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := practice.NewDBRepository(db, outbox.NewDBOutbox(db))
	ctx := context.Background()

	practicedAt := time.Date(2025, 1, 2, 9, 30, 0, 0, time.UTC)
	quality := "hard"
	require.NoError(t, repo.UpsertStaged(ctx, practice.StagedEvaluation{
		UserRef:       "alice",
		TuneRef:       7,
		RepertoireRef: 1,
		PracticedAt:   &practicedAt,
		Quality:       &quality,
		Goal:          "fluency",
		Notes:         "rushed the B part",
	}))

	staged, err := repo.ListStaged(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, "fluency", staged[0].Goal)
	require.NotNil(t, staged[0].Quality)
	assert.Equal(t, "hard", *staged[0].Quality)

	// Re-rating the same tune replaces the draft, not duplicates it.
	better := "good"
	require.NoError(t, repo.UpsertStaged(ctx, practice.StagedEvaluation{
		UserRef:       "alice",
		TuneRef:       7,
		RepertoireRef: 1,
		PracticedAt:   &practicedAt,
		Quality:       &better,
		Goal:          "fluency",
	}))
	staged, err = repo.ListStaged(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, "good", *staged[0].Quality)
	assert.Empty(t, staged[0].Notes)

	require.NoError(t, repo.DeleteStaged(ctx, "alice", 7, 1))
	staged, err = repo.ListStaged(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestDBRepositoryListSchedulable(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := practice.NewDBRepository(db, outbox.NewDBOutbox(db))
	ctx := context.Background()

	due := time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC)
	_, err := db.Exec(
		`INSERT INTO repertoire_tune (repertoire_ref, tune_ref, current_due, schedulable)
		VALUES (1, 7, ?, 1), (1, 8, NULL, 1), (1, 9, ?, 0)`,
		due, due)
	require.NoError(t, err)

	tunes, err := repo.ListSchedulable(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tunes, 2)
	assert.Equal(t, int64(7), tunes[0].TuneRef)
	assert.Equal(t, int64(8), tunes[1].TuneRef)
	assert.Nil(t, tunes[1].CoalescedDue())

	override := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetOneOffDue(ctx, 1, 7, &override))
	tunes, err = repo.ListSchedulable(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, tunes[0].CoalescedDue())
	assert.True(t, tunes[0].CoalescedDue().Equal(override))

	require.NoError(t, repo.SetOneOffDue(ctx, 1, 7, nil))
	tunes, err = repo.ListSchedulable(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, tunes[0].CoalescedDue())
	assert.True(t, tunes[0].CoalescedDue().Equal(due))
}

func TestDBRepositorySetOneOffDueCapturesChange(t *testing.T) {
	db := testutil.OpenTestDB(t)
	ob := outbox.NewDBOutbox(db)
	repo := practice.NewDBRepository(db, ob)
	ctx := context.Background()

	due := time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC)
	_, err := db.Exec(
		`INSERT INTO repertoire_tune (repertoire_ref, tune_ref, current_due, schedulable)
		VALUES (1, 7, ?, 1)`, due)
	require.NoError(t, err)

	override := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetOneOffDue(ctx, 1, 7, &override))

	// The override is part of the synced projection, so setting it alone
	// must leave a change for the next drain.
	changes, err := ob.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "repertoire_tune", changes[0].TableName)
	assert.Equal(t, outbox.OpUpdate, changes[0].Op)
	assert.Equal(t, "1/7", changes[0].RowKey)
	var row practice.RepertoireTune
	require.NoError(t, json.Unmarshal(changes[0].Payload, &row))
	require.NotNil(t, row.OneOffDue)
	assert.True(t, row.OneOffDue.Equal(override))

	require.NoError(t, repo.SetOneOffDue(ctx, 1, 7, nil))
	changes, err = ob.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, changes, 2)
}
