package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(DefaultTables()...)
	require.NoError(t, err)
	return r
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name    string
		tables  []Table
		wantErr string
	}{
		{
			name:   "default tables compile",
			tables: DefaultTables(),
		},
		{
			name: "duplicate table rejected",
			tables: []Table{
				{Name: "t", Columns: []string{"id"}, ConflictKey: []string{"id"}},
				{Name: "t", Columns: []string{"id"}, ConflictKey: []string{"id"}},
			},
			wantErr: "registered twice",
		},
		{
			name: "bool column must be declared",
			tables: []Table{
				{Name: "t", Columns: []string{"id"}, BoolColumns: []string{"active"}},
			},
			wantErr: "not a declared column",
		},
		{
			name: "conflict key must be declared",
			tables: []Table{
				{Name: "t", Columns: []string{"id"}, ConflictKey: []string{"user_ref"}},
			},
			wantErr: "not a declared column",
		},
		{
			name: "column name must survive the rename round trip",
			tables: []Table{
				{Name: "t", Columns: []string{"tune__ref"}, ConflictKey: []string{"tune__ref"}},
			},
			wantErr: "round trip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.tables...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestToLocal(t *testing.T) {
	r := newTestRegistry(t)

	t.Run("renames keys and encodes booleans", func(t *testing.T) {
		local, err := r.ToLocal("repertoire_tune", map[string]any{
			"repertoire_ref": int64(1),
			"tune_ref":       int64(42),
			"current_due":    "2025-06-01 09:00:00",
			"one_off_due":    nil,
			"schedulable":    true,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(1), local["repertoireRef"])
		assert.Equal(t, int64(42), local["tuneRef"])
		assert.Equal(t, "2025-06-01 09:00:00", local["currentDue"])
		assert.Nil(t, local["oneOffDue"])
		assert.Equal(t, int64(1), local["schedulable"])
	})

	t.Run("missing column is a mismatch", func(t *testing.T) {
		_, err := r.ToLocal("repertoire_tune", map[string]any{
			"repertoire_ref": int64(1),
		})
		assert.ErrorIs(t, err, ErrAdapterMismatch)
	})

	t.Run("extra column is a mismatch", func(t *testing.T) {
		_, err := r.ToLocal("user_prefs", map[string]any{
			"user_ref":                "u1",
			"desired_retention":       0.9,
			"maximum_interval_days":   365,
			"lookback_days":           7,
			"timezone_offset_minutes": 0,
			"enable_fuzz":             false,
			"surprise":                1,
		})
		assert.ErrorIs(t, err, ErrAdapterMismatch)
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := r.ToLocal("nope", map[string]any{})
		assert.ErrorIs(t, err, ErrUnknownTable)
	})
}

func TestToRemote(t *testing.T) {
	r := newTestRegistry(t)

	t.Run("decodes integer booleans and normalizes timestamps", func(t *testing.T) {
		remote, err := r.ToRemote("repertoire_tune", map[string]any{
			"repertoireRef": int64(1),
			"tuneRef":       int64(42),
			"currentDue":    "2025-06-01T09:00:00Z",
			"oneOffDue":     nil,
			"schedulable":   int64(1),
		})
		require.NoError(t, err)

		assert.Equal(t, true, remote["schedulable"])
		// RFC3339 input is canonicalized into the remote format.
		assert.Equal(t, "2025-06-01 09:00:00", remote["current_due"])
		assert.Nil(t, remote["one_off_due"])
	})

	t.Run("non-boolean value in boolean column", func(t *testing.T) {
		_, err := r.ToRemote("repertoire_tune", map[string]any{
			"repertoireRef": int64(1),
			"tuneRef":       int64(42),
			"currentDue":    nil,
			"oneOffDue":     nil,
			"schedulable":   "yes",
		})
		assert.ErrorIs(t, err, ErrAdapterMismatch)
	})
}

// Round-trip identity over every registered table, for rows whose values are
// already in canonical form.
func TestRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	rows := map[string]map[string]any{
		"practice_record": {
			"id":             int64(7),
			"repertoire_ref": int64(1),
			"tune_ref":       int64(42),
			"practiced_at":   "2025-06-01 09:00:00",
			"quality":        "good",
			"goal":           "recall",
			"technique":      "fingerstyle",
			"due":            "2025-06-08 00:00:00",
			"stability":      4.2,
			"difficulty":     5.1,
			"elapsed_days":   int64(3),
			"scheduled_days": int64(7),
			"reps":           int64(5),
			"lapses":         int64(1),
			"state":          "review",
			"last_review":    "2025-06-01 09:00:00",
		},
		"repertoire_tune": {
			"repertoire_ref": int64(1),
			"tune_ref":       int64(42),
			"current_due":    "2025-06-08 00:00:00",
			"one_off_due":    nil,
			"schedulable":    true,
		},
		"daily_queue": {
			"id":                "q-1",
			"user_ref":          "u1",
			"repertoire_ref":    int64(1),
			"tune_ref":          int64(42),
			"window_start":      "2025-06-01 00:00:00",
			"window_end":        "2025-06-02 00:00:00",
			"bucket":            int64(1),
			"order_index":       int64(0),
			"due_at_generation": "2025-06-01 00:00:00",
			"completed_at":      nil,
			"active":            true,
		},
		"user_prefs": {
			"user_ref":                "u1",
			"desired_retention":       0.9,
			"maximum_interval_days":   int64(365),
			"lookback_days":           int64(7),
			"timezone_offset_minutes": int64(-300),
			"enable_fuzz":             true,
		},
	}

	for table, remoteRow := range rows {
		t.Run(table, func(t *testing.T) {
			local, err := r.ToLocal(table, remoteRow)
			require.NoError(t, err)

			back, err := r.ToRemote(table, local)
			require.NoError(t, err)

			assert.Equal(t, remoteRow, back)
		})
	}
}

func TestCaseConversion(t *testing.T) {
	tests := []struct {
		snake string
		camel string
	}{
		{snake: "id", camel: "id"},
		{snake: "tune_ref", camel: "tuneRef"},
		{snake: "due_at_generation", camel: "dueAtGeneration"},
		{snake: "one_off_due", camel: "oneOffDue"},
	}

	for _, tt := range tests {
		t.Run(tt.snake, func(t *testing.T) {
			assert.Equal(t, tt.camel, snakeToCamel(tt.snake))
			assert.Equal(t, tt.snake, camelToSnake(tt.camel))
		})
	}
}

func TestConflictKey(t *testing.T) {
	r := newTestRegistry(t)

	key, err := r.ConflictKey("practice_record")
	require.NoError(t, err)
	assert.Equal(t, []string{"tune_ref", "repertoire_ref", "practiced_at"}, key)

	_, err = r.ConflictKey("nope")
	assert.ErrorIs(t, err, ErrUnknownTable)
}
