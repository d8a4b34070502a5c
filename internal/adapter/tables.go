package adapter

import (
	"fmt"
	"time"
)

// remoteTimeLayout is the canonical timestamp string format in the remote
// store. Local rows may carry time.Time values or already-formatted strings;
// the normalizer rewrites both into this one format so multi-device writes
// compare equal.
const remoteTimeLayout = "2006-01-02 15:04:05"

// NormalizeTimestamps returns a Normalizer that canonicalizes the named
// columns. Nil values pass through untouched.
func NormalizeTimestamps(columns ...string) Normalizer {
	return func(row map[string]any) error {
		for _, col := range columns {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			switch t := v.(type) {
			case time.Time:
				row[col] = t.UTC().Format(remoteTimeLayout)
			case string:
				parsed, err := parseRemoteTime(t)
				if err != nil {
					return fmt.Errorf("column %q: %w", col, err)
				}
				row[col] = parsed.UTC().Format(remoteTimeLayout)
			default:
				return fmt.Errorf("column %q: value %v (%T) is not a timestamp", col, v, v)
			}
		}
		return nil
	}
}

func parseRemoteTime(s string) (time.Time, error) {
	for _, layout := range []string{remoteTimeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// DefaultTables declares the sync contract for every table this engine
// exchanges with the remote store.
func DefaultTables() []Table {
	return []Table{
		{
			Name: "practice_record",
			Columns: []string{
				"id", "repertoire_ref", "tune_ref", "practiced_at", "quality",
				"goal", "technique", "due", "stability", "difficulty",
				"elapsed_days", "scheduled_days", "reps", "lapses", "state",
				"last_review",
			},
			ConflictKey: []string{"tune_ref", "repertoire_ref", "practiced_at"},
			Normalize:   NormalizeTimestamps("practiced_at", "due", "last_review"),
		},
		{
			Name: "repertoire_tune",
			Columns: []string{
				"repertoire_ref", "tune_ref", "current_due", "one_off_due",
				"schedulable",
			},
			BoolColumns: []string{"schedulable"},
			ConflictKey: []string{"repertoire_ref", "tune_ref"},
			Normalize:   NormalizeTimestamps("current_due", "one_off_due"),
		},
		{
			Name: "daily_queue",
			Columns: []string{
				"id", "user_ref", "repertoire_ref", "tune_ref", "window_start",
				"window_end", "bucket", "order_index", "due_at_generation",
				"completed_at", "active",
			},
			BoolColumns: []string{"active"},
			ConflictKey: []string{"id"},
			Normalize: NormalizeTimestamps(
				"window_start", "window_end", "due_at_generation", "completed_at",
			),
		},
		{
			Name: "user_prefs",
			Columns: []string{
				"user_ref", "desired_retention", "maximum_interval_days",
				"lookback_days", "timezone_offset_minutes", "enable_fuzz",
			},
			BoolColumns: []string{"enable_fuzz"},
			ConflictKey: []string{"user_ref"},
		},
	}
}
