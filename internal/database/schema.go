package database

// localSchema is the DDL for the local embedded store. The store
// self-initializes on open; schema evolution for the remote store is handled
// by external tooling.
const localSchema = `
CREATE TABLE IF NOT EXISTS practice_record (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	repertoire_ref INTEGER NOT NULL,
	tune_ref INTEGER NOT NULL,
	practiced_at TIMESTAMP NOT NULL,
	quality TEXT NOT NULL,
	goal TEXT NOT NULL DEFAULT 'recall',
	technique TEXT NOT NULL DEFAULT '',
	due TIMESTAMP NOT NULL,
	stability REAL NOT NULL DEFAULT 0,
	difficulty REAL NOT NULL DEFAULT 0,
	elapsed_days INTEGER NOT NULL DEFAULT 0,
	scheduled_days INTEGER NOT NULL DEFAULT 0,
	reps INTEGER NOT NULL DEFAULT 0,
	lapses INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL DEFAULT 'new',
	last_review TIMESTAMP,
	UNIQUE (tune_ref, repertoire_ref, practiced_at)
);

CREATE TABLE IF NOT EXISTS repertoire_tune (
	repertoire_ref INTEGER NOT NULL,
	tune_ref INTEGER NOT NULL,
	current_due TIMESTAMP,
	one_off_due TIMESTAMP,
	schedulable INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (repertoire_ref, tune_ref)
);

CREATE TABLE IF NOT EXISTS staged_evaluation (
	user_ref TEXT NOT NULL,
	tune_ref INTEGER NOT NULL,
	repertoire_ref INTEGER NOT NULL,
	practiced_at TIMESTAMP,
	quality TEXT,
	goal TEXT NOT NULL DEFAULT 'recall',
	technique TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_ref, tune_ref, repertoire_ref)
);

CREATE TABLE IF NOT EXISTS daily_queue (
	id TEXT PRIMARY KEY,
	user_ref TEXT NOT NULL,
	repertoire_ref INTEGER NOT NULL,
	tune_ref INTEGER NOT NULL,
	window_start TIMESTAMP NOT NULL,
	window_end TIMESTAMP NOT NULL,
	bucket INTEGER NOT NULL,
	order_index INTEGER NOT NULL,
	due_at_generation TIMESTAMP,
	completed_at TIMESTAMP,
	active INTEGER NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_queue_active_entry
	ON daily_queue (user_ref, repertoire_ref, tune_ref, window_start)
	WHERE active = 1;

CREATE INDEX IF NOT EXISTS idx_daily_queue_window
	ON daily_queue (user_ref, repertoire_ref, window_start, active);

CREATE TABLE IF NOT EXISTS outbox_change (
	id TEXT PRIMARY KEY,
	table_name TEXT NOT NULL,
	op TEXT NOT NULL,
	row_key TEXT NOT NULL,
	payload TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	drained_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_outbox_pending
	ON outbox_change (recorded_at)
	WHERE drained_at IS NULL;
`
