package main

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/reelbook/reelbook/internal/config"
	"github.com/reelbook/reelbook/internal/database"
	"github.com/reelbook/reelbook/internal/outbox"
	"github.com/reelbook/reelbook/internal/practice"
	"github.com/reelbook/reelbook/internal/queue"
	"github.com/reelbook/reelbook/internal/scheduling"
)

func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

// app wires the services every command needs against the local store.
type app struct {
	cfg       *config.Config
	db        *sqlx.DB
	repo      *practice.DBRepository
	outbox    *outbox.DBOutbox
	recorder  *practice.Recorder
	committer *practice.Committer
	generator *queue.Generator
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.OpenLocal(cfg.Database.Local)
	if err != nil {
		return nil, fmt.Errorf("failed to open the local store: %w", err)
	}

	params, err := cfg.Practice.Params()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ob := outbox.NewDBOutbox(db)
	repo := practice.NewDBRepository(db, ob)
	opts := []scheduling.Option{}
	if cfg.Scheduler.OverrideURL != "" {
		timeout := time.Duration(cfg.Scheduler.TimeoutMS) * time.Millisecond
		opts = append(opts, scheduling.WithOverride(
			scheduling.NewHTTPOverride(cfg.Scheduler.OverrideURL, timeout), timeout))
	}
	scheduler, err := scheduling.NewService(repo, params, cfg.Practice.TimezoneOffsetMinutes, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		db:        db,
		repo:      repo,
		outbox:    ob,
		recorder:  practice.NewRecorder(db, scheduler, ob),
		committer: practice.NewCommitter(db, scheduler, ob),
		generator: queue.NewGenerator(db, repo, ob,
			cfg.Practice.LookbackDays, cfg.Practice.TimezoneOffsetMinutes),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// parseAt parses the optional --at flag, defaulting to now.
func parseAt(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse --at %q, expected RFC3339: %w", value, err)
	}
	return at.UTC(), nil
}
