// Package scheduling turns a practice rating into the next due date and
// memory state for a tune, applying user preferences, practice-goal
// heuristics and the optional external scheduler override.
package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelbook/reelbook/internal/card"
	"github.com/reelbook/reelbook/internal/config"
)

// GoalRecall is the default practice goal, scheduled by the memory model.
// Every other goal uses a fixed interval table instead: not every practice
// goal benefits from adaptive scheduling.
const GoalRecall = "recall"

// goalIntervals maps a non-default goal to its interval in days per rating
// (Again, Hard, Good, Easy).
var goalIntervals = map[string][4]int{
	"initial_learn":      {1, 1, 2, 3},
	"fluency":            {1, 2, 5, 7},
	"session_ready":      {2, 4, 7, 10},
	"performance_polish": {3, 7, 14, 21},
}

// techniqueMultipliers scales a goal interval by practice technique.
var techniqueMultipliers = map[string]float64{
	"daily_practice": 0.5,
	"motor_skills":   0.5,
}

// dueSkewBuffer is added after the next-day clamp so a card rated just
// before midnight does not resurface immediately from clock or render skew.
const dueSkewBuffer = time.Hour

//go:generate mockgen -source=service.go -destination=../mocks/scheduling/mock_scheduling.go -package=mock_scheduling

// HistoryReader is the storage read port: it returns the memory state
// embedded in the most recent practice record, or nil if the tune has never
// been practiced in this repertoire.
type HistoryReader interface {
	LatestCard(ctx context.Context, tuneRef, repertoireRef int64) (*card.Card, error)
}

// Request carries one rating through the scheduling pipeline.
type Request struct {
	UserRef       string
	TuneRef       int64
	RepertoireRef int64
	Rating        card.Rating
	Goal          string
	Technique     string
	At            time.Time
}

// Service computes schedules for one user's ratings.
type Service struct {
	history         HistoryReader
	params          card.Params
	tzOffset        time.Duration
	override        Override
	overrideTimeout time.Duration
	logger          *slog.Logger
}

// Option configures optional service behavior.
type Option func(*Service)

// WithOverride installs an external scheduler consulted after the built-in
// result is computed. Its failures are recovered, never surfaced.
func WithOverride(o Override, timeout time.Duration) Option {
	return func(s *Service) {
		s.override = o
		s.overrideTimeout = timeout
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a scheduling service. Params must already be validated;
// tzOffsetMinutes shifts the user's calendar-day boundary from UTC.
func NewService(history HistoryReader, params card.Params, tzOffsetMinutes int, opts ...Option) (*Service, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: params.Validate() > %w", config.ErrConfiguration, err)
	}
	s := &Service{
		history:  history,
		params:   params,
		tzOffset: time.Duration(tzOffsetMinutes) * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Schedule computes the next memory state for one rating. It never fails for
// override reasons; only invalid input or a storage error is returned.
func (s *Service) Schedule(ctx context.Context, req Request) (card.Card, error) {
	prior, err := s.history.LatestCard(ctx, req.TuneRef, req.RepertoireRef)
	if err != nil {
		return card.Card{}, fmt.Errorf("history.LatestCard() > %w", err)
	}
	return s.ScheduleWithPrior(ctx, req, prior)
}

// ScheduleWithPrior is Schedule with the history lookup already done, for
// callers that read the prior card inside their own transaction.
func (s *Service) ScheduleWithPrior(ctx context.Context, req Request, prior *card.Card) (card.Card, error) {
	if !req.Rating.IsValid() {
		return card.Card{}, fmt.Errorf("invalid rating %d", int(req.Rating))
	}

	next := card.Advance(prior, req.Rating, req.At, s.params)

	if intervals, ok := goalIntervals[req.Goal]; ok && req.Goal != GoalRecall {
		next = s.applyGoalInterval(next, intervals, req)
	}

	if s.override != nil {
		next = s.consultOverride(ctx, req, next)
	}

	next.Due = s.clampDue(next.Due, req.At)
	return next, nil
}

// applyGoalInterval replaces the adaptive interval with the goal table's,
// scaled by the technique multiplier. The memory statistics keep advancing
// normally so a later switch back to adaptive scheduling has real data.
func (s *Service) applyGoalInterval(c card.Card, intervals [4]int, req Request) card.Card {
	scaled := float64(intervals[int(req.Rating)-1])
	if m, ok := techniqueMultipliers[req.Technique]; ok {
		scaled *= m
	}
	// Whole days only: the stored interval and the due date must agree.
	days := int(scaled)
	if days < 1 {
		days = 1
	}
	c.ScheduledDays = days
	c.Due = req.At.Add(time.Duration(days) * 24 * time.Hour)
	return c
}

// consultOverride asks the external scheduler for a replacement. Any error,
// timeout or malformed proposal falls back to the built-in result.
func (s *Service) consultOverride(ctx context.Context, req Request, fallback card.Card) card.Card {
	timeout := s.overrideTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	overrideCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	proposed, err := s.override.Propose(overrideCtx, req, fallback)
	if err != nil {
		s.logger.Warn("external scheduler rejected, using built-in result",
			"tune", req.TuneRef, "repertoire", req.RepertoireRef, "error", err)
		return fallback
	}
	if !proposed.Due.After(req.At) || proposed.Stability < 0 {
		s.logger.Warn("external scheduler returned malformed result, using built-in result",
			"tune", req.TuneRef, "repertoire", req.RepertoireRef, "due", proposed.Due)
		return fallback
	}
	return proposed
}

// clampDue enforces that a tune is never re-shown on the calendar day it was
// rated: due is at least the start of the user's next day plus a skew buffer.
func (s *Service) clampDue(due, at time.Time) time.Time {
	floor := s.StartOfNextDay(at).Add(dueSkewBuffer)
	if due.Before(floor) {
		return floor
	}
	return due
}

// StartOfNextDay returns midnight of the calendar day after at, in the
// user's configured timezone offset.
func (s *Service) StartOfNextDay(at time.Time) time.Time {
	local := at.UTC().Add(s.tzOffset)
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Add(-s.tzOffset)
}
