package card

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvance_FirstExposure(t *testing.T) {
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		rating    Rating
		wantState State
	}{
		{name: "again stays in learning", rating: Again, wantState: StateLearning},
		{name: "hard stays in learning", rating: Hard, wantState: StateLearning},
		{name: "good stays on learning steps", rating: Good, wantState: StateLearning},
		{name: "easy graduates immediately", rating: Easy, wantState: StateReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Advance(nil, tt.rating, at, DefaultParams())

			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, 1, got.Reps)
			assert.Equal(t, 0, got.Lapses)
			assert.Equal(t, 0, got.ElapsedDays)
			assert.Greater(t, got.Stability, 0.0)
			assert.GreaterOrEqual(t, got.Difficulty, 1.0)
			assert.LessOrEqual(t, got.Difficulty, 10.0)
			require.NotNil(t, got.LastReview)
			assert.Equal(t, at, *got.LastReview)
			assert.True(t, got.Due.After(at))
		})
	}
}

func TestAdvance_Deterministic(t *testing.T) {
	at := time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)
	p := DefaultParams()
	p.EnableFuzz = true

	prior := Advance(nil, Good, at.AddDate(0, 0, -30), p)
	prior.State = StateReview
	prior.Stability = 25.0

	first := Advance(&prior, Good, at, p)
	second := Advance(&prior, Good, at, p)

	assert.Equal(t, first, second)
	// The input card must not be mutated.
	assert.Equal(t, 25.0, prior.Stability)
}

func TestAdvance_LapseGating(t *testing.T) {
	at := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	last := at.AddDate(0, 0, -10)

	tests := []struct {
		name       string
		state      State
		rating     Rating
		lapses     int
		wantLapses int
		wantState  State
	}{
		{
			name:  "again in review increments lapses",
			state: StateReview, rating: Again,
			lapses: 2, wantLapses: 3, wantState: StateRelearning,
		},
		{
			name:  "again in learning does not count a lapse",
			state: StateLearning, rating: Again,
			lapses: 0, wantLapses: 0, wantState: StateLearning,
		},
		{
			name:  "again in relearning does not count a lapse",
			state: StateRelearning, rating: Again,
			lapses: 1, wantLapses: 1, wantState: StateRelearning,
		},
		{
			name:  "good in review never counts a lapse",
			state: StateReview, rating: Good,
			lapses: 2, wantLapses: 2, wantState: StateReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := Card{
				State:      tt.state,
				Stability:  8.0,
				Difficulty: 5.0,
				Reps:       4,
				Lapses:     tt.lapses,
				LastReview: &last,
			}

			got := Advance(&prior, tt.rating, at, DefaultParams())

			assert.Equal(t, tt.wantLapses, got.Lapses)
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, 10, got.ElapsedDays)
		})
	}
}

func TestAdvance_RatingOrdering(t *testing.T) {
	// Hard, Good and Easy must produce progressively longer intervals for a
	// Review card, and Again must shorten it.
	at := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	last := at.AddDate(0, 0, -20)
	prior := Card{
		State:      StateReview,
		Stability:  20.0,
		Difficulty: 5.0,
		Reps:       6,
		LastReview: &last,
	}
	p := DefaultParams()
	p.RelearningSteps = nil // keep Again in Review so intervals are comparable

	again := Advance(&prior, Again, at, p)
	hard := Advance(&prior, Hard, at, p)
	good := Advance(&prior, Good, at, p)
	easy := Advance(&prior, Easy, at, p)

	assert.Less(t, again.ScheduledDays, hard.ScheduledDays)
	assert.LessOrEqual(t, hard.ScheduledDays, good.ScheduledDays)
	assert.LessOrEqual(t, good.ScheduledDays, easy.ScheduledDays)
}

func TestAdvance_MaximumIntervalClamp(t *testing.T) {
	at := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	last := at.AddDate(0, 0, -100)
	prior := Card{
		State:      StateReview,
		Stability:  5000.0,
		Difficulty: 2.0,
		Reps:       30,
		LastReview: &last,
	}
	p := DefaultParams()
	p.MaximumInterval = 365

	got := Advance(&prior, Easy, at, p)

	assert.Equal(t, 365, got.ScheduledDays)
	assert.Equal(t, at.Add(365*24*time.Hour), got.Due)
}

func TestAdvance_LearningGraduation(t *testing.T) {
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	p := DefaultParams()

	first := Advance(nil, Good, at, p)
	require.Equal(t, StateLearning, first.State)

	second := Advance(&first, Good, at.Add(15*time.Minute), p)
	assert.Equal(t, StateReview, second.State)
	assert.Equal(t, 2, second.Reps)
	assert.GreaterOrEqual(t, second.ScheduledDays, 1)
}

func TestRetrievability(t *testing.T) {
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	p := DefaultParams()

	t.Run("zero for unreviewed card", func(t *testing.T) {
		c := New(at)
		assert.Zero(t, Retrievability(c, at, p))
	})

	t.Run("decays over time", func(t *testing.T) {
		c := Advance(nil, Good, at, p)
		soon := Retrievability(c, at.AddDate(0, 0, 1), p)
		later := Retrievability(c, at.AddDate(0, 0, 30), p)
		assert.Greater(t, soon, later)
		assert.Greater(t, later, 0.0)
	})
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(p *Params) {}},
		{
			name:    "retention of zero rejected",
			mutate:  func(p *Params) { p.DesiredRetention = 0 },
			wantErr: true,
		},
		{
			name:    "retention of one rejected",
			mutate:  func(p *Params) { p.DesiredRetention = 1 },
			wantErr: true,
		},
		{
			name:    "zero maximum interval rejected",
			mutate:  func(p *Params) { p.MaximumInterval = 0 },
			wantErr: true,
		},
		{
			name:    "weight outside bounds rejected",
			mutate:  func(p *Params) { p.Weights[4] = 0.5 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStateAndRatingRoundTrip(t *testing.T) {
	for _, s := range []State{StateNew, StateLearning, StateReview, StateRelearning} {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		got, err := ParseRating(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseState("archived")
	assert.Error(t, err)
	_, err = ParseRating("perfect")
	assert.Error(t, err)
}
