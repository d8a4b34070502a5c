// Package card implements the spaced-repetition memory model for a single
// practiced tune. All functions are pure: they take a prior memory state and
// a rating and return a new state without side effects.
package card

import (
	"fmt"
	"time"
)

// State represents the learning stage of a card.
type State int

const (
	StateNew        State = iota // Never practiced.
	StateLearning                // First exposures, still on learning steps.
	StateReview                  // Entered the long-term review cycle.
	StateRelearning              // Forgotten from Review, relearning.
)

var stateNames = map[State]string{
	StateNew:        "new",
	StateLearning:   "learning",
	StateReview:     "review",
	StateRelearning: "relearning",
}

var statesByName = map[string]State{
	"new":        StateNew,
	"learning":   StateLearning,
	"review":     StateReview,
	"relearning": StateRelearning,
}

// String returns the lowercase name of the state, as stored in the database.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState converts a stored state name back to a State.
func ParseState(name string) (State, error) {
	s, ok := statesByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown card state %q", name)
	}
	return s, nil
}

// Rating is the user's self-assessed recall quality for one practice.
type Rating int

const (
	Again Rating = iota + 1 // Could not recall the tune.
	Hard                    // Recalled with significant difficulty.
	Good                    // Recalled with some effort.
	Easy                    // Recalled effortlessly.
)

var ratingNames = map[Rating]string{
	Again: "again",
	Hard:  "hard",
	Good:  "good",
	Easy:  "easy",
}

var ratingsByName = map[string]Rating{
	"again": Again,
	"hard":  Hard,
	"good":  Good,
	"easy":  Easy,
}

// IsValid reports whether r is one of the four recognized ratings.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// String returns the lowercase name of the rating.
func (r Rating) String() string {
	if name, ok := ratingNames[r]; ok {
		return name
	}
	return fmt.Sprintf("rating(%d)", int(r))
}

// ParseRating converts a stored rating name back to a Rating.
func ParseRating(name string) (Rating, error) {
	r, ok := ratingsByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown rating %q", name)
	}
	return r, nil
}

// Card is the memory state of one tune in one repertoire, embedded into every
// practice record at the time of that review.
type Card struct {
	Due           time.Time
	Stability     float64
	Difficulty    float64
	ElapsedDays   int
	ScheduledDays int
	Reps          int
	Lapses        int
	State         State
	LastReview    *time.Time
}

// New returns a fresh card that has never been practiced, due immediately.
func New(at time.Time) Card {
	return Card{State: StateNew, Due: at}
}

// clone returns a deep copy of the card. LastReview is copied by value.
func (c Card) clone() Card {
	out := c
	if c.LastReview != nil {
		v := *c.LastReview
		out.LastReview = &v
	}
	return out
}
