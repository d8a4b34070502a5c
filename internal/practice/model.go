// Package practice records ratings as durable history: single immediate
// ratings through the Recorder, and batched in-session ratings through the
// staging Committer.
package practice

import (
	"time"

	"github.com/reelbook/reelbook/internal/card"
)

// PracticeRecord is one immutable historical fact: a tune was practiced at a
// moment with a rating, and this was the memory state that resulted. Records
// are only ever created by this package and deleted only by UndoLast.
type PracticeRecord struct {
	ID            int64      `db:"id" json:"id"`
	RepertoireRef int64      `db:"repertoire_ref" json:"repertoireRef"`
	TuneRef       int64      `db:"tune_ref" json:"tuneRef"`
	PracticedAt   time.Time  `db:"practiced_at" json:"practicedAt"`
	Quality       string     `db:"quality" json:"quality"`
	Goal          string     `db:"goal" json:"goal"`
	Technique     string     `db:"technique" json:"technique"`
	Due           time.Time  `db:"due" json:"due"`
	Stability     float64    `db:"stability" json:"stability"`
	Difficulty    float64    `db:"difficulty" json:"difficulty"`
	ElapsedDays   int        `db:"elapsed_days" json:"elapsedDays"`
	ScheduledDays int        `db:"scheduled_days" json:"scheduledDays"`
	Reps          int        `db:"reps" json:"reps"`
	Lapses        int        `db:"lapses" json:"lapses"`
	State         string     `db:"state" json:"state"`
	LastReview    *time.Time `db:"last_review" json:"lastReview"`
}

// Card reconstructs the memory state embedded in the record.
func (r PracticeRecord) Card() (card.Card, error) {
	state, err := card.ParseState(r.State)
	if err != nil {
		return card.Card{}, err
	}
	return card.Card{
		Due:           r.Due,
		Stability:     r.Stability,
		Difficulty:    r.Difficulty,
		ElapsedDays:   r.ElapsedDays,
		ScheduledDays: r.ScheduledDays,
		Reps:          r.Reps,
		Lapses:        r.Lapses,
		State:         state,
		LastReview:    r.LastReview,
	}, nil
}

// setCard embeds a memory state into the record.
func (r *PracticeRecord) setCard(c card.Card) {
	r.Due = c.Due
	r.Stability = c.Stability
	r.Difficulty = c.Difficulty
	r.ElapsedDays = c.ElapsedDays
	r.ScheduledDays = c.ScheduledDays
	r.Reps = c.Reps
	r.Lapses = c.Lapses
	r.State = c.State.String()
	r.LastReview = c.LastReview
}

// RepertoireTune is the denormalized projection of a tune's standing in a
// repertoire: the due date the queue generator reads without replaying
// history, plus an optional one-off manual override.
type RepertoireTune struct {
	RepertoireRef int64      `db:"repertoire_ref" json:"repertoireRef"`
	TuneRef       int64      `db:"tune_ref" json:"tuneRef"`
	CurrentDue    *time.Time `db:"current_due" json:"currentDue"`
	OneOffDue     *time.Time `db:"one_off_due" json:"oneOffDue"`
	Schedulable   bool       `db:"schedulable" json:"schedulable"`
}

// CoalescedDue returns the due date the queue generator should classify:
// the one-off override when set, otherwise the computed due date. Nil means
// the tune has no scheduling information yet.
func (rt RepertoireTune) CoalescedDue() *time.Time {
	if rt.OneOffDue != nil {
		return rt.OneOffDue
	}
	return rt.CurrentDue
}

// StagedEvaluation is a draft rating held during a practice session before
// the batch commit. It is never synced; only the records it produces are.
type StagedEvaluation struct {
	UserRef       string     `db:"user_ref"`
	TuneRef       int64      `db:"tune_ref"`
	RepertoireRef int64      `db:"repertoire_ref"`
	PracticedAt   *time.Time `db:"practiced_at"`
	Quality       *string    `db:"quality"`
	Goal          string     `db:"goal"`
	Technique     string     `db:"technique"`
	Notes         string     `db:"notes"`
}
