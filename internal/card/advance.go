package card

import (
	"math"
	"time"
)

// algo holds constants precomputed from the 21 weights.
type algo struct {
	w      [21]float64
	decay  float64
	factor float64
}

func newAlgo(w [21]float64) algo {
	decay := -w[20]
	factor := math.Pow(0.9, 1.0/decay) - 1.0
	return algo{w: w, decay: decay, factor: factor}
}

// retrievability computes R(t, S) = (1 + FACTOR * t / S) ^ DECAY.
func (a *algo) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+a.factor*elapsedDays/stability, a.decay)
}

// initStability returns the initial stability S0(G) for the first rating.
func (a *algo) initStability(r Rating) float64 {
	return clampStability(a.w[r-1])
}

// initDifficulty returns the initial difficulty D0(G).
func (a *algo) initDifficulty(r Rating, clamp bool) float64 {
	d := a.w[4] - math.Exp(a.w[5]*float64(r-1)) + 1
	if clamp {
		return clampDifficulty(d)
	}
	return d
}

// nextInterval converts stability into a review interval in whole days,
// clamped to [1, maxInterval].
func (a *algo) nextInterval(stability, desiredRetention float64, maxInterval int) int {
	ivl := stability / a.factor * (math.Pow(desiredRetention, 1.0/a.decay) - 1)
	days := int(math.Round(ivl))
	if days < 1 {
		days = 1
	}
	if days > maxInterval {
		days = maxInterval
	}
	return days
}

// shortTermStability computes the stability update for a same-day review.
func (a *algo) shortTermStability(stability float64, r Rating) float64 {
	inc := math.Exp(a.w[17]*(float64(r)-3+a.w[18])) * math.Pow(stability, -a.w[19])
	if r == Good || r == Easy {
		inc = math.Max(inc, 1.0)
	}
	return clampStability(stability * inc)
}

// nextDifficulty applies linear damping and mean reversion toward D0(Easy).
func (a *algo) nextDifficulty(difficulty float64, r Rating) float64 {
	deltaD := -a.w[6] * (float64(r) - 3)
	dPrime := difficulty + (10-difficulty)*deltaD/9
	d0Easy := a.initDifficulty(Easy, false)
	return clampDifficulty(a.w[7]*d0Easy + (1-a.w[7])*dPrime)
}

func (a *algo) nextStability(d, s, retr float64, rating Rating) float64 {
	if rating == Again {
		return a.forgetStability(d, s, retr)
	}
	return a.recallStability(d, s, retr, rating)
}

// recallStability computes stability after a successful recall.
func (a *algo) recallStability(d, s, retr float64, rating Rating) float64 {
	hardPenalty := 1.0
	if rating == Hard {
		hardPenalty = a.w[15]
	}
	easyBonus := 1.0
	if rating == Easy {
		easyBonus = a.w[16]
	}
	return clampStability(s * (1 + math.Exp(a.w[8])*
		(11-d)*
		math.Pow(s, -a.w[9])*
		(math.Exp((1-retr)*a.w[10])-1)*
		hardPenalty*easyBonus))
}

// forgetStability computes stability after forgetting.
func (a *algo) forgetStability(d, s, retr float64) float64 {
	long := a.w[11] *
		math.Pow(d, -a.w[12]) *
		(math.Pow(s+1, a.w[13]) - 1) *
		math.Exp((1-retr)*a.w[14])
	short := s / math.Exp(a.w[17]*a.w[18])
	return clampStability(math.Min(long, short))
}

func clampStability(s float64) float64 {
	return math.Max(s, 0.001)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}

// Advance applies one rating to a card at the given time and returns the new
// memory state. A nil prior models first exposure: a fresh card is
// initialized before advancing. Inputs are never mutated, and the result is
// fully determined by (prior, rating, at, p).
func Advance(prior *Card, rating Rating, at time.Time, p Params) Card {
	a := newAlgo(p.Weights)

	var c Card
	if prior == nil {
		c = New(at)
	} else {
		c = prior.clone()
	}

	elapsed := 0
	if c.LastReview != nil {
		elapsed = wholeDays(c.LastReview.UTC(), at.UTC())
	}
	c.ElapsedDays = elapsed

	updateMemory(&a, &c, rating, elapsed)

	// Review-gated lapse rule: a lapse is only counted when an established
	// card is forgotten, not while it is still being learned.
	if rating == Again && prior != nil && prior.State == StateReview {
		c.Lapses++
	}

	interval := transition(&a, &c, rating, p)

	if p.EnableFuzz && c.State == StateReview && c.ScheduledDays > 0 {
		fuzzed := applyFuzz(c.ScheduledDays, p.MaximumInterval, fuzzSeed(c, at))
		c.ScheduledDays = fuzzed
		interval = time.Duration(fuzzed) * 24 * time.Hour
	}

	c.Due = at.Add(interval)
	last := at
	c.LastReview = &last
	c.Reps++
	return c
}

// Retrievability returns the estimated recall probability for the card at the
// given time, or 0 for a card that has never been reviewed.
func Retrievability(c Card, at time.Time, p Params) float64 {
	if c.LastReview == nil || c.Stability <= 0 {
		return 0
	}
	a := newAlgo(p.Weights)
	elapsed := at.Sub(*c.LastReview).Hours() / 24.0
	if elapsed < 0 {
		elapsed = 0
	}
	return a.retrievability(elapsed, c.Stability)
}

// updateMemory updates stability and difficulty in place.
func updateMemory(a *algo, c *Card, rating Rating, elapsedDays int) {
	if c.Reps == 0 || c.Stability <= 0 {
		c.Stability = a.initStability(rating)
		c.Difficulty = a.initDifficulty(rating, true)
		return
	}

	if elapsedDays < 1 {
		c.Stability = a.shortTermStability(c.Stability, rating)
	} else {
		retr := a.retrievability(float64(elapsedDays), c.Stability)
		c.Stability = a.nextStability(c.Difficulty, c.Stability, retr, rating)
	}
	c.Difficulty = a.nextDifficulty(c.Difficulty, rating)
}

// transition applies the state machine and returns the scheduling interval.
// ScheduledDays is set to the whole-day length of the interval.
func transition(a *algo, c *Card, rating Rating, p Params) time.Duration {
	switch c.State {
	case StateNew:
		c.State = StateLearning
		return learningInterval(a, c, rating, p.LearningSteps, p)
	case StateLearning:
		return learningInterval(a, c, rating, p.LearningSteps, p)
	case StateRelearning:
		return learningInterval(a, c, rating, p.RelearningSteps, p)
	default:
		return reviewInterval(a, c, rating, p)
	}
}

// learningInterval handles Learning and Relearning cards. Again restarts the
// steps, Hard holds position, Good advances one step (graduating past the
// last), Easy graduates immediately. The step position is derived from the
// review count, which is the only progression the card state records.
func learningInterval(a *algo, c *Card, rating Rating, steps []time.Duration, p Params) time.Duration {
	if len(steps) == 0 {
		return graduate(a, c, p)
	}

	switch rating {
	case Again:
		c.ScheduledDays = 0
		return steps[0]
	case Hard:
		c.ScheduledDays = 0
		if len(steps) >= 2 {
			return (steps[0] + steps[1]) / 2
		}
		return time.Duration(float64(steps[0]) * 1.5)
	case Good:
		next := c.Reps + 1
		if next >= len(steps) {
			return graduate(a, c, p)
		}
		c.ScheduledDays = 0
		return steps[next]
	default:
		return graduate(a, c, p)
	}
}

// reviewInterval handles Review cards. Again demotes to Relearning.
func reviewInterval(a *algo, c *Card, rating Rating, p Params) time.Duration {
	if rating == Again {
		if len(p.RelearningSteps) > 0 {
			c.State = StateRelearning
			c.ScheduledDays = 0
			return p.RelearningSteps[0]
		}
		// No relearning steps configured: stay in Review with a fresh interval.
	}
	days := a.nextInterval(c.Stability, p.DesiredRetention, p.MaximumInterval)
	c.ScheduledDays = days
	return time.Duration(days) * 24 * time.Hour
}

func graduate(a *algo, c *Card, p Params) time.Duration {
	c.State = StateReview
	days := a.nextInterval(c.Stability, p.DesiredRetention, p.MaximumInterval)
	c.ScheduledDays = days
	return time.Duration(days) * 24 * time.Hour
}

// wholeDays returns the number of complete days between from and to,
// never negative.
func wholeDays(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
