package card

import (
	"math"
	"math/rand"
	"time"
)

type fuzzRange struct {
	start, end float64
	factor     float64
}

var fuzzRanges = []fuzzRange{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.10},
	{20.0, math.Inf(1), 0.05},
}

// fuzzDelta computes the half-width of the fuzz window for an interval.
func fuzzDelta(interval float64) float64 {
	delta := 1.0
	for _, r := range fuzzRanges {
		delta += r.factor * math.Max(math.Min(interval, r.end)-r.start, 0)
	}
	return delta
}

// fuzzSeed derives a deterministic seed from the card and review time, so
// Advance stays reproducible for identical inputs while still spreading due
// dates across cards.
func fuzzSeed(c Card, at time.Time) int64 {
	return at.UnixNano() ^ int64(math.Float64bits(c.Stability)) ^ int64(c.Reps)<<32
}

// applyFuzz randomizes the interval within the fuzz window to prevent review
// clustering. Intervals shorter than 2.5 days are returned unchanged.
func applyFuzz(interval, maxInterval int, seed int64) int {
	if float64(interval) < 2.5 {
		return interval
	}

	rng := rand.New(rand.NewSource(seed))
	ivl := float64(interval)
	delta := fuzzDelta(ivl)

	minIvl := int(math.Round(ivl - delta))
	if minIvl < 2 {
		minIvl = 2
	}
	maxIvl := int(math.Round(ivl + delta))
	if maxIvl > maxInterval {
		maxIvl = maxInterval
	}
	if minIvl > maxIvl {
		minIvl = maxIvl
	}

	fuzzed := minIvl + int(math.Round(rng.Float64()*float64(maxIvl-minIvl+1)))
	if fuzzed > maxInterval {
		fuzzed = maxInterval
	}
	return fuzzed
}
