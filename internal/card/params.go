package card

import (
	"fmt"
	"time"
)

// DefaultWeights are the FSRS v6 default parameter values.
var DefaultWeights = [21]float64{
	0.212, 1.2931, 2.3065, 8.2956,
	6.4133, 0.8334, 3.0194, 0.001,
	1.8722, 0.1666, 0.796, 1.4835,
	0.0614, 0.2629, 1.6483, 0.6014,
	1.8729, 0.5425, 0.0912, 0.0658,
	0.1542,
}

// weightLowerBounds and weightUpperBounds delimit the valid range per weight.
var weightLowerBounds = [21]float64{
	0.001, 0.001, 0.001, 0.001,
	1.0, 0.001, 0.001, 0.001,
	0.0, 0.0, 0.001, 0.001,
	0.001, 0.001, 0.0, 0.0,
	1.0, 0.0, 0.0, 0.0,
	0.1,
}

var weightUpperBounds = [21]float64{
	100.0, 100.0, 100.0, 100.0,
	10.0, 4.0, 4.0, 0.75,
	4.5, 0.8, 3.5, 5.0,
	0.25, 0.9, 4.0, 1.0,
	6.0, 2.0, 2.0, 0.8,
	0.8,
}

// Params configures the memory model for one user.
type Params struct {
	Weights          [21]float64
	DesiredRetention float64
	MaximumInterval  int
	LearningSteps    []time.Duration
	RelearningSteps  []time.Duration
	EnableFuzz       bool
}

// DefaultParams returns the parameters used when a user has no stored
// preferences: default weights, 90% retention, 10-year interval cap.
func DefaultParams() Params {
	return Params{
		Weights:          DefaultWeights,
		DesiredRetention: 0.9,
		MaximumInterval:  36500,
		LearningSteps:    []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:  []time.Duration{10 * time.Minute},
	}
}

// Validate checks that all parameters are within their supported ranges.
func (p Params) Validate() error {
	for i := range p.Weights {
		if p.Weights[i] < weightLowerBounds[i] || p.Weights[i] > weightUpperBounds[i] {
			return fmt.Errorf("weight w[%d] = %f outside bounds [%f, %f]",
				i, p.Weights[i], weightLowerBounds[i], weightUpperBounds[i])
		}
	}
	if p.DesiredRetention <= 0 || p.DesiredRetention >= 1 {
		return fmt.Errorf("desired retention %f outside (0, 1)", p.DesiredRetention)
	}
	if p.MaximumInterval < 1 {
		return fmt.Errorf("maximum interval %d must be at least 1 day", p.MaximumInterval)
	}
	return nil
}
