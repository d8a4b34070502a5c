package practice

import "errors"

// ErrIntegrity reports a commit-time verification failure: a collision-free
// practice timestamp could not be found, or a persisted update silently took
// no effect. The enclosing transaction is always rolled back in full.
var ErrIntegrity = errors.New("practice integrity violation")
