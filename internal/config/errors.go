package config

import "errors"

// ErrConfiguration marks any failure to produce usable settings, whether
// from the file, the environment, or parameters derived from them. Callers
// match it with errors.Is to distinguish bad configuration from runtime
// failures.
var ErrConfiguration = errors.New("invalid configuration")
