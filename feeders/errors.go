package feeders

import "errors"

// ErrTomlFeederUnavailable is returned when the toml feeder cannot locate its source file.
var ErrTomlFeederUnavailable = errors.New("toml feeder unavailable")
