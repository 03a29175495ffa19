package coordinator

import "errors"

// ErrRunNotFound is returned when a run id has no matching record.
var ErrRunNotFound = errors.New("run not found")
