package inference

import "errors"

// ErrTimeout is the sentinel cause recorded on IterationMetrics.Error when
// a call is cancelled by its configured timeout.
var ErrTimeout = errors.New("inference request timed out")
