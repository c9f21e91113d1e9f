package pricing

import "errors"

// All pricing errors are configuration problems and must not be retried.
var (
	ErrInvalidSchedule    = errors.New("invalid schedule")
	ErrAmbiguousStartDate = errors.New("ambiguous start date")
	ErrNegativeDuration   = errors.New("subscription end date is before its start date")
)
