package jobs

import "errors"

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition indicates a status change that the lifecycle does not
// permit, including any attempt to leave a terminal state.
var ErrInvalidTransition = errors.New("invalid status transition")
