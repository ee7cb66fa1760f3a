package polls

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("poll not found")
	ErrAlreadyVoted   = errors.New("user has already voted on this poll")
	ErrDuplicateVote  = errors.New("all selected options were already voted for")
	ErrConflict       = errors.New("poll was modified concurrently, try again")
	ErrStorageTimeout = errors.New("storage did not respond in time")
	ErrTallyDrift     = errors.New("option counters disagree with recorded votes")
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
