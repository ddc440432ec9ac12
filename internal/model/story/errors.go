package story

import "errors"

// Error kinds surfaced by the story core. Every error returned by the core wraps
// exactly one of these.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrTerminalState = errors.New("story already finished")
	ErrGeneration    = errors.New("generation failed")
	ErrStorage       = errors.New("storage failure")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrValidation, "validation_error"},
	{ErrNotFound, "not_found"},
	{ErrConflict, "conflict"},
	{ErrTerminalState, "terminal_state"},
	{ErrGeneration, "generation_error"},
	{ErrStorage, "storage_error"},
}

// KindOf returns the stable kind name of err, or "internal_error".
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal_error"
}
