package cascade

import "fmt"

// InputError reports structurally invalid analysis input: duplicate
// diagnostic IDs, negative phase sizes, and the like. Analysis fails
// fast on it; no partial result is produced.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid analysis input: " + e.Reason
}

func inputErrorf(format string, args ...any) *InputError {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}
