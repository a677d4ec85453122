package txlog

import "fmt"

// ReplayError describes a log entry that could not be applied.
type ReplayError struct {
	Log      string // log file name
	Sequence uint32 // entry sequence number, 0 for old-format logs
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ReplayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("replay %s seq %d: %s: %v", e.Log, e.Sequence, e.Message, e.Cause)
	}
	return fmt.Sprintf("replay %s seq %d: %s", e.Log, e.Sequence, e.Message)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ReplayError) Unwrap() error {
	return e.Cause
}
