package types

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindFormat      ErrKind = iota // malformed headers/signatures (e.g., bad "regf")
	ErrKindCorrupt                    // structural corruption (bad sizes/offsets/tags)
	ErrKindUnsupported                // valid feature we don't support
	ErrKindNotFound                   // missing key/value/path
	ErrKindState                      // invalid operation for current state (e.g., closed)
	ErrKindDirty                      // hive needs recovery that cannot be performed
	ErrKindAccess                     // hive could not be read with current privileges
)

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels commonly returned by the engine. Match them with errors.Is.
var (
	// ErrNotHive indicates the file lacks a valid "regf" header.
	ErrNotHive = &Error{Kind: ErrKindFormat, Msg: "not a registry hive (bad regf header)"}
	// ErrCorrupt indicates non-recoverable structural inconsistency.
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt hive structure"}
	// ErrUnsupported indicates a recognized but unsupported feature or platform.
	ErrUnsupported = &Error{Kind: ErrKindUnsupported, Msg: "unsupported hive feature"}
	// ErrNotFound indicates a missing key/value/path.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrDirtyHiveNoLogs indicates the hive sequence numbers disagree and no
	// transaction logs sit next to it.
	ErrDirtyHiveNoLogs = &Error{Kind: ErrKindDirty, Msg: "hive is dirty and no transaction logs were found"}
	// ErrLockedFileAccessDenied indicates the hive is locked by another process
	// and the raw-copy fallback is not available to this process.
	ErrLockedFileAccessDenied = &Error{Kind: ErrKindAccess, Msg: "hive is locked and the process is not elevated"}
)
