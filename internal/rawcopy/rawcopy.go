// Package rawcopy reads registry files that another process holds open. On
// Windows it enables SeBackupPrivilege and opens each file with backup
// semantics, which bypasses the share mode the system applies to loaded
// hives. Other platforms have no such lock and report ErrUnsupported.
package rawcopy

import "errors"

// File is one file read into memory.
type File struct {
	Path string
	Data []byte
}

// ErrUnsupported is returned by Copy on platforms without a fallback.
var ErrUnsupported = errors.New("rawcopy: not supported on this platform")
