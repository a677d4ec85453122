//go:build !windows

package rawcopy

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return geteuid() == 0
}

// IsSharingViolation is always false: nothing outside Windows locks hives.
func IsSharingViolation(error) bool { return false }

// Copy always fails with ErrUnsupported.
func Copy([]string) ([]File, error) {
	return nil, ErrUnsupported
}
