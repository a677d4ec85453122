//go:build windows

package rawcopy

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/windows"
)

const seBackupPrivilege = "SeBackupPrivilege"

// IsElevated reports whether the process token is elevated.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// IsSharingViolation reports whether err comes from opening a file that
// another process holds without read sharing.
func IsSharingViolation(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) || errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}

// Copy reads every path in order. The first failure aborts the copy.
func Copy(paths []string) ([]File, error) {
	if err := enableBackupPrivilege(); err != nil {
		return nil, err
	}
	out := make([]File, 0, len(paths))
	for _, p := range paths {
		data, err := readBackup(p)
		if err != nil {
			return nil, err
		}
		out = append(out, File{Path: p, Data: data})
	}
	return out, nil
}

func readBackup(path string) ([]byte, error) {
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("path %s: %w", path, err)
	}
	h, err := windows.CreateFile(
		name,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL|windows.FILE_FLAG_BACKUP_SEMANTICS,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("open %s with backup semantics: %w", path, err)
	}
	f := os.NewFile(uintptr(h), path)
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func enableBackupPrivilege() error {
	var token windows.Token
	err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token)
	if err != nil {
		return fmt.Errorf("open process token: %w", err)
	}
	defer token.Close()

	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, windows.StringToUTF16Ptr(seBackupPrivilege), &luid); err != nil {
		return fmt.Errorf("lookup %s: %w", seBackupPrivilege, err)
	}
	privileges := windows.Tokenprivileges{
		PrivilegeCount: 1,
		Privileges: [1]windows.LUIDAndAttributes{
			{Luid: luid, Attributes: windows.SE_PRIVILEGE_ENABLED},
		},
	}
	if err := windows.AdjustTokenPrivileges(token, false, &privileges, 0, nil, nil); err != nil {
		return fmt.Errorf("enable %s: %w", seBackupPrivilege, err)
	}
	// AdjustTokenPrivileges succeeds even when nothing was granted.
	if windows.GetLastError() == windows.ERROR_NOT_ALL_ASSIGNED {
		return fmt.Errorf("enable %s: %w", seBackupPrivilege, windows.ERROR_NOT_ALL_ASSIGNED)
	}
	return nil
}
