//go:build unix

package rawcopy

import "golang.org/x/sys/unix"

func geteuid() int { return unix.Geteuid() }
