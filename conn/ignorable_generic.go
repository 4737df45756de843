//go:build !aix && !darwin && !dragonfly && !freebsd && !linux && !netbsd && !openbsd && !solaris && !windows && !zos

package conn

import "syscall"

func isIgnorableErrno(e syscall.Errno) bool {
	return false
}
