//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris || zos

package conn

import "golang.org/x/sys/unix"

func isIgnorableErrno(e unix.Errno) bool {
	switch e {
	case unix.ECONNRESET, unix.ECONNABORTED, unix.EPIPE, unix.EINTR, unix.ESHUTDOWN:
		return true
	default:
		return false
	}
}
