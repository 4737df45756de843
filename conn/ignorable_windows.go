package conn

import "golang.org/x/sys/windows"

func isIgnorableErrno(e windows.Errno) bool {
	switch e {
	case windows.WSAECONNRESET, windows.WSAECONNABORTED, windows.WSAESHUTDOWN, windows.WSAEINTR, windows.ERROR_OPERATION_ABORTED:
		return true
	default:
		return false
	}
}
