package conn

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

func setFwmark(fd, fwmark int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_MARK, fwmark); err != nil {
		return fmt.Errorf("failed to set socket option SO_MARK: %w", err)
	}
	return nil
}

func dialerControlFunc(fwmark int) func(network, address string, c syscall.RawConn) error {
	if fwmark == 0 {
		return nil
	}
	return func(network, address string, c syscall.RawConn) (err error) {
		if cerr := c.Control(func(fd uintptr) {
			err = setFwmark(int(fd), fwmark)
		}); cerr != nil {
			return cerr
		}
		return
	}
}
