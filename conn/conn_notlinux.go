//go:build !linux

package conn

import "syscall"

func dialerControlFunc(fwmark int) func(network, address string, c syscall.RawConn) error {
	return nil
}
