package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"
)

func TestIsIgnorable(t *testing.T) {
	for _, c := range []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"EOF", io.EOF, false},
		{"ErrClosed", net.ErrClosed, true},
		{"WrappedErrClosed", &net.OpError{Op: "read", Net: "tcp", Err: net.ErrClosed}, true},
		{"ClosedPipe", io.ErrClosedPipe, true},
		{"Canceled", fmt.Errorf("dial: %w", context.Canceled), true},
		{"TLSWrappingClosed", fmt.Errorf("tls: %w", &net.OpError{Op: "write", Net: "tcp", Err: net.ErrClosed}), true},
		{"DeadlineExceeded", os.ErrDeadlineExceeded, false},
		{"Other", errors.New("boom"), false},
		{"UnlistedErrno", &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.Errno(0))}, false},
	} {
		t.Run(c.name, func(t *testing.T) {
			if got := IsIgnorable(c.err); got != c.want {
				t.Errorf("IsIgnorable(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}

func TestIsDeadlineExceeded(t *testing.T) {
	err := &net.OpError{Op: "read", Net: "tcp", Err: os.ErrDeadlineExceeded}
	if !IsDeadlineExceeded(err) {
		t.Errorf("IsDeadlineExceeded(%v) = false, want true", err)
	}
	if IsDeadlineExceeded(net.ErrClosed) {
		t.Error("IsDeadlineExceeded(net.ErrClosed) = true, want false")
	}
}
