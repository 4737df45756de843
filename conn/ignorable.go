package conn

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"
)

// ALongTimeAgo is a non-zero time, far in the past, used for immediate deadlines.
var ALongTimeAgo = time.Unix(0, 0)

// IsIgnorable returns whether err is a teardown race that should not be reported.
//
// Such errors surface on a read or write that was in flight when the connection was
// closed locally or reset by the peer. They still end the session, silently.
// io.EOF is not included: an orderly shutdown is not an error in the first place.
func IsIgnorable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return isIgnorableErrno(errno)
	}

	return false
}

// IsDeadlineExceeded returns whether err is caused by an expired deadline,
// for example one set to [ALongTimeAgo] to interrupt a blocking call.
func IsDeadlineExceeded(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
