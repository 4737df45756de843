package conn

import (
	"errors"
	"net"
)

func dialResultCodeFromError(err error) DialResultCode {
	if err == nil {
		return DialResultCodeSuccess
	}

	if errors.Is(err, ErrHostUnreachable) {
		return DialResultCodeEHOSTUNREACH
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return DialResultCodeErrDomainNameLookup
	}

	return DialResultCodeErrOther
}
