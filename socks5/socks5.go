// Package socks5 implements the client side of SOCKS5 CONNECT (RFC 1928)
// with optional username/password authentication (RFC 1929).
package socks5

import (
	"errors"
	"fmt"
	"slices"
)

// SOCKS version 5.
const Version = 5

// UnsupportedVersionError is an error type for unsupported SOCKS versions.
type UnsupportedVersionError byte

func (v UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported SOCKS version: %#X", byte(v))
}

func (UnsupportedVersionError) Is(target error) bool {
	return target == errors.ErrUnsupported
}

// SOCKS5 authentication methods as defined in RFC 1928 section 3.
const (
	MethodNoAuthenticationRequired = 0
	MethodUsernamePassword         = 2
	MethodNoAcceptable             = 0xFF
)

// UnsupportedAuthMethodError is an error type for unsupported SOCKS5 authentication methods.
type UnsupportedAuthMethodError byte

func (m UnsupportedAuthMethodError) Error() string {
	if m == MethodNoAcceptable {
		return "no acceptable authentication method"
	}
	return fmt.Sprintf("unsupported authentication method: %#X", byte(m))
}

func (UnsupportedAuthMethodError) Is(target error) bool {
	return target == errors.ErrUnsupported
}

// CmdConnect is the CONNECT request command.
const CmdConnect = 1

// SOCKS5 reply field values as defined in RFC 1928 section 6.
const (
	ReplySucceeded                     = 0
	ReplyGeneralSocksServerFailure     = 1
	ReplyConnectionNotAllowedByRuleset = 2
	ReplyNetworkUnreachable            = 3
	ReplyHostUnreachable               = 4
	ReplyConnectionRefused             = 5
	ReplyTTLExpired                    = 6
	ReplyCommandNotSupported           = 7
	ReplyAddressTypeNotSupported       = 8
)

// ReplyError is a non-success REP field returned by the server.
type ReplyError byte

func (r ReplyError) Error() string {
	switch r {
	case ReplySucceeded:
		return "succeeded"
	case ReplyGeneralSocksServerFailure:
		return "general SOCKS server failure"
	case ReplyConnectionNotAllowedByRuleset:
		return "connection not allowed by ruleset"
	case ReplyNetworkUnreachable:
		return "network unreachable"
	case ReplyHostUnreachable:
		return "host unreachable"
	case ReplyConnectionRefused:
		return "connection refused"
	case ReplyTTLExpired:
		return "TTL expired"
	case ReplyCommandNotSupported:
		return "command not supported"
	case ReplyAddressTypeNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("unknown SOCKS5 reply error: %#X", byte(r))
	}
}

// UsernamePasswordAuthVersion is the version of the username/password authentication method,
// as defined in RFC 1929 section 2.
const UsernamePasswordAuthVersion = 1

var (
	ErrUsernameLengthOutOfRange  = errors.New("username length out of range [1, 255]")
	ErrPasswordLengthOutOfRange  = errors.New("password length out of range [1, 255]")
	ErrIncorrectUsernamePassword = errors.New("incorrect username or password")
)

// UserInfo is a username/password pair.
type UserInfo struct {
	// Username must be non-empty and at most 255 bytes long.
	Username string `json:"username"`

	// Password must be non-empty and at most 255 bytes long.
	Password string `json:"password"`
}

// Validate checks if the username and password are valid.
func (u UserInfo) Validate() error {
	if len(u.Username) == 0 || len(u.Username) > 255 {
		return ErrUsernameLengthOutOfRange
	}
	if len(u.Password) == 0 || len(u.Password) > 255 {
		return ErrPasswordLengthOutOfRange
	}
	return nil
}

// AppendAuthMsg appends the username/password pair as an authentication message to b.
//
// Call Validate first to ensure the username and password are valid.
func (u UserInfo) AppendAuthMsg(b []byte) []byte {
	b = slices.Grow(b, 3+len(u.Username)+len(u.Password))
	b = append(b, UsernamePasswordAuthVersion, byte(len(u.Username)))
	b = append(b, u.Username...)
	b = append(b, byte(len(u.Password)))
	b = append(b, u.Password...)
	return b
}
