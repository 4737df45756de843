// Package negotiate implements a small mutual-authentication handshake over a byte stream.
//
// Both peers hold a shared key for the client's user name. Each side proves knowledge
// of the key by sending a BLAKE3 keyed MAC over both nonces and the target service name,
// so a client only talks to a server that knows its key and expects the same name.
//
// The handshake runs in four messages:
//
//	client hello:  version(1) | client nonce(32) | user length(1) | user
//	server reply:  version(1) | status(1) | server nonce(32) | server MAC(32)
//	client proof:  client MAC(32)
//	server final:  status(1)
//
// After the handshake the stream carries application data unchanged.
package negotiate

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"lukechampine.com/blake3"
)

const (
	// Version is the handshake version.
	Version = 1

	// NonceSize is the size of each peer's nonce.
	NonceSize = 32

	// MACSize is the size of each peer's MAC.
	MACSize = 32

	// MaxUsernameLength is the maximum length of a user name.
	MaxUsernameLength = 255

	clientHelloHeaderSize = 1 + NonceSize + 1
	serverReplySize       = 1 + 1 + NonceSize + MACSize
)

// Handshake status codes.
const (
	StatusOK byte = iota
	StatusUnsupportedVersion
	StatusUnknownUser
	StatusReplayedNonce
	StatusAuthenticationFailed
)

// Environment variables read by [DefaultCredential].
const (
	EnvUser = "ASYNCTCP_NEGOTIATE_USER"
	EnvKey  = "ASYNCTCP_NEGOTIATE_KEY"
)

const macKeyContext = "asynctcp negotiate 2024-06-01 mac key"

var (
	// ErrAuthenticationFailed is returned when the server rejects the client's credential.
	ErrAuthenticationFailed = errors.New("negotiate: authentication failed")

	// ErrServerAuthenticationFailed is returned when the server cannot prove knowledge
	// of the client's key for the requested target.
	ErrServerAuthenticationFailed = errors.New("negotiate: server authentication failed")

	// ErrUnknownUser is returned by the server for a user with no key.
	ErrUnknownUser = errors.New("negotiate: unknown user")

	// ErrReplayedNonce is returned when a client nonce was seen recently.
	ErrReplayedNonce = errors.New("negotiate: replayed client nonce")

	// ErrNoDefaultCredential is returned by [DefaultCredential] when the environment has none.
	ErrNoDefaultCredential = errors.New("negotiate: no default credential in environment")

	errEmptyUsername   = errors.New("negotiate: empty user name")
	errUsernameTooLong = errors.New("negotiate: user name too long")
	errEmptyKey        = errors.New("negotiate: empty key")
)

// UnsupportedVersionError is returned when a peer speaks a different handshake version.
type UnsupportedVersionError byte

// Error implements [error.Error].
func (v UnsupportedVersionError) Error() string {
	return "negotiate: unsupported version: " + strconv.Itoa(int(v))
}

// StatusError is returned by the client for a non-OK status it has no specific error for.
type StatusError byte

// Error implements [error.Error].
func (s StatusError) Error() string {
	return "negotiate: server returned status " + strconv.Itoa(int(s))
}

// Credential identifies a client to the server.
type Credential struct {
	Username string
	Key      []byte
}

// Validate checks that c can be used in a handshake.
func (c *Credential) Validate() error {
	switch {
	case c.Username == "":
		return errEmptyUsername
	case len(c.Username) > MaxUsernameLength:
		return errUsernameTooLong
	case len(c.Key) == 0:
		return errEmptyKey
	}
	return nil
}

// DefaultCredential returns the process-wide credential from the environment.
// The key is base64-encoded in [EnvKey].
func DefaultCredential() (*Credential, error) {
	user, key := os.Getenv(EnvUser), os.Getenv(EnvKey)
	if user == "" || key == "" {
		return nil, ErrNoDefaultCredential
	}
	b, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", EnvKey, err)
	}
	c := &Credential{Username: user, Key: b}
	if err = c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func deriveMACKey(key []byte) (macKey [32]byte) {
	blake3.DeriveKey(macKey[:], macKeyContext, key)
	return macKey
}

// computeMAC returns the keyed hash of label | first | second | target.
func computeMAC(macKey *[32]byte, label string, first, second []byte, target string) (mac [MACSize]byte) {
	h := blake3.New(MACSize, macKey[:])
	_, _ = h.Write([]byte(label))
	_, _ = h.Write(first)
	_, _ = h.Write(second)
	_, _ = h.Write([]byte(target))
	h.Sum(mac[:0])
	return mac
}

// Client authenticates to the server at the other end of rw as cred,
// and verifies that the server holds the same key for targetName.
func Client(rw io.ReadWriter, cred *Credential, targetName string) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	hello := make([]byte, clientHelloHeaderSize+len(cred.Username))
	hello[0] = Version
	clientNonce := hello[1 : 1+NonceSize]
	if _, err := rand.Read(clientNonce); err != nil {
		return err
	}
	hello[1+NonceSize] = byte(len(cred.Username))
	copy(hello[clientHelloHeaderSize:], cred.Username)

	if _, err := rw.Write(hello); err != nil {
		return err
	}

	var reply [serverReplySize]byte
	if _, err := io.ReadFull(rw, reply[:]); err != nil {
		return err
	}
	if reply[0] != Version {
		return UnsupportedVersionError(reply[0])
	}
	switch status := reply[1]; status {
	case StatusOK:
	case StatusUnsupportedVersion:
		return UnsupportedVersionError(Version)
	case StatusUnknownUser, StatusAuthenticationFailed:
		return ErrAuthenticationFailed
	case StatusReplayedNonce:
		return ErrReplayedNonce
	default:
		return StatusError(status)
	}

	serverNonce := reply[2 : 2+NonceSize]
	macKey := deriveMACKey(cred.Key)
	want := computeMAC(&macKey, "server", clientNonce, serverNonce, targetName)
	if subtle.ConstantTimeCompare(reply[2+NonceSize:], want[:]) != 1 {
		return ErrServerAuthenticationFailed
	}

	proof := computeMAC(&macKey, "client", serverNonce, clientNonce, targetName)
	if _, err := rw.Write(proof[:]); err != nil {
		return err
	}

	var final [1]byte
	if _, err := io.ReadFull(rw, final[:]); err != nil {
		return err
	}
	if final[0] != StatusOK {
		return ErrAuthenticationFailed
	}
	return nil
}

// ServerConfig is the configuration for a [Server].
type ServerConfig struct {
	// ServiceName is the target name clients must ask for.
	ServiceName string

	// LookupKey returns the shared key of a user.
	LookupKey func(username string) (key []byte, ok bool)

	// ReplayWindow is how long client nonces are remembered.
	// If zero, nonces are remembered for 5 minutes.
	ReplayWindow time.Duration
}

// NewServer returns a new server.
func (c ServerConfig) NewServer() *Server {
	window := c.ReplayWindow
	if window == 0 {
		window = 5 * time.Minute
	}
	return &Server{
		serviceName: c.ServiceName,
		lookupKey:   c.LookupKey,
		nonces:      NewNoncePool[[NonceSize]byte](window),
	}
}

// Server runs the server side of the handshake.
//
// Server is safe for concurrent use.
type Server struct {
	serviceName string
	lookupKey   func(username string) (key []byte, ok bool)

	mu     sync.Mutex
	nonces *NoncePool[[NonceSize]byte]
}

// Handshake authenticates the client at the other end of rw and returns its user name.
func (s *Server) Handshake(rw io.ReadWriter) (username string, err error) {
	var header [clientHelloHeaderSize]byte
	if _, err = io.ReadFull(rw, header[:]); err != nil {
		return "", err
	}

	var reply [serverReplySize]byte
	reply[0] = Version

	if header[0] != Version {
		reply[1] = StatusUnsupportedVersion
		_, _ = rw.Write(reply[:])
		return "", UnsupportedVersionError(header[0])
	}

	clientNonce := [NonceSize]byte(header[1 : 1+NonceSize])
	user := make([]byte, header[1+NonceSize])
	if _, err = io.ReadFull(rw, user); err != nil {
		return "", err
	}
	username = string(user)

	key, ok := s.lookupKey(username)
	if !ok || len(key) == 0 {
		reply[1] = StatusUnknownUser
		_, _ = rw.Write(reply[:])
		return username, ErrUnknownUser
	}

	s.mu.Lock()
	fresh := s.nonces.Add(clientNonce)
	s.mu.Unlock()
	if !fresh {
		reply[1] = StatusReplayedNonce
		_, _ = rw.Write(reply[:])
		return username, ErrReplayedNonce
	}

	serverNonce := reply[2 : 2+NonceSize]
	if _, err = rand.Read(serverNonce); err != nil {
		return username, err
	}
	macKey := deriveMACKey(key)
	mac := computeMAC(&macKey, "server", clientNonce[:], serverNonce, s.serviceName)
	copy(reply[2+NonceSize:], mac[:])

	if _, err = rw.Write(reply[:]); err != nil {
		return username, err
	}

	var proof [MACSize]byte
	if _, err = io.ReadFull(rw, proof[:]); err != nil {
		return username, err
	}

	want := computeMAC(&macKey, "client", serverNonce, clientNonce[:], s.serviceName)
	final := [1]byte{StatusOK}
	if subtle.ConstantTimeCompare(proof[:], want[:]) != 1 {
		final[0] = StatusAuthenticationFailed
		err = ErrAuthenticationFailed
	}
	if _, werr := rw.Write(final[:]); err == nil {
		err = werr
	}
	return username, err
}
