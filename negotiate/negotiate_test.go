package negotiate

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

type serverResult struct {
	username string
	err      error
}

func runHandshake(t *testing.T, s *Server, cred *Credential, target string) (clientErr error, sr serverResult) {
	t.Helper()

	c, sc := net.Pipe()
	done := make(chan serverResult, 1)
	go func() {
		defer sc.Close()
		username, err := s.Handshake(sc)
		done <- serverResult{username, err}
	}()

	clientErr = Client(c, cred, target)
	c.Close()
	return clientErr, <-done
}

func newTestServer() *Server {
	return ServerConfig{
		ServiceName: "echo.test",
		LookupKey: func(username string) ([]byte, bool) {
			if username == "alice" {
				return []byte("alice's shared key"), true
			}
			return nil, false
		},
	}.NewServer()
}

func TestHandshake(t *testing.T) {
	for _, c := range []struct {
		name          string
		cred          Credential
		target        string
		wantClientErr error
		wantServerErr bool
	}{
		{"Success", Credential{Username: "alice", Key: []byte("alice's shared key")}, "echo.test", nil, false},
		{"WrongKey", Credential{Username: "alice", Key: []byte("not the key")}, "echo.test", ErrServerAuthenticationFailed, true},
		{"TargetMismatch", Credential{Username: "alice", Key: []byte("alice's shared key")}, "other.test", ErrServerAuthenticationFailed, true},
		{"UnknownUser", Credential{Username: "mallory", Key: []byte("whatever")}, "echo.test", ErrAuthenticationFailed, true},
	} {
		t.Run(c.name, func(t *testing.T) {
			clientErr, sr := runHandshake(t, newTestServer(), &c.cred, c.target)
			if !errors.Is(clientErr, c.wantClientErr) {
				t.Errorf("Client error = %v, want %v", clientErr, c.wantClientErr)
			}
			if (sr.err != nil) != c.wantServerErr {
				t.Errorf("Handshake error = %v, want error: %v", sr.err, c.wantServerErr)
			}
			if sr.username != c.cred.Username {
				t.Errorf("Handshake username = %q, want %q", sr.username, c.cred.Username)
			}
		})
	}
}

func TestHandshakeCarriesData(t *testing.T) {
	s := newTestServer()
	c, sc := net.Pipe()
	defer c.Close()

	go func() {
		defer sc.Close()
		if _, err := s.Handshake(sc); err != nil {
			return
		}
		_, _ = io.Copy(sc, sc)
	}()

	if err := Client(c, &Credential{Username: "alice", Key: []byte("alice's shared key")}, "echo.test"); err != nil {
		t.Fatalf("Client failed: %v", err)
	}

	want := []byte("after the handshake")
	if _, err := c.Write(want); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(want))
	if _, err := io.ReadFull(c, got); err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Errorf("echo = %q, want %q", got, want)
	}
}

func TestHandshakeReplayedNonce(t *testing.T) {
	s := newTestServer()

	hello := make([]byte, clientHelloHeaderSize+len("alice"))
	hello[0] = Version
	if _, err := rand.Read(hello[1 : 1+NonceSize]); err != nil {
		t.Fatal(err)
	}
	hello[1+NonceSize] = byte(len("alice"))
	copy(hello[clientHelloHeaderSize:], "alice")

	send := func() (status byte, err error) {
		c, sc := net.Pipe()
		defer c.Close()
		done := make(chan error, 1)
		go func() {
			defer sc.Close()
			_, err := s.Handshake(sc)
			done <- err
		}()
		if _, err := c.Write(hello); err != nil {
			t.Fatal(err)
		}
		var reply [serverReplySize]byte
		if _, err := io.ReadFull(c, reply[:]); err != nil {
			t.Fatal(err)
		}
		c.Close()
		return reply[1], <-done
	}

	if status, _ := send(); status != StatusOK {
		t.Fatalf("first hello status = %d, want %d", status, StatusOK)
	}
	status, err := send()
	if status != StatusReplayedNonce {
		t.Errorf("replayed hello status = %d, want %d", status, StatusReplayedNonce)
	}
	if !errors.Is(err, ErrReplayedNonce) {
		t.Errorf("Handshake error = %v, want %v", err, ErrReplayedNonce)
	}
}

func TestHandshakeUnsupportedVersion(t *testing.T) {
	s := newTestServer()
	c, sc := net.Pipe()
	defer c.Close()

	done := make(chan error, 1)
	go func() {
		defer sc.Close()
		_, err := s.Handshake(sc)
		done <- err
	}()

	var hello [clientHelloHeaderSize]byte
	hello[0] = 2
	if _, err := c.Write(hello[:]); err != nil {
		t.Fatal(err)
	}
	var reply [serverReplySize]byte
	if _, err := io.ReadFull(c, reply[:]); err != nil {
		t.Fatal(err)
	}
	if reply[1] != StatusUnsupportedVersion {
		t.Errorf("status = %d, want %d", reply[1], StatusUnsupportedVersion)
	}

	var verErr UnsupportedVersionError
	if err := <-done; !errors.As(err, &verErr) || verErr != 2 {
		t.Errorf("Handshake error = %v, want UnsupportedVersionError(2)", err)
	}
}

func TestCredentialValidate(t *testing.T) {
	long := make([]byte, MaxUsernameLength+1)
	for i := range long {
		long[i] = 'a'
	}

	for _, c := range []struct {
		name    string
		cred    Credential
		wantErr bool
	}{
		{"Valid", Credential{Username: "u", Key: []byte{1}}, false},
		{"EmptyUsername", Credential{Key: []byte{1}}, true},
		{"LongUsername", Credential{Username: string(long), Key: []byte{1}}, true},
		{"EmptyKey", Credential{Username: "u"}, true},
	} {
		t.Run(c.name, func(t *testing.T) {
			if err := c.cred.Validate(); (err != nil) != c.wantErr {
				t.Errorf("Validate() = %v, want error: %v", err, c.wantErr)
			}
		})
	}
}

func TestDefaultCredential(t *testing.T) {
	t.Setenv(EnvUser, "")
	t.Setenv(EnvKey, "")
	if _, err := DefaultCredential(); !errors.Is(err, ErrNoDefaultCredential) {
		t.Errorf("DefaultCredential() error = %v, want %v", err, ErrNoDefaultCredential)
	}

	t.Setenv(EnvUser, "bob")
	t.Setenv(EnvKey, "not base64!")
	if _, err := DefaultCredential(); err == nil {
		t.Error("DefaultCredential() with a malformed key succeeded")
	}

	t.Setenv(EnvKey, base64.StdEncoding.EncodeToString([]byte("bob's key")))
	cred, err := DefaultCredential()
	if err != nil {
		t.Fatalf("DefaultCredential() failed: %v", err)
	}
	if cred.Username != "bob" || string(cred.Key) != "bob's key" {
		t.Errorf("DefaultCredential() = %q, %q", cred.Username, cred.Key)
	}
}

func TestNoncePoolAddDuplicateNonces(t *testing.T) {
	const retention = 100 * time.Millisecond
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		t.Fatal(err)
	}

	pool := NewNoncePool[[NonceSize]byte](retention)

	if !pool.Add(nonce) {
		t.Fatal("Failed to add fresh nonce.")
	}
	if pool.Add(nonce) {
		t.Fatal("Accepted repeated nonce.")
	}

	time.Sleep(2 * retention)

	if !pool.Add(nonce) {
		t.Fatal("Failed to add expired nonce.")
	}
	if n := pool.Len(); n != 1 {
		t.Errorf("pool.Len() = %d, want 1", n)
	}
}
