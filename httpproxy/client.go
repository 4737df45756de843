// Package httpproxy implements HTTP/1.1 CONNECT tunneling through an HTTP or HTTPS proxy.
package httpproxy

import (
	"bufio"
	"fmt"
	"net"
	"net/http"

	asynctcp "github.com/database64128/asynctcp-go"
	"github.com/database64128/asynctcp-go/conn"
)

// ConnectNonSuccessfulResponseError is returned when the HTTP CONNECT response status code is not 2xx (Successful).
type ConnectNonSuccessfulResponseError struct {
	StatusCode int
}

// Error implements [error.Error].
func (e ConnectNonSuccessfulResponseError) Error() string {
	return fmt.Sprintf("HTTP CONNECT failed with status code %d", e.StatusCode)
}

// ClientConnect writes an HTTP/1.1 CONNECT request for target to c and reads the response.
//
// proxyAuthHeader, if not empty, is a complete header line prefixed with CRLF.
// The returned conn must be used in place of c: it preserves any bytes the server sent
// right after the response.
func ClientConnect(c net.Conn, target conn.Addr, proxyAuthHeader string) (net.Conn, error) {
	targetAddress := target.String()

	// Some clients include Proxy-Connection: Keep-Alive in proxy requests.
	// This is discouraged by RFC 9112 as stated in appendix C.2.2, so we don't include it.
	if _, err := fmt.Fprintf(c, "CONNECT %s HTTP/1.1\r\nHost: %s\r\nUser-Agent: asynctcp-go/"+asynctcp.Version+"%s\r\n\r\n", targetAddress, targetAddress, proxyAuthHeader); err != nil {
		return nil, err
	}

	br := bufio.NewReader(c)
	resp, err := http.ReadResponse(br, &http.Request{Method: http.MethodConnect})
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()

	// Per RFC 9110, any 2xx (Successful) response is considered a success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ConnectNonSuccessfulResponseError{StatusCode: resp.StatusCode}
	}

	// Check if server spoke first.
	if br.Buffered() > 0 {
		return &bufferedConn{Conn: c, br: br}, nil
	}
	return c, nil
}

// bufferedConn reads through a [*bufio.Reader] that may hold bytes
// received together with the CONNECT response.
type bufferedConn struct {
	net.Conn
	br *bufio.Reader
}

// Read implements [net.Conn.Read].
func (c *bufferedConn) Read(b []byte) (int, error) {
	return c.br.Read(b)
}
