package netio

import (
	"context"

	"github.com/database64128/asynctcp-go/conn"
)

// DirectConnector connects to targets without an intermediary.
//
// It is mostly useful as the direct branch of a [BypassConnector].
type DirectConnector struct {
	dialer StreamDialer
}

// NewDirectConnector returns a connector that dials targets with dialer.
// If dialer is nil, [conn.DefaultDialer] is used.
func NewDirectConnector(dialer StreamDialer) *DirectConnector {
	if dialer == nil {
		dialer = conn.DefaultDialer
	}
	return &DirectConnector{dialer: dialer}
}

var _ ProxyConnector = (*DirectConnector)(nil)

// ConnectProxy implements [ProxyConnector.ConnectProxy].
func (c *DirectConnector) ConnectProxy(ctx context.Context, target conn.Addr) (ProxyResult, error) {
	nc, err := c.dialer.DialContext(ctx, target)
	if err != nil {
		return ProxyResult{}, err
	}
	return ProxyResult{Conn: nc}, nil
}
