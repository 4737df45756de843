package netio

import (
	"context"

	"github.com/database64128/asynctcp-go/conn"
	"go.uber.org/zap"
)

// AddrMatcher reports whether a target address belongs to a set.
type AddrMatcher interface {
	MatchAddr(addr conn.Addr) bool
}

// BypassConnector routes matching targets directly and everything else through a proxy.
type BypassConnector struct {
	proxy  ProxyConnector
	direct ProxyConnector
	bypass AddrMatcher
	logger *zap.Logger
}

// NewBypassConnector returns a connector that sends targets matched by bypass to direct
// and all other targets to proxy.
func NewBypassConnector(proxy, direct ProxyConnector, bypass AddrMatcher, logger *zap.Logger) *BypassConnector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BypassConnector{
		proxy:  proxy,
		direct: direct,
		bypass: bypass,
		logger: logger,
	}
}

var _ ProxyConnector = (*BypassConnector)(nil)

// ConnectProxy implements [ProxyConnector.ConnectProxy].
func (c *BypassConnector) ConnectProxy(ctx context.Context, target conn.Addr) (ProxyResult, error) {
	if c.bypass != nil && c.bypass.MatchAddr(target) {
		if ce := c.logger.Check(zap.DebugLevel, "Bypassing proxy"); ce != nil {
			ce.Write(zap.Stringer("target", target))
		}
		return c.direct.ConnectProxy(ctx, target)
	}
	return c.proxy.ConnectProxy(ctx, target)
}
