// Package api implements the management and metrics HTTP server.
package api

import (
	"context"
	"errors"
	"net"
	"path"

	v1 "github.com/database64128/asynctcp-go/api/v1"
	"github.com/database64128/asynctcp-go/conn"
	"github.com/database64128/asynctcp-go/stats"
	"github.com/database64128/tfo-go/v2"
	"github.com/gofiber/contrib/fiberzap"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Config stores the configuration for the RESTful API.
type Config struct {
	// Enabled controls whether the API server is enabled.
	Enabled bool `json:"enabled"`

	// EnableTrustedProxyCheck enables trusted proxy checks.
	EnableTrustedProxyCheck bool `json:"enableTrustedProxyCheck"`

	// TrustedProxies is the list of trusted proxies.
	// This only takes effect if EnableTrustedProxyCheck is true.
	TrustedProxies []string `json:"trustedProxies"`

	// ProxyHeader is the header used to determine the client's IP address.
	// If empty, the remote peer's address is used.
	ProxyHeader string `json:"proxyHeader"`

	// SecretPath adds a secret path prefix to all endpoints.
	// If empty, no secret path is added.
	SecretPath string `json:"secretPath"`

	// ListenAddress is the TCP address to listen on.
	ListenAddress string `json:"listen"`

	// Fwmark sets the listener's fwmark on Linux.
	Fwmark int `json:"fwmark"`

	// FastOpen enables TCP Fast Open on the listener.
	FastOpen bool `json:"fastOpen"`
}

// NewServer returns a new API server from the config.
// The returned session manager serves the session endpoints; sessions added to it
// should report to sc.
func (c *Config) NewServer(logger *zap.Logger, sc stats.Collector) (*Server, *v1.SessionManager, error) {
	if c.ListenAddress == "" {
		return nil, nil, errors.New("no listen address specified")
	}
	if sc == nil {
		sc = stats.NoopCollector{}
	}

	app := fiber.New(fiber.Config{
		ProxyHeader:             c.ProxyHeader,
		DisableStartupMessage:   true,
		EnableTrustedProxyCheck: c.EnableTrustedProxyCheck,
		TrustedProxies:          c.TrustedProxies,
	})

	app.Use(fiberzap.New(fiberzap.Config{
		Logger: logger,
	}))

	basePath := "/"
	if c.SecretPath != "" {
		basePath = joinPatternPath(basePath, c.SecretPath)
	}

	app.Get(joinPatternPath(basePath, "/metrics"), func(ctx *fiber.Ctx) error {
		ctx.Set(fiber.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
		sc.WritePrometheus(ctx)
		return nil
	})

	api := app.Group(joinPatternPath(basePath, "/api"))
	sm := v1.Routes(api, sc)

	return &Server{
		logger:        logger,
		app:           app,
		listenConfig:  conn.NewListenConfig(c.FastOpen, c.Fwmark),
		listenAddress: c.ListenAddress,
	}, sm, nil
}

// joinPatternPath joins path elements into a route path.
func joinPatternPath(elem ...string) string {
	p := path.Join(elem...)
	if p == "" {
		return ""
	}
	// Add back the trailing slash removed by [path.Join].
	if last := elem[len(elem)-1]; last != "" && last[len(last)-1] == '/' {
		if p[len(p)-1] != '/' {
			return p + "/"
		}
	}
	return p
}

// Server is the RESTful API server.
type Server struct {
	logger        *zap.Logger
	app           *fiber.App
	listenConfig  tfo.ListenConfig
	listenAddress string
	ln            net.Listener
}

// String implements [fmt.Stringer.String].
func (s *Server) String() string {
	return "API server"
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Addr returns the listener address after Start, or nil.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	ln, err := s.listenConfig.Listen(ctx, "tcp", s.listenAddress)
	if err != nil {
		return err
	}
	s.ln = ln

	go func() {
		if err := s.app.Listener(ln); err != nil {
			s.logger.Error("Failed to serve API", zap.Error(err))
		}
	}()

	s.logger.Info("Started API server", zap.Stringer("listenAddress", ln.Addr()))
	return nil
}

// Stop stops the API server.
func (s *Server) Stop() error {
	return s.app.Shutdown()
}
