package v1

import (
	"slices"
	"sync"

	"github.com/database64128/asynctcp-go"
	"github.com/database64128/asynctcp-go/session"
	"github.com/database64128/asynctcp-go/stats"
	"github.com/gofiber/fiber/v2"
)

// EngineInfo contains information about the API server.
type EngineInfo struct {
	Name       string `json:"engine"`
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
}

var engineInfo = EngineInfo{
	Name:       "asynctcp-go",
	Version:    asynctcp.Version,
	APIVersion: "v1",
}

// GetEngineInfo returns information about the API server.
func GetEngineInfo(c *fiber.Ctx) error {
	return c.JSON(&engineInfo)
}

// SessionManager handles session management API requests.
type SessionManager struct {
	sc stats.Collector

	mu           sync.RWMutex
	sessions     map[string]*session.Client
	sessionNames []string
}

// NewSessionManager returns a new session manager.
// sc is the collector the managed sessions report to.
func NewSessionManager(sc stats.Collector) *SessionManager {
	if sc == nil {
		sc = stats.NoopCollector{}
	}
	return &SessionManager{
		sc:       sc,
		sessions: make(map[string]*session.Client),
	}
}

// AddSession adds a session to the session manager under its name.
// A session with the same name is replaced.
func (sm *SessionManager) AddSession(c *session.Client) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	name := c.Name()
	if _, ok := sm.sessions[name]; !ok {
		sm.sessionNames = append(sm.sessionNames, name)
	}
	sm.sessions[name] = c
}

// RemoveSession removes the named session from the session manager.
func (sm *SessionManager) RemoveSession(name string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sessions[name]; !ok {
		return
	}
	delete(sm.sessions, name)
	sm.sessionNames = slices.DeleteFunc(sm.sessionNames, func(s string) bool { return s == name })
}

// Routes sets up routes for the /v1 endpoints.
func (sm *SessionManager) Routes(v1 fiber.Router) {
	v1.Get("", GetEngineInfo)
	v1.Get("/stats", sm.GetStats)
	v1.Get("/sessions", sm.ListSessions)

	s := v1.Group("/sessions/:session", sm.ContextSession)
	s.Get("", sm.GetSession)
	s.Delete("", sm.CloseSession)
}

// GetStats returns engine traffic statistics.
func (sm *SessionManager) GetStats(c *fiber.Ctx) error {
	if c.QueryBool("clear", false) {
		return c.JSON(sm.sc.SnapshotAndReset())
	}
	return c.JSON(sm.sc.Snapshot())
}

// ListSessions lists all managed sessions.
func (sm *SessionManager) ListSessions(c *fiber.Ctx) error {
	sm.mu.RLock()
	names := slices.Clone(sm.sessionNames)
	sm.mu.RUnlock()
	if names == nil {
		names = []string{}
	}
	return c.JSON(&names)
}

// ContextSession is a middleware for the sessions group.
// It adds the session with the given name to the request context.
func (sm *SessionManager) ContextSession(c *fiber.Ctx) error {
	name := c.Params("session")
	sm.mu.RLock()
	client := sm.sessions[name]
	sm.mu.RUnlock()
	if client == nil {
		return c.Status(fiber.StatusNotFound).JSON(&StandardError{Message: "session not found"})
	}
	c.Locals(0, client)
	return c.Next()
}

// sessionFromContext returns the session from the request context.
func sessionFromContext(c *fiber.Ctx) *session.Client {
	return c.Locals(0).(*session.Client)
}

// SessionInfo contains information about a session.
type SessionInfo struct {
	Name          string `json:"session"`
	Connected     bool   `json:"connected"`
	RemoteAddress string `json:"remoteAddress,omitempty"`
	LocalAddress  string `json:"localAddress,omitempty"`
	TargetHost    string `json:"targetHost,omitempty"`
	NoDelay       bool   `json:"noDelay"`
	stats.Traffic
}

// GetSession returns information about a session.
func (sm *SessionManager) GetSession(c *fiber.Ctx) error {
	client := sessionFromContext(c)
	info := SessionInfo{
		Name:       client.Name(),
		Connected:  client.IsConnected(),
		TargetHost: client.TargetHost(),
		NoDelay:    client.NoDelay(),
	}
	if addr := client.RemoteAddr(); addr.IsValid() {
		info.RemoteAddress = addr.String()
	}
	if addr := client.LocalAddr(); addr != nil {
		info.LocalAddress = addr.String()
	}
	for _, cs := range sm.sc.Snapshot().Clients {
		if cs.Name == info.Name {
			info.Traffic = cs.Traffic
			break
		}
	}
	return c.JSON(&info)
}

// CloseSession closes a session and removes it from the session manager.
func (sm *SessionManager) CloseSession(c *fiber.Ctx) error {
	client := sessionFromContext(c)
	_ = client.Close()
	sm.RemoveSession(client.Name())
	return c.SendStatus(fiber.StatusNoContent)
}
