// Package v1 implements the v1 session management API.
package v1

import (
	"github.com/database64128/asynctcp-go/stats"
	"github.com/gofiber/fiber/v2"
)

// Routes sets up the /v1 routes and returns the session manager serving them.
func Routes(router fiber.Router, sc stats.Collector) *SessionManager {
	v1 := router.Group("/v1")
	sm := NewSessionManager(sc)
	sm.Routes(v1)
	return sm
}

// StandardError is the standard error response.
type StandardError struct {
	Message string `json:"error"`
}
