// Package asynctcp is an embeddable asynchronous TCP client engine.
//
// A session connects directly or through a proxy, optionally wraps the socket in TLS or
// a negotiate-authenticated stream, and then delivers events to a handler while callers
// queue outbound segments from any number of goroutines. See package session.
package asynctcp

// Version is the current version of asynctcp-go.
const Version = "1.0.0"
