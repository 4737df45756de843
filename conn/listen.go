package conn

import "github.com/database64128/tfo-go/v2"

// NewListenConfig returns a tfo.ListenConfig with the specified options applied.
// The fwmark is only applied on Linux.
func NewListenConfig(listenerTFO bool, listenerFwmark int) (lc tfo.ListenConfig) {
	lc.DisableTFO = !listenerTFO
	lc.Control = dialerControlFunc(listenerFwmark)
	return
}
