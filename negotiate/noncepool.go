package negotiate

import "time"

// NoncePool remembers client nonces for [retention, 2*retention) so that
// a recorded client hello cannot be replayed during the window.
//
// NoncePool is not safe for concurrent use.
type NoncePool[T comparable] struct {
	pool      map[T]time.Time
	retention time.Duration
	lastClean time.Time
}

// NewNoncePool returns a new NoncePool with the given retention.
func NewNoncePool[T comparable](retention time.Duration) *NoncePool[T] {
	return &NoncePool[T]{
		pool:      make(map[T]time.Time),
		retention: retention,
		lastClean: time.Now(),
	}
}

// clean removes expired nonces from the pool.
func (p *NoncePool[T]) clean(now time.Time) {
	if now.Sub(p.lastClean) > p.retention {
		for nonce, added := range p.pool {
			if now.Sub(added) > p.retention {
				delete(p.pool, nonce)
			}
		}
		p.lastClean = now
	}
}

// Add records nonce and returns true, or returns false if nonce is still in the pool.
func (p *NoncePool[T]) Add(nonce T) bool {
	now := time.Now()
	p.clean(now)
	if _, ok := p.pool[nonce]; ok {
		return false
	}
	p.pool[nonce] = now
	return true
}

// Len returns the number of nonces in the pool.
func (p *NoncePool[T]) Len() int {
	return len(p.pool)
}
