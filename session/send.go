package session

import (
	"fmt"
	"runtime"
)

// TrySend queues segments to be written in order, without copying them,
// and returns whether the queue accepted them.
//
// It never blocks. A false result with a nil error means the queue is full or a
// concurrent producer won the reservation; the caller may retry or treat it as
// backpressure. The segments must not be modified until they have been written.
func (c *Client) TrySend(segments ...[]byte) (bool, error) {
	if len(segments) == 0 {
		return false, ErrEmptyPayload
	}
	for _, b := range segments {
		if len(b) == 0 {
			return false, ErrEmptyPayload
		}
	}

	if !c.connected.Load() {
		return false, c.notConnectedError()
	}

	var err error
	if len(segments) == 1 {
		err = c.queue.Enqueue(segments[0])
	} else {
		err = c.queue.EnqueueSlice(segments)
	}
	if err != nil {
		return false, nil
	}

	if c.sendGate.CompareAndSwap(false, true) {
		go c.dequeueSend()
	}
	return true, nil
}

// Send is like TrySend, but retries until the queue accepts the segments
// or the session is closed.
func (c *Client) Send(segments ...[]byte) error {
	for {
		ok, err := c.TrySend(segments...)
		if err != nil || ok {
			return err
		}
		runtime.Gosched()
	}
}

func (c *Client) notConnectedError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return ErrClosed
	}
	return ErrNotConnected
}

// dequeueSend is run by the send gate holder. It writes one batch after another
// until the queue is momentarily empty, then releases the gate.
func (c *Client) dequeueSend() {
	for {
		c.sending.Reset()

		if !c.connected.Load() || !c.queue.TryDequeue(&c.sending) {
			c.sendGate.Store(false)

			// A producer that enqueued after TryDequeue may have lost the gate to us.
			// Take it back and keep draining, or leave it to that producer.
			if !c.connected.Load() || c.queue.Len() == 0 || !c.sendGate.CompareAndSwap(false, true) {
				return
			}
			continue
		}

		segments := c.sending.Len()
		var n int
		for _, b := range c.sending.Items() {
			n += len(b)
		}

		if err := c.sender.send(&c.sending); err != nil {
			c.sending.Reset()
			c.sendGate.Store(false)
			c.shutdown(fmt.Errorf("failed to write to %s: %w", c.remoteAddr, err))
			return
		}

		c.stats.CollectBatch(c.name, uint64(segments), uint64(n))
	}
}
