package honeycomb

import "time"

// timeNow is swapped in tests exercising TTL eviction.
var timeNow = time.Now

// channelNode is the live instance of an effect channel. It is not a
// cache: there is no current value and no read. Emitted payloads reach
// every active listener; the delivery strategy decides what a listener
// arriving later still gets to see.
type channelNode[T any] struct {
	nodeBase
	strategy  DeliveryStrategy
	buf       []timedPayload[T]
	listeners []listenerEntry[T]
}

type timedPayload[T any] struct {
	v  T
	at time.Time
}

func newChannelNode[T any](c *Container, a *EffectAtom[T]) *channelNode[T] {
	return &channelNode[T]{
		nodeBase: makeNodeBase(c, a),
		strategy: a.strategy,
	}
}

// emit appends the payload to the buffer per strategy, then broadcasts
// it to the currently-active listeners.
func (n *channelNode[T]) emit(v T) {
	now := timeNow()
	n.evictExpired(now)

	switch n.strategy.mode {
	case deliveryBuffer:
		n.buf = append(n.buf, timedPayload[T]{v: v, at: now})
		if excess := len(n.buf) - n.strategy.capacity; excess > 0 {
			n.buf = append(n.buf[:0], n.buf[excess:]...)
		}
	case deliveryTTL:
		n.buf = append(n.buf, timedPayload[T]{v: v, at: now})
	}

	if len(n.listeners) == 0 {
		return
	}
	entries := make([]listenerEntry[T], len(n.listeners))
	copy(entries, n.listeners)
	for _, e := range entries {
		e.fn(v)
	}
}

// listen replays the buffered payloads in order, then registers the
// callback for live delivery. Every listener receives every payload:
// broadcast, not queue-consume-once.
func (n *channelNode[T]) listen(fn func(T)) uint64 {
	n.evictExpired(timeNow())

	if len(n.buf) > 0 {
		replay := make([]timedPayload[T], len(n.buf))
		copy(replay, n.buf)
		for _, p := range replay {
			fn(p.v)
		}
	}

	id := nextID()
	n.listeners = append(n.listeners, listenerEntry[T]{id: id, fn: fn})
	return id
}

func (n *channelNode[T]) removeListenerByID(id uint64) {
	n.listeners = removeListener(n.listeners, id)
}

// evictExpired drops entries older than the TTL window from the head.
// Runs before every emit and every new listen.
func (n *channelNode[T]) evictExpired(now time.Time) {
	if n.strategy.mode != deliveryTTL {
		return
	}
	// Strictly older than the window: an entry aged exactly ttl stays.
	cutoff := now.Add(-n.strategy.ttl)
	i := 0
	for i < len(n.buf) && n.buf[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		n.buf = append(n.buf[:0], n.buf[i:]...)
	}
}

func (n *channelNode[T]) height() int { return 0 }

// deliver is part of anyNode but channels never sit in a flush.
func (n *channelNode[T]) deliver() {}

func (n *channelNode[T]) listenerCount() int {
	return len(n.listeners)
}

// Channel nodes are destroyed only with the owning container.
func (n *channelNode[T]) teardown(reason string) {
	if n.dead {
		return
	}
	n.dead = true
	n.runCleanups(reason)
	n.listeners = nil
	n.buf = nil
}

// Subscription represents an active listener on an effect channel.
type Subscription struct {
	cancel func()
}

// Cancel removes the listener. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
