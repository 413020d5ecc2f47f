package honeycomb

// stateNode is the mutable leaf of the graph. Its value is defined from
// the moment of materialization (override or the atom's initial value);
// read and write never raise errors of their own.
type stateNode[T any] struct {
	nodeBase
	atomT     *Atom[T]
	value     T
	listeners []listenerEntry[T]
}

func newStateNode[T any](c *Container, a *Atom[T], initial T) *stateNode[T] {
	return &stateNode[T]{
		nodeBase: makeNodeBase(c, a),
		atomT:    a,
		value:    initial,
	}
}

func (n *stateNode[T]) currentValue() (T, error) {
	return n.value, nil
}

func (n *stateNode[T]) peekValue() (T, bool) {
	return n.value, true
}

// set applies the equality gate and stores the new value. The caller
// decides how the change notification travels (immediately or queued by
// the surrounding batch).
func (n *stateNode[T]) set(v T) bool {
	if n.atomT.equals(n.value, v) {
		return false
	}
	n.value = v
	return true
}

func (n *stateNode[T]) height() int { return 0 }

func (n *stateNode[T]) deliver() {
	if len(n.listeners) == 0 {
		return
	}
	entries := make([]listenerEntry[T], len(n.listeners))
	copy(entries, n.listeners)
	v := n.value
	for _, e := range entries {
		e.fn(v)
	}
}

func (n *stateNode[T]) listenerCount() int {
	return len(n.listeners)
}

func (n *stateNode[T]) addListener(fn func(T)) uint64 {
	id := nextID()
	n.listeners = append(n.listeners, listenerEntry[T]{id: id, fn: fn})
	return id
}

func (n *stateNode[T]) removeListenerByID(id uint64) {
	n.listeners = removeListener(n.listeners, id)
}

func (n *stateNode[T]) teardown(reason string) {
	if n.dead {
		return
	}
	n.dead = true
	n.cancelDisposeTimer()
	n.runCleanups(reason)
	n.listeners = nil
}
