package honeycomb

// derivedNode is the shared evaluation engine behind lazy (Computed),
// eager (Eager) and safe (Safe) atoms. The three differ only in
// recompute strategy and value wrapping:
//
//   - lazy pulls on read when dirty, unless it has active consumers, in
//     which case upstream changes recompute it immediately;
//   - eager pushes on every upstream change and computes at
//     materialization, read never computes;
//   - safe is a lazy node whose compute function was wrapped into a
//     Result error boundary by the constructor.
type derivedNode[T any] struct {
	nodeBase
	atomT *Atom[T]
	fn    ComputeFn[T]

	value       T
	initialized bool
	dirty       bool
	lastErr     error
	pinned      bool

	deps  []anyNode
	level int

	listeners []listenerEntry[T]
}

func newDerivedNode[T any](c *Container, a *Atom[T], fn ComputeFn[T]) *derivedNode[T] {
	return &derivedNode[T]{
		nodeBase: makeNodeBase(c, a),
		atomT:    a,
		fn:       fn,
		dirty:    true,
	}
}

// pin fixes the node to an override value. A pinned node never
// evaluates and ignores upstream changes and invalidation.
func (n *derivedNode[T]) pin(v T) {
	n.value = v
	n.initialized = true
	n.dirty = false
	n.pinned = true
}

func (n *derivedNode[T]) eager() bool {
	return n.atom.Kind() == KindEager
}

// initialize runs the first computation for eager nodes at
// materialization time. Structural errors surface to the resolving
// caller.
func (n *derivedNode[T]) initialize() error {
	if n.pinned || !n.eager() {
		return nil
	}
	_, err := n.recompute()
	return err
}

func (n *derivedNode[T]) currentValue() (T, error) {
	var zero T
	if n.pinned {
		return n.value, nil
	}
	if n.eager() {
		// Push-based: a settled eager node returns whatever the last
		// push produced, without computing. A node left uninitialized
		// because its first computation raised a structural error
		// retries on read, the way a lazy node would.
		if n.lastErr != nil {
			return zero, n.lastErr
		}
		if n.initialized && !n.dirty {
			return n.value, nil
		}
	}
	if n.dirty || !n.initialized {
		changed, err := n.recompute()
		if err != nil {
			return zero, err
		}
		if changed {
			n.deliver()
		}
	}
	return n.value, nil
}

func (n *derivedNode[T]) peekValue() (T, bool) {
	if !n.initialized {
		var zero T
		return zero, false
	}
	return n.value, true
}

// recompute is the shared evaluation routine: cycle check against the
// container tree's evaluation stack, dependency-set rebuild from the
// Watch calls actually made, equality-gated value commit. On any error
// the edge set is rolled back so the node keeps its pre-evaluation
// state.
func (n *derivedNode[T]) recompute() (changed bool, err error) {
	root := n.c.root()
	if root.onStack(n.id) {
		return false, root.cycleError(n.atom)
	}
	root.pushEval(n)
	defer root.popEval()

	if n.initialized {
		// Resources registered by the previous evaluation are released
		// before the replacement value is produced.
		n.runCleanups("recompute")
	}

	prevDeps := n.deps
	var newDeps []anyNode
	ctx := &ResolveCtx{
		c:    n.c,
		node: &n.nodeBase,
		collect: func(up anyNode) {
			if dependencyIn(newDeps, up.nodeID()) {
				return
			}
			newDeps = append(newDeps, up)
			up.base().addObserver(n)
		},
	}

	v, err := n.fn(ctx)
	ctx.seal()
	if err != nil {
		// Drop edges added by the failed evaluation that were not
		// there before; the previous dependency set stays in force.
		for _, d := range newDeps {
			if !dependencyIn(prevDeps, d.nodeID()) {
				d.base().removeObserver(n.id)
				n.c.checkDispose(d)
			}
		}
		if isStructural(err) {
			return false, err
		}
		n.lastErr = &ComputeError{Atom: n.atom, Cause: err}
		return false, n.lastErr
	}

	n.deps = newDeps
	for _, d := range prevDeps {
		if !dependencyIn(newDeps, d.nodeID()) {
			d.base().removeObserver(n.id)
			n.c.checkDispose(d)
		}
	}
	n.level = levelAbove(newDeps)

	n.dirty = false
	n.lastErr = nil
	changed = !n.initialized || !n.atomT.equals(n.value, v)
	n.value = v
	n.initialized = true
	n.c.noteRecompute(n.atom)
	return changed, nil
}

func levelAbove(deps []anyNode) int {
	level := 0
	for _, d := range deps {
		if h := d.height(); h >= level {
			level = h + 1
		}
	}
	if level == 0 {
		level = 1
	}
	return level
}

func (n *derivedNode[T]) height() int { return n.level }

func (n *derivedNode[T]) directDeps() []anyNode {
	return n.deps
}

// reactToChange handles an upstream change during a flush. Lazy nodes
// without consumers just go dirty; everything else recomputes at most
// once per flush (the flush dedupes by node).
func (n *derivedNode[T]) reactToChange() bool {
	if n.pinned {
		return false
	}
	if !n.eager() && !n.hasConsumers() {
		n.dirty = true
		return false
	}
	changed, err := n.recompute()
	if err != nil {
		// The error is retained on the node; the next read surfaces it.
		n.c.logRecomputeError(n.atom, err)
		return false
	}
	return changed
}

func (n *derivedNode[T]) hasConsumers() bool {
	return len(n.listeners) > 0 || len(n.observers) > 0
}

// invalidate force-marks the node for recomputation, running its
// cleanups first. Active and eager nodes recompute on the spot.
func (n *derivedNode[T]) invalidate() {
	if n.pinned {
		return
	}
	n.runCleanups("invalidate")
	n.dirty = true
	if n.eager() || n.hasConsumers() {
		changed, err := n.recompute()
		if err != nil {
			n.c.logRecomputeError(n.atom, err)
			return
		}
		if changed {
			n.c.notifyNode(n)
		}
	}
}

func (n *derivedNode[T]) deliver() {
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

func (n *derivedNode[T]) listenerCount() int {
	return len(n.listeners)
}

func (n *derivedNode[T]) addListener(fn func(T)) uint64 {
	id := nextID()
	n.listeners = append(n.listeners, listenerEntry[T]{id: id, fn: fn})
	return id
}

func (n *derivedNode[T]) removeListenerByID(id uint64) {
	n.listeners = removeListener(n.listeners, id)
}

func (n *derivedNode[T]) teardown(reason string) {
	if n.dead {
		return
	}
	n.dead = true
	n.cancelDisposeTimer()
	n.runCleanups(reason)
	n.listeners = nil
	deps := n.deps
	n.deps = nil
	for _, d := range deps {
		d.base().removeObserver(n.id)
		n.c.checkDispose(d)
	}
}
