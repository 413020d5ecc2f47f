package honeycomb

import (
	"fmt"
	"runtime/debug"
)

// asyncNode derives a value through a suspending thunk. Each trigger
// (materialization, an upstream change, invalidation) bumps the
// generation counter, flips the value to loading (keeping the previous
// data), runs the synchronous phase to collect dependencies, then hands
// the thunk to its own goroutine. A completion commits only while its
// generation is still current; superseded results are discarded
// silently. There is no hard cancellation: a superseded thunk runs to
// completion, only its commit is dropped.
type asyncNode[T any] struct {
	nodeBase
	atomT *Atom[AsyncValue[T]]
	fn    AsyncComputeFn[T]

	value       AsyncValue[T]
	initialized bool
	pinned      bool
	gen         uint64

	deps  []anyNode
	level int

	listeners []listenerEntry[AsyncValue[T]]
}

func newAsyncNode[T any](c *Container, a *Atom[AsyncValue[T]], fn AsyncComputeFn[T]) *asyncNode[T] {
	return &asyncNode[T]{
		nodeBase: makeNodeBase(c, a),
		atomT:    a,
		fn:       fn,
	}
}

func (n *asyncNode[T]) pin(v AsyncValue[T]) {
	n.value = v
	n.initialized = true
	n.pinned = true
}

func (n *asyncNode[T]) initialize() error {
	if !n.pinned {
		n.restart()
	}
	return nil
}

func (n *asyncNode[T]) currentValue() (AsyncValue[T], error) {
	if !n.initialized {
		return AsyncValue[T]{}, &ComputeError{Atom: n.atom, Cause: ErrUninitialized}
	}
	return n.value, nil
}

func (n *asyncNode[T]) peekValue() (AsyncValue[T], bool) {
	if !n.initialized {
		return AsyncValue[T]{}, false
	}
	return n.value, true
}

// restart begins a new generation: set loading with previous data, run
// the sync phase, spawn the thunk. Errors raised in either phase land
// in the error state; they never propagate to a reader. Returns whether
// the visible value changed; it nearly always does, since the loading
// transition itself is a change.
func (n *asyncNode[T]) restart() bool {
	n.gen++
	gen := n.gen

	old := n.value
	prev, hasPrev := old.Data()
	n.value = loadingValue(prev, hasPrev)
	wasInitialized := n.initialized
	n.initialized = true

	thunk, err := n.runSyncPhase()
	if err != nil {
		n.value = asyncErrorValue[T](err, debug.Stack())
	} else {
		go n.await(gen, thunk)
	}

	return !wasInitialized || !n.atomT.equals(old, n.value)
}

// runSyncPhase evaluates the compute function body under the evaluation
// stack, rebuilding the dependency set from the Watch calls made before
// the thunk is returned. The ctx is sealed afterwards, so a stashed ctx
// used inside the thunk fails with ErrWatchSealed instead of recording
// untracked edges.
func (n *asyncNode[T]) runSyncPhase() (Thunk[T], error) {
	root := n.c.root()
	if root.onStack(n.id) {
		return nil, root.cycleError(n.atom)
	}
	root.pushEval(n)
	defer root.popEval()

	if len(n.cleanups) > 0 {
		n.runCleanups("restart")
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

	thunk, err := func() (thunk Thunk[T], err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return n.fn(ctx)
	}()
	ctx.seal()

	if err != nil {
		for _, d := range newDeps {
			if !dependencyIn(prevDeps, d.nodeID()) {
				d.base().removeObserver(n.id)
				n.c.checkDispose(d)
			}
		}
		return nil, err
	}

	n.deps = newDeps
	for _, d := range prevDeps {
		if !dependencyIn(newDeps, d.nodeID()) {
			d.base().removeObserver(n.id)
			n.c.checkDispose(d)
		}
	}
	n.level = levelAbove(newDeps)
	n.c.noteRecompute(n.atom)
	return thunk, nil
}

// await runs the thunk off the gate and commits its outcome, unless the
// generation moved on in the meantime.
func (n *asyncNode[T]) await(gen uint64, thunk Thunk[T]) {
	v, err := func() (v T, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return thunk(n.c.baseContext())
	}()
	trace := []byte(nil)
	if err != nil {
		trace = debug.Stack()
	}

	root := n.c.root()
	root.g.enter()
	defer root.g.leave()

	if n.dead || n.c.isDisposed() || n.gen != gen {
		n.c.logStaleDiscard(n.atom, gen, n.gen)
		return
	}

	if err != nil {
		n.value = asyncErrorValue[T](err, trace)
	} else {
		n.value = dataValue(v)
	}
	n.c.notifyNode(n)
}

func (n *asyncNode[T]) height() int { return n.level }

func (n *asyncNode[T]) directDeps() []anyNode {
	return n.deps
}

func (n *asyncNode[T]) reactToChange() bool {
	if n.pinned {
		return false
	}
	return n.restart()
}

func (n *asyncNode[T]) invalidate() {
	if n.pinned {
		return
	}
	n.runCleanups("invalidate")
	if n.restart() {
		n.c.notifyNode(n)
	}
}

func (n *asyncNode[T]) deliver() {
	if len(n.listeners) == 0 {
		return
	}
	entries := make([]listenerEntry[AsyncValue[T]], len(n.listeners))
	copy(entries, n.listeners)
	v := n.value
	for _, e := range entries {
		e.fn(v)
	}
}

func (n *asyncNode[T]) listenerCount() int {
	return len(n.listeners)
}

func (n *asyncNode[T]) addListener(fn func(AsyncValue[T])) uint64 {
	id := nextID()
	n.listeners = append(n.listeners, listenerEntry[AsyncValue[T]]{id: id, fn: fn})
	return id
}

func (n *asyncNode[T]) removeListenerByID(id uint64) {
	n.listeners = removeListener(n.listeners, id)
}

func (n *asyncNode[T]) teardown(reason string) {
	if n.dead {
		return
	}
	n.dead = true
	n.gen++ // in-flight completions become stale
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
