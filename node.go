package honeycomb

import (
	"sync/atomic"
	"time"
)

// idCounter issues process-wide unique IDs for nodes and listeners.
var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}

// anyNode is the type-erased live instance bound to one atom within one
// container. All methods run under the container tree's gate.
type anyNode interface {
	nodeID() uint64
	anyAtom() AnyAtom
	owner() *Container
	base() *nodeBase

	// deliver invokes the node's external listeners with its current
	// value. Called once per flush for each changed node.
	deliver()

	// listenerCount is the number of external subscribers.
	listenerCount() int

	// height is the node's level in the graph: 0 for leaves, one more
	// than the highest dependency for derived nodes, as of the last
	// completed evaluation. Flushes recompute in ascending height order
	// so a node sees all of its changed inputs settled first.
	height() int

	// teardown runs cleanups and detaches the node from its upstream
	// dependencies. After teardown the node is forgotten by its
	// container and the next resolution starts over.
	teardown(reason string)
}

// observerNode is a derived node sitting downstream of a dependency
// edge.
type observerNode interface {
	anyNode

	// directDeps is the upstream set collected by the most recent
	// completed evaluation.
	directDeps() []anyNode

	// reactToChange handles a dependency change during a flush:
	// recompute, restart, or just mark dirty depending on node kind and
	// consumer count. Returns whether this node's own value changed and
	// must keep propagating.
	reactToChange() bool
}

// delayFunc schedules delayed-dispose timers; swapped in tests.
var delayFunc = time.AfterFunc

// nodeBase carries the bookkeeping shared by every node kind: identity,
// the downstream observer set, registered cleanups and the pending
// delayed-dispose timer. Observer sets are rebuilt by downstream
// evaluations, not persistent structure.
type nodeBase struct {
	id        uint64
	c         *Container
	atom      AnyAtom
	observers []observerNode

	cleanups     []func() error
	disposeTimer *time.Timer
	forcedAlive  bool
	dead         bool
}

func makeNodeBase(c *Container, atom AnyAtom) nodeBase {
	return nodeBase{id: nextID(), c: c, atom: atom}
}

func (b *nodeBase) nodeID() uint64   { return b.id }
func (b *nodeBase) anyAtom() AnyAtom { return b.atom }
func (b *nodeBase) owner() *Container {
	return b.c
}
func (b *nodeBase) base() *nodeBase { return b }

func (b *nodeBase) addObserver(o observerNode) {
	for _, existing := range b.observers {
		if existing.nodeID() == o.nodeID() {
			return
		}
	}
	b.observers = append(b.observers, o)
}

func (b *nodeBase) removeObserver(id uint64) {
	for i, existing := range b.observers {
		if existing.nodeID() == id {
			b.observers = append(b.observers[:i], b.observers[i+1:]...)
			return
		}
	}
}

// snapshotObservers copies the observer set so notification fan-out
// survives edges being rebuilt mid-flush.
func (b *nodeBase) snapshotObservers() []observerNode {
	if len(b.observers) == 0 {
		return nil
	}
	out := make([]observerNode, len(b.observers))
	copy(out, b.observers)
	return out
}

func (b *nodeBase) onCleanup(fn func() error) {
	b.cleanups = append(b.cleanups, fn)
}

// runCleanups executes registered cleanups in reverse registration
// order, routing failures through extensions and the container logger.
func (b *nodeBase) runCleanups(reason string) {
	entries := b.cleanups
	b.cleanups = nil
	for i := len(entries) - 1; i >= 0; i-- {
		if err := entries[i](); err != nil {
			b.c.reportCleanupError(&CleanupError{Atom: b.atom, Err: err, Context: reason})
		}
	}
}

func (b *nodeBase) cancelDisposeTimer() {
	if b.disposeTimer != nil {
		b.disposeTimer.Stop()
		b.disposeTimer = nil
	}
}

// listenerEntry is an external subscriber registered on a node or
// channel.
type listenerEntry[T any] struct {
	id uint64
	fn func(T)
}

func removeListener[T any](entries []listenerEntry[T], id uint64) []listenerEntry[T] {
	for i, e := range entries {
		if e.id == id {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

// dependencyIn reports whether the node with the given ID is present in
// a dependency set.
func dependencyIn(deps []anyNode, id uint64) bool {
	for _, d := range deps {
		if d.nodeID() == id {
			return true
		}
	}
	return false
}
