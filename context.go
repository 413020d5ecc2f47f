package honeycomb

// ResolveCtx is passed into every derived atom's compute function. It
// carries the dependency collector for the evaluation in progress and
// the cleanup registry of the evaluating node.
//
// A ResolveCtx is only valid during the synchronous portion of the
// evaluation it was created for. For async atoms that means the body of
// the compute function, before the returned thunk: the ctx is sealed
// the moment the thunk is handed back.
type ResolveCtx struct {
	c       *Container
	node    *nodeBase
	collect func(up anyNode)
	sealed  bool
}

// Container returns the container the evaluating node lives in.
func (ctx *ResolveCtx) Container() *Container {
	return ctx.c
}

// OnCleanup registers a cleanup function on the evaluating node. The
// cleanups run in reverse registration order when the node is discarded:
// re-evaluation after invalidation, dispose-policy teardown, or
// container disposal.
func (ctx *ResolveCtx) OnCleanup(fn func() error) {
	if ctx.sealed {
		panic("honeycomb: OnCleanup after synchronous evaluation ended")
	}
	ctx.node.onCleanup(fn)
}

func (ctx *ResolveCtx) seal() {
	ctx.sealed = true
	ctx.collect = nil
}

// Watch reads an atom from inside a compute function, registering a
// dependency edge from the evaluating node to it. The edge set is
// rebuilt from the Watch calls actually made on every evaluation, so
// conditional dependencies drop off as soon as a computation stops
// reading them.
//
// Watch fails with a CycleError when the target is already evaluating
// (directly or transitively through this node), and with ErrWatchSealed
// when called after the synchronous phase of an async computation.
func Watch[D any](ctx *ResolveCtx, atom *Atom[D]) (D, error) {
	var zero D
	if ctx == nil || ctx.sealed || ctx.collect == nil {
		return zero, ErrWatchSealed
	}

	n, err := ctx.c.resolveNode(atom)
	if err != nil {
		return zero, err
	}

	root := ctx.c.root()
	if root.onStack(n.nodeID()) {
		return zero, root.cycleError(n.anyAtom())
	}

	tn, ok := n.(valueNode[D])
	if !ok {
		return zero, &ComputeError{Atom: atom, Cause: ErrUninitialized}
	}
	v, err := tn.currentValue()
	if err != nil {
		return zero, err
	}

	// Edge is registered only after the upstream value is defined, so a
	// failed evaluation leaves no half-built edges behind.
	ctx.collect(n)
	return v, nil
}

// valueNode is the typed read surface of a node, with the per-kind read
// semantics: state and eager nodes return their current value, lazy and
// safe nodes compute when dirty, async nodes return the tri-state as is.
type valueNode[T any] interface {
	anyNode
	currentValue() (T, error)
}

// subscribable is a node accepting external listeners.
type subscribable[T any] interface {
	valueNode[T]
	addListener(fn func(T)) uint64
	removeListenerByID(id uint64)
}

// peekable exposes the cached value without resolving or computing.
type peekable[T any] interface {
	peekValue() (T, bool)
}
