package honeycomb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Container resolves atoms to live nodes through a scope chain with
// local overrides, and owns batching and dispose-policy lifecycle.
//
// Resolution contract: an atom resolves to the nearest ancestor
// container (including the container asked) that already has a node for
// it or holds an override for it; otherwise the node is created at the
// root. An atom without any override is therefore a process-wide
// singleton shared by every descendant scope; overrides create
// scope-local isolation only for the overridden atom.
type Container struct {
	id     string
	parent *Container
	g      *gate

	logger     *zap.Logger
	tags       map[any]any
	overrides  map[AnyAtom]any
	nodes      map[AnyAtom]anyNode
	extensions []Extension

	// root-only flush and evaluation bookkeeping
	evalStack  []anyNode
	batchDepth int
	pending    []anyNode
	pendingIDs map[uint64]bool

	ctx      context.Context
	cancel   context.CancelFunc
	disposed bool
}

// ContainerOption is a modifier for containers.
type ContainerOption func(*Container)

// WithLogger installs a structured logger. The default is a nop logger;
// children inherit the parent's.
func WithLogger(l *zap.Logger) ContainerOption {
	return func(c *Container) {
		c.logger = l
	}
}

// WithOverride installs override values at construction.
func WithOverride(ovs ...OverrideValue) ContainerOption {
	return func(c *Container) {
		for _, ov := range ovs {
			c.overrides[ov.atom] = ov.value
		}
	}
}

// WithExtension registers an extension on the container.
func WithExtension(ext Extension) ContainerOption {
	return func(c *Container) {
		if err := c.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithContainerTag sets a typed metadata tag on the container.
func WithContainerTag[T any](tag Tag[T], val T) ContainerOption {
	return func(c *Container) {
		tag.Set(c, val)
	}
}

// NewContainer creates a root container.
func NewContainer(opts ...ContainerOption) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Container{
		id:         uuid.New().String(),
		g:          &gate{},
		logger:     zap.NewNop(),
		tags:       make(map[any]any),
		overrides:  make(map[AnyAtom]any),
		nodes:      make(map[AnyAtom]anyNode),
		pendingIDs: make(map[uint64]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewScope creates a child container with local overrides. The child
// shares the parent tree's single logical thread of control; only the
// overridden atoms are isolated, everything else resolves through the
// parent chain (see the Container resolution contract).
func NewScope(parent *Container, overrides ...OverrideValue) *Container {
	if parent == nil {
		panic("honeycomb: NewScope requires a parent container")
	}
	ctx, cancel := context.WithCancel(parent.ctx)
	c := &Container{
		id:        uuid.New().String(),
		parent:    parent,
		g:         parent.root().g,
		logger:    parent.logger,
		tags:      make(map[any]any),
		overrides: make(map[AnyAtom]any),
		nodes:     make(map[AnyAtom]anyNode),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, ov := range overrides {
		c.overrides[ov.atom] = ov.value
	}
	return c
}

// ID returns the container's unique identifier.
func (c *Container) ID() string {
	return c.id
}

// Logger returns the container's structured logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// UseExtension registers an extension, keeping the set ordered.
func (c *Container) UseExtension(ext Extension) error {
	c.extensions = append(c.extensions, ext)
	sort.SliceStable(c.extensions, func(i, j int) bool {
		return c.extensions[i].Order() < c.extensions[j].Order()
	})
	return ext.Init(c)
}

// GetTag retrieves a tag value from the container.
func (c *Container) GetTag(tag any) (any, bool) {
	c.g.enter()
	defer c.g.leave()
	v, ok := c.tags[tag]
	return v, ok
}

// SetTag stores a tag value on the container.
func (c *Container) SetTag(tag any, val any) {
	c.g.enter()
	defer c.g.leave()
	c.tags[tag] = val
}

func (c *Container) root() *Container {
	r := c
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (c *Container) isDisposed() bool {
	return c.disposed
}

func (c *Container) baseContext() context.Context {
	return c.ctx
}

// resolveNode applies the resolution invariant: nearest ancestor with a
// cached node or an override, else create at the root.
func (c *Container) resolveNode(a AnyAtom) (anyNode, error) {
	if c.disposed {
		return nil, ErrContainerDisposed
	}
	for s := c; s != nil; s = s.parent {
		if n, ok := s.nodes[a]; ok {
			return n, nil
		}
		if ov, ok := s.overrides[a]; ok {
			return s.materialize(a, ov, true)
		}
	}
	return c.root().materialize(a, nil, false)
}

// findCached walks the chain without materializing.
func (c *Container) findCached(a AnyAtom) (anyNode, bool) {
	for s := c; s != nil; s = s.parent {
		if n, ok := s.nodes[a]; ok {
			return n, true
		}
	}
	return nil, false
}

// materialize creates and caches the node in this container. The node
// is cached before initialization so a re-entrant resolution during an
// eager first computation finds the same instance (and the evaluation
// stack turns it into a cycle error rather than a duplicate).
func (c *Container) materialize(a AnyAtom, override any, hasOverride bool) (anyNode, error) {
	if c.disposed {
		return nil, ErrContainerDisposed
	}
	n := a.newNode(c, override, hasOverride)
	c.nodes[a] = n
	c.eachExtension(func(ext Extension) {
		ext.OnNodeCreated(a, c)
	})
	if init, ok := n.(interface{ initialize() error }); ok {
		if err := init.initialize(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Read resolves the atom and returns its value, computing per node
// kind: state and eager nodes return their current value, lazy and safe
// nodes recompute when dirty, async nodes return the tri-state as is.
func Read[T any](c *Container, atom *Atom[T]) (T, error) {
	var zero T
	c.g.enter()
	defer c.g.leave()

	var out T
	op := &Operation{Kind: OpResolve, Atom: atom, Container: c}
	_, err := c.runWrapped(op, func() (any, error) {
		n, err := c.resolveNode(atom)
		if err != nil {
			return nil, err
		}
		v, err := n.(valueNode[T]).currentValue()
		if err != nil {
			return nil, err
		}
		out = v
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return out, nil
}

// MustRead is Read that panics on structural errors. Convenience for
// graphs known to be acyclic.
func MustRead[T any](c *Container, atom *Atom[T]) T {
	v, err := Read(c, atom)
	if err != nil {
		panic(err)
	}
	return v
}

// Peek returns the cached value without resolving: no node is created,
// no computation triggered, no dependency recorded.
func Peek[T any](c *Container, atom *Atom[T]) (T, bool) {
	var zero T
	c.g.enter()
	defer c.g.leave()

	n, ok := c.findCached(atom)
	if !ok {
		return zero, false
	}
	p, ok := n.(peekable[T])
	if !ok {
		return zero, false
	}
	return p.peekValue()
}

// Write stores a new value into a state cell. Equal values (per the
// atom's equality) are suppressed. Inside a batch the value is stored
// silently and the notification deferred to the outermost flush.
func Write[T any](c *Container, cell *Atom[T], v T) error {
	c.g.enter()
	defer c.g.leave()

	if cell.Kind() != KindState {
		return ErrNotWritable
	}

	op := &Operation{Kind: OpWrite, Atom: cell, Container: c}
	_, err := c.runWrapped(op, func() (any, error) {
		n, err := c.resolveNode(cell)
		if err != nil {
			return nil, err
		}
		sn := n.(*stateNode[T])
		if sn.set(v) {
			c.notifyNode(sn)
		}
		return nil, nil
	})
	return err
}

// Update is read-then-write convenience.
func Update[T any](c *Container, cell *Atom[T], fn func(T) T) error {
	c.g.enter()
	defer c.g.leave()

	cur, err := Read(c, cell)
	if err != nil {
		return err
	}
	return Write(c, cell, fn(cur))
}

// Batch defers all write notifications issued inside fn to a single
// flush when the outermost batch returns. Each affected node is
// notified exactly once, regardless of how many writes touched it.
// Nested calls run inline; only the outermost call flushes.
func (c *Container) Batch(fn func()) {
	root := c.root()
	root.g.enter()
	defer root.g.leave()

	root.batchDepth++
	defer func() {
		root.batchDepth--
		if root.batchDepth == 0 {
			root.flushPending()
		}
	}()
	fn()
}

// Subscribe registers an external listener on the atom's node. The node
// is computed first if needed, so the listener always joins a node with
// a defined value; this is why Subscribe can fail with a cycle error.
// A pending delayed-dispose timer is cancelled. The returned function
// removes the listener and re-evaluates the dispose policy.
func Subscribe[T any](c *Container, atom *Atom[T], fn func(T)) (func(), error) {
	c.g.enter()
	defer c.g.leave()

	n, err := c.resolveNode(atom)
	if err != nil {
		return nil, err
	}
	sn := n.(subscribable[T])
	n.base().cancelDisposeTimer()
	if _, err := sn.currentValue(); err != nil {
		return nil, err
	}

	id := sn.addListener(fn)
	return func() {
		c.g.enter()
		defer c.g.leave()
		sn.removeListenerByID(id)
		c.checkDispose(n)
	}, nil
}

// Emit dispatches a payload on an effect channel. Channels resolve
// toward the root and are not subject to overrides; whether an
// unlistened payload survives is up to the channel's delivery strategy.
func Emit[T any](c *Container, ch *EffectAtom[T], payload T) error {
	c.g.enter()
	defer c.g.leave()

	op := &Operation{Kind: OpEmit, Atom: ch, Container: c}
	_, err := c.runWrapped(op, func() (any, error) {
		n, err := c.resolveNode(ch)
		if err != nil {
			return nil, err
		}
		n.(*channelNode[T]).emit(payload)
		return nil, nil
	})
	return err
}

// On registers a listener on an effect channel. Buffered strategies
// replay their retained payloads, in order, before live delivery
// starts. All concurrent listeners receive every delivered payload.
func On[T any](c *Container, ch *EffectAtom[T], fn func(T)) (*Subscription, error) {
	c.g.enter()
	defer c.g.leave()

	n, err := c.resolveNode(ch)
	if err != nil {
		return nil, err
	}
	cn := n.(*channelNode[T])
	id := cn.listen(fn)
	return &Subscription{cancel: func() {
		c.g.enter()
		defer c.g.leave()
		cn.removeListenerByID(id)
	}}, nil
}

// Invalidate force-marks the atom's derived node for recomputation,
// running its cleanups. Lazy and safe nodes without consumers go dirty
// and recompute on next read; active, eager and async nodes recompute
// or restart immediately. No-op for unmaterialized atoms, state cells
// and channels.
func (c *Container) Invalidate(atom AnyAtom) {
	c.g.enter()
	defer c.g.leave()
	c.invalidateLocked(atom)
}

func (c *Container) invalidateLocked(atom AnyAtom) {
	n, ok := c.findCached(atom)
	if !ok {
		return
	}
	if inv, ok := n.(interface{ invalidate() }); ok {
		inv.invalidate()
	}
}

// InvalidateAllComputed force-marks every derived node reachable from
// this container's chain dirty. Useful as a hot-reload hammer.
func (c *Container) InvalidateAllComputed() {
	c.g.enter()
	defer c.g.leave()

	for s := c; s != nil; s = s.parent {
		// Snapshot: invalidation can dispose autoDispose dependencies.
		atoms := make([]AnyAtom, 0, len(s.nodes))
		for a := range s.nodes {
			atoms = append(atoms, a)
		}
		for _, a := range atoms {
			switch a.Kind() {
			case KindComputed, KindEager, KindSafe, KindAsync:
				s.invalidateLocked(a)
			}
		}
	}
}

// KeepAlive forces the atom's node to never dispose, regardless of the
// atom's policy. The node is materialized if needed.
func (c *Container) KeepAlive(atom AnyAtom) error {
	c.g.enter()
	defer c.g.leave()

	n, err := c.resolveNode(atom)
	if err != nil {
		return err
	}
	n.base().forcedAlive = true
	n.base().cancelDisposeTimer()
	return nil
}

// Dispose tears down all nodes, channels and pending timers owned
// directly by this container (not ancestors), cancels the context
// in-flight async thunks received, and disposes extensions. Further
// operations on the container fail with ErrContainerDisposed.
func (c *Container) Dispose() error {
	c.g.enter()
	defer c.g.leave()

	if c.disposed {
		return nil
	}
	c.disposed = true
	c.cancel()

	local := make([]anyNode, 0, len(c.nodes))
	for _, n := range c.nodes {
		local = append(local, n)
	}
	c.nodes = make(map[AnyAtom]anyNode)
	for i := len(local) - 1; i >= 0; i-- {
		local[i].teardown("dispose")
	}

	for _, ext := range c.extensions {
		if err := ext.Dispose(c); err != nil {
			return err
		}
	}
	c.logger.Debug("container disposed", zap.String("container", c.id))
	return nil
}

// ExportDependencyGraph snapshots the live observer edges for every
// node in this container's chain: each key maps to the atoms currently
// observing it. Intended for debug tooling.
func (c *Container) ExportDependencyGraph() map[AnyAtom][]AnyAtom {
	c.g.enter()
	defer c.g.leave()

	graph := make(map[AnyAtom][]AnyAtom)
	for s := c; s != nil; s = s.parent {
		for a, n := range s.nodes {
			if _, ok := graph[a]; ok {
				continue
			}
			obs := n.base().snapshotObservers()
			dependents := make([]AnyAtom, 0, len(obs))
			for _, o := range obs {
				dependents = append(dependents, o.anyAtom())
			}
			graph[a] = dependents
		}
	}
	return graph
}

// --- evaluation stack (cycle detection) -------------------------------

func (c *Container) onStack(nodeID uint64) bool {
	root := c.root()
	for _, n := range root.evalStack {
		if n.nodeID() == nodeID {
			return true
		}
	}
	return false
}

func (c *Container) pushEval(n anyNode) {
	root := c.root()
	root.evalStack = append(root.evalStack, n)
}

func (c *Container) popEval() {
	root := c.root()
	root.evalStack = root.evalStack[:len(root.evalStack)-1]
}

// cycleError builds the error path from the evaluation stack, outermost
// first, ending at the atom whose evaluation was re-entered.
func (c *Container) cycleError(target AnyAtom) error {
	root := c.root()
	path := make([]AnyAtom, 0, len(root.evalStack)+1)
	for _, n := range root.evalStack {
		path = append(path, n.anyAtom())
	}
	path = append(path, target)
	return &CycleError{Path: path}
}

// --- change propagation ----------------------------------------------

// notifyNode routes a changed node into the current batch, or flushes
// immediately when no batch is open.
func (c *Container) notifyNode(n anyNode) {
	root := c.root()
	if root.batchDepth > 0 {
		if root.pendingIDs == nil {
			root.pendingIDs = make(map[uint64]bool)
		}
		if !root.pendingIDs[n.nodeID()] {
			root.pendingIDs[n.nodeID()] = true
			root.pending = append(root.pending, n)
		}
		return
	}
	root.flush([]anyNode{n})
}

func (c *Container) flushPending() {
	sources := c.pending
	c.pending = nil
	c.pendingIDs = make(map[uint64]bool)
	if len(sources) > 0 {
		c.flush(sources)
	}
}

// flush fans a set of changed source nodes out through the graph in two
// phases. Settle: reachable derived nodes recompute in ascending height
// order, gated on a direct dependency having changed after the node
// last reacted. A recompute can rewire a node onto an input that had
// not settled yet when the node reacted, so settling repeats until a
// full pass reacts nothing. Deliver: once every value is final, each
// changed node notifies its listeners exactly once, so a subscriber
// never observes a state mixing settled and unsettled inputs.
func (c *Container) flush(sources []anyNode) {
	seq := 0
	changedAt := make(map[uint64]int, len(sources))
	reactedAt := make(map[uint64]int)
	changedNodes := append([]anyNode(nil), sources...)
	for _, s := range sources {
		seq++
		changedAt[s.nodeID()] = seq
	}

	for {
		reach := reachableObservers(changedNodes)
		sort.SliceStable(reach, func(i, j int) bool {
			return reach[i].height() < reach[j].height()
		})
		progressed := false
		for _, o := range reach {
			if !depChangedSince(o, changedAt, reactedAt[o.nodeID()]) {
				continue
			}
			progressed = true
			seq++
			reactedAt[o.nodeID()] = seq
			if o.reactToChange() {
				seq++
				if _, already := changedAt[o.nodeID()]; !already {
					changedNodes = append(changedNodes, o)
				}
				changedAt[o.nodeID()] = seq
			}
		}
		if !progressed {
			break
		}
	}

	for _, n := range changedNodes {
		n.deliver()
	}
}

// reachableObservers walks the current observer edges breadth-first
// from the changed set. Changed derived nodes stay eligible as
// observers of each other: a node that already reacted may have been
// rewired onto a later-settling input and need another look.
func reachableObservers(from []anyNode) []observerNode {
	enqueued := make(map[uint64]bool, len(from))
	inReach := make(map[uint64]bool)
	queue := append([]anyNode(nil), from...)
	for _, s := range queue {
		enqueued[s.nodeID()] = true
	}
	var reach []observerNode
	for i := 0; i < len(queue); i++ {
		for _, o := range queue[i].base().snapshotObservers() {
			if !inReach[o.nodeID()] {
				inReach[o.nodeID()] = true
				reach = append(reach, o)
			}
			if !enqueued[o.nodeID()] {
				enqueued[o.nodeID()] = true
				queue = append(queue, o)
			}
		}
	}
	return reach
}

// depChangedSince reports whether any direct dependency of o changed
// later in this flush than o last reacted.
func depChangedSince(o observerNode, changedAt map[uint64]int, lastReact int) bool {
	for _, d := range o.directDeps() {
		if at, ok := changedAt[d.nodeID()]; ok && at > lastReact {
			return true
		}
	}
	return false
}

// --- dispose policy ---------------------------------------------------

// checkDispose re-evaluates a node's dispose policy after a listener or
// observer went away.
func (c *Container) checkDispose(n anyNode) {
	b := n.base()
	if b.dead || b.forcedAlive {
		return
	}
	if n.listenerCount() > 0 || len(b.observers) > 0 {
		return
	}
	policy := b.atom.Policy()
	switch policy.mode {
	case disposeAuto:
		c.teardownNode(n, "teardown")
	case disposeDelayed:
		if b.disposeTimer != nil {
			return
		}
		owner := n.owner()
		b.disposeTimer = delayFunc(policy.delay, func() {
			owner.root().g.enter()
			defer owner.root().g.leave()
			b.disposeTimer = nil
			if b.dead || b.forcedAlive || owner.disposed {
				return
			}
			if n.listenerCount() > 0 || len(b.observers) > 0 {
				return
			}
			owner.logger.Debug("delayed dispose fired",
				zap.String("atom", AtomLabel(b.atom)),
				zap.String("container", owner.id),
			)
			owner.teardownNode(n, "teardown")
		})
	}
}

// teardownNode forgets the node and runs its teardown. The next
// resolution of the atom starts over from the atom's initial value.
func (c *Container) teardownNode(n anyNode, reason string) {
	owner := n.owner()
	delete(owner.nodes, n.anyAtom())
	n.teardown(reason)
	owner.eachExtension(func(ext Extension) {
		ext.OnNodeDisposed(n.anyAtom(), owner)
	})
}

// --- extension plumbing ----------------------------------------------

func (c *Container) eachExtension(fn func(Extension)) {
	for _, ext := range c.extensions {
		fn(ext)
	}
}

// runWrapped chains extensions around an operation, last registered
// wrapping first, and reports errors to every extension.
func (c *Container) runWrapped(op *Operation, inner func() (any, error)) (any, error) {
	next := inner
	for i := len(c.extensions) - 1; i >= 0; i-- {
		ext := c.extensions[i]
		current := next
		next = func() (any, error) {
			return ext.Wrap(context.Background(), current, op)
		}
	}
	result, err := next()
	if err != nil {
		for _, ext := range c.extensions {
			ext.OnError(err, op, c)
		}
	}
	return result, err
}

func (c *Container) noteRecompute(atom AnyAtom) {
	c.eachExtension(func(ext Extension) {
		ext.OnRecompute(atom, c)
	})
}

func (c *Container) logStaleDiscard(atom AnyAtom, got, current uint64) {
	c.logger.Debug("stale async result discarded",
		zap.String("atom", AtomLabel(atom)),
		zap.Uint64("generation", got),
		zap.Uint64("current", current),
		zap.String("container", c.id),
	)
	c.eachExtension(func(ext Extension) {
		ext.OnStaleResult(atom, c)
	})
}

func (c *Container) logRecomputeError(atom AnyAtom, err error) {
	c.logger.Warn("recompute failed",
		zap.String("atom", AtomLabel(atom)),
		zap.Error(err),
		zap.String("container", c.id),
	)
}

func (c *Container) reportCleanupError(cerr *CleanupError) {
	for _, ext := range c.extensions {
		if ext.OnCleanupError(cerr) {
			return
		}
	}
	c.logger.Warn("cleanup failed",
		zap.String("atom", AtomLabel(cerr.Atom)),
		zap.String("context", cerr.Context),
		zap.Error(cerr.Err),
	)
}
