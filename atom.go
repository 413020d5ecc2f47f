package honeycomb

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Kind identifies what sort of reactive slot an atom describes.
type Kind int

const (
	// KindState is a mutable leaf cell.
	KindState Kind = iota
	// KindComputed is a pull-based derived value, recomputed on read
	// when dirty.
	KindComputed
	// KindEager is a push-based derived value, recomputed the instant
	// any dependency changes.
	KindEager
	// KindSafe is a derived value whose compute errors are captured
	// into a Result instead of propagating.
	KindSafe
	// KindAsync is a derived value computed through a suspending thunk,
	// exposed as an AsyncValue tri-state.
	KindAsync
	// KindChannel is a one-shot event broadcaster with no cached value.
	KindChannel
)

func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindComputed:
		return "computed"
	case KindEager:
		return "eager"
	case KindSafe:
		return "safe"
	case KindAsync:
		return "async"
	case KindChannel:
		return "channel"
	default:
		return "unknown"
	}
}

type disposeMode int

const (
	disposeKeepAlive disposeMode = iota
	disposeAuto
	disposeDelayed
)

// DisposePolicy governs when an unused node (no listeners, no
// observers) is torn down and forgotten by its container.
type DisposePolicy struct {
	mode  disposeMode
	delay time.Duration
}

// KeepAlive never disposes the node. This is the default.
var KeepAlive = DisposePolicy{mode: disposeKeepAlive}

// AutoDispose tears the node down the moment its last listener and
// observer are gone. The next resolution starts over from the atom's
// initial value.
var AutoDispose = DisposePolicy{mode: disposeAuto}

// Delayed behaves like AutoDispose after a grace period. Resubscribing
// within the period cancels the pending disposal.
func Delayed(d time.Duration) DisposePolicy {
	return DisposePolicy{mode: disposeDelayed, delay: d}
}

func (p DisposePolicy) String() string {
	switch p.mode {
	case disposeAuto:
		return "autoDispose"
	case disposeDelayed:
		return fmt.Sprintf("delayed(%s)", p.delay)
	default:
		return "keepAlive"
	}
}

type deliveryMode int

const (
	deliveryDrop deliveryMode = iota
	deliveryBuffer
	deliveryTTL
)

// DeliveryStrategy fixes how an effect channel treats payloads emitted
// while listeners come and go. It is set once at channel creation.
type DeliveryStrategy struct {
	mode     deliveryMode
	capacity int
	ttl      time.Duration
}

// Drop delivers to currently-active listeners only; payloads emitted
// with no listener are lost.
func Drop() DeliveryStrategy {
	return DeliveryStrategy{mode: deliveryDrop}
}

// BufferN keeps the last k payloads in a ring buffer and replays them,
// in order, to every new listener before live delivery.
func BufferN(k int) DeliveryStrategy {
	if k <= 0 {
		panic("honeycomb: BufferN capacity must be positive")
	}
	return DeliveryStrategy{mode: deliveryBuffer, capacity: k}
}

// TTL buffers payloads for d of wall-clock time; expired entries are
// evicted before every emit and every new listen.
func TTL(d time.Duration) DeliveryStrategy {
	if d <= 0 {
		panic("honeycomb: TTL duration must be positive")
	}
	return DeliveryStrategy{mode: deliveryTTL, ttl: d}
}

// ComputeFn is the compute function of a synchronous derived atom.
// Dependencies are declared by calling Watch on the ctx; the dependency
// set is rebuilt from the calls actually made on every evaluation.
type ComputeFn[T any] func(ctx *ResolveCtx) (T, error)

// Thunk is the suspending portion of an async computation. It runs on
// its own goroutine; the context is cancelled when the owning container
// is disposed.
type Thunk[T any] func(ctx context.Context) (T, error)

// AsyncComputeFn is the compute function of an async derived atom. The
// function body is the synchronous phase: Watch is only valid there.
// The returned thunk is the suspension point; reads made inside it are
// not tracked, which the signature makes impossible to get wrong by
// accident.
type AsyncComputeFn[T any] func(ctx *ResolveCtx) (Thunk[T], error)

// AnyAtom is the type-erased view of a descriptor, used for node
// registries, override tables and extension hooks.
type AnyAtom interface {
	Kind() Kind
	Policy() DisposePolicy
	GetTag(tag any) (any, bool)
	SetTag(tag any, val any)

	setPolicy(p DisposePolicy)
	newNode(c *Container, override any, hasOverride bool) anyNode
}

// Atom is an immutable descriptor naming a slot of reactive state.
// Identity is the pointer: the same *Atom resolves to the same node
// within a given scope chain. Atoms carry no runtime value.
type Atom[T any] struct {
	kind   Kind
	policy DisposePolicy
	equal  func(T, T) bool
	tags   map[any]any
	build  func(a *Atom[T], c *Container, override any, hasOverride bool) anyNode
}

func (a *Atom[T]) Kind() Kind            { return a.kind }
func (a *Atom[T]) Policy() DisposePolicy { return a.policy }

func (a *Atom[T]) GetTag(tag any) (any, bool) {
	val, ok := a.tags[tag]
	return val, ok
}

func (a *Atom[T]) SetTag(tag any, val any) {
	a.tags[tag] = val
}

func (a *Atom[T]) setPolicy(p DisposePolicy) { a.policy = p }

func (a *Atom[T]) newNode(c *Container, override any, hasOverride bool) anyNode {
	return a.build(a, c, override, hasOverride)
}

func (a *Atom[T]) equals(x, y T) bool {
	if a.equal != nil {
		return a.equal(x, y)
	}
	return defaultEquals(x, y)
}

// AtomOption is a modifier applied at atom construction.
type AtomOption func(AnyAtom)

// WithDisposePolicy sets the atom's dispose policy.
func WithDisposePolicy(p DisposePolicy) AtomOption {
	return func(a AnyAtom) {
		a.setPolicy(p)
	}
}

// WithName tags the atom with a human-readable name for diagnostics.
func WithName(name string) AtomOption {
	return func(a AnyAtom) {
		AtomName.Set(a, name)
	}
}

// WithAtomTag sets a typed metadata tag on the atom.
func WithAtomTag[T any](tag Tag[T], val T) AtomOption {
	return func(a AnyAtom) {
		tag.Set(a, val)
	}
}

// WithEquality replaces the default equality used by the change gate.
// The type parameter must match the atom's value type.
func WithEquality[T any](eq func(T, T) bool) AtomOption {
	return func(a AnyAtom) {
		at, ok := a.(*Atom[T])
		if !ok {
			panic(fmt.Sprintf("honeycomb: WithEquality[%T] applied to %T", *new(T), a))
		}
		at.equal = eq
	}
}

// State creates a mutable state cell descriptor with an initial value.
func State[T any](initial T, opts ...AtomOption) *Atom[T] {
	a := &Atom[T]{kind: KindState, policy: KeepAlive, tags: make(map[any]any)}
	a.build = func(a *Atom[T], c *Container, override any, hasOverride bool) anyNode {
		v := initial
		if hasOverride {
			v = override.(T)
		}
		return newStateNode(c, a, v)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Computed creates a lazy derived descriptor: the compute function runs
// on first read and again on read after a dependency change made the
// node dirty. Nodes with active consumers recompute eagerly instead, so
// subscribers never observe a stale value.
func Computed[T any](fn ComputeFn[T], opts ...AtomOption) *Atom[T] {
	return newDerivedAtom(KindComputed, fn, opts...)
}

// Eager creates a push-based derived descriptor: the compute function
// runs at materialization and immediately on every dependency change,
// regardless of consumer count. Read never computes.
func Eager[T any](fn ComputeFn[T], opts ...AtomOption) *Atom[T] {
	return newDerivedAtom(KindEager, fn, opts...)
}

// Safe creates a derived descriptor whose compute body runs inside an
// error boundary: raised errors and panics become a Failure result, a
// normal return a Success. Structural errors (circular dependency,
// disposed container) still propagate to the reader.
func Safe[T any](fn ComputeFn[T], opts ...AtomOption) *Atom[Result[T]] {
	a := &Atom[Result[T]]{kind: KindSafe, policy: KeepAlive, tags: make(map[any]any)}
	a.equal = resultsEqual[T](defaultEquals[T])
	wrapped := func(ctx *ResolveCtx) (Result[T], error) {
		v, err := runGuarded(fn, ctx)
		if err != nil {
			if isStructural(err) {
				return Result[T]{}, err
			}
			return Failure[T](err, debug.Stack()), nil
		}
		return Success(v), nil
	}
	a.build = func(a *Atom[Result[T]], c *Container, override any, hasOverride bool) anyNode {
		n := newDerivedNode(c, a, wrapped)
		if hasOverride {
			n.pin(override.(Result[T]))
		}
		return n
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Async creates an async derived descriptor. The compute function's
// body is the synchronous phase, where Watch collects dependencies; the
// returned thunk runs on a goroutine. Every trigger bumps a generation
// counter and flips the value to loading (carrying previous data);
// completions whose generation is no longer current are discarded.
func Async[T any](fn AsyncComputeFn[T], opts ...AtomOption) *Atom[AsyncValue[T]] {
	a := &Atom[AsyncValue[T]]{kind: KindAsync, policy: KeepAlive, tags: make(map[any]any)}
	a.equal = asyncValuesEqual[T](defaultEquals[T])
	a.build = func(a *Atom[AsyncValue[T]], c *Container, override any, hasOverride bool) anyNode {
		n := newAsyncNode(c, a, fn)
		if hasOverride {
			n.pin(override.(AsyncValue[T]))
		}
		return n
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func newDerivedAtom[T any](kind Kind, fn ComputeFn[T], opts ...AtomOption) *Atom[T] {
	a := &Atom[T]{kind: kind, policy: KeepAlive, tags: make(map[any]any)}
	a.build = func(a *Atom[T], c *Container, override any, hasOverride bool) anyNode {
		n := newDerivedNode(c, a, fn)
		if hasOverride {
			n.pin(override.(T))
		}
		return n
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// runGuarded invokes fn converting a panic into an error, preserving
// structural errors untouched.
func runGuarded[T any](fn ComputeFn[T], ctx *ResolveCtx) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// EffectAtom describes a one-shot event channel. Channels hold no
// current value; they only dispatch payloads to listeners according to
// their delivery strategy.
type EffectAtom[T any] struct {
	strategy DeliveryStrategy
	tags     map[any]any
}

// Channel creates an effect channel descriptor with a fixed delivery
// strategy.
func Channel[T any](strategy DeliveryStrategy, opts ...AtomOption) *EffectAtom[T] {
	a := &EffectAtom[T]{strategy: strategy, tags: make(map[any]any)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *EffectAtom[T]) Kind() Kind            { return KindChannel }
func (a *EffectAtom[T]) Policy() DisposePolicy { return KeepAlive }

func (a *EffectAtom[T]) GetTag(tag any) (any, bool) {
	val, ok := a.tags[tag]
	return val, ok
}

func (a *EffectAtom[T]) SetTag(tag any, val any) {
	a.tags[tag] = val
}

// Channels live until their container is disposed; the policy option is
// rejected to keep the contract visible.
func (a *EffectAtom[T]) setPolicy(p DisposePolicy) {
	panic("honeycomb: effect channels do not take a dispose policy")
}

func (a *EffectAtom[T]) newNode(c *Container, override any, hasOverride bool) anyNode {
	return newChannelNode(c, a)
}

// OverrideValue pairs an atom with a replacement initial value,
// consumed when constructing a child scope.
type OverrideValue struct {
	atom  AnyAtom
	value any
}

// Override builds an override for a state atom's initial value, or a
// pinned constant for a derived atom.
func Override[T any](atom *Atom[T], value T) OverrideValue {
	return OverrideValue{atom: atom, value: value}
}
