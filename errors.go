package honeycomb

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by container operations.
var (
	// ErrCircularDependency is wrapped by CycleError when an evaluation
	// re-enters itself directly or transitively.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrUninitialized indicates a node's value was read before it was
	// ever computed.
	ErrUninitialized = errors.New("node value is uninitialized")

	// ErrNotWritable indicates a write was attempted on a non-state atom.
	ErrNotWritable = errors.New("atom is not a writable state cell")

	// ErrContainerDisposed indicates an operation on a disposed container.
	ErrContainerDisposed = errors.New("container is disposed")

	// ErrWatchSealed indicates Watch was called after the synchronous
	// portion of an async computation returned its thunk.
	ErrWatchSealed = errors.New("watch called outside synchronous evaluation")
)

// CycleError reports a circular dependency detected during evaluation.
// Path holds the atoms on the evaluation stack, outermost first, ending
// with the atom that re-entered.
type CycleError struct {
	Path []AnyAtom
}

func (e *CycleError) Error() string {
	names := make([]string, 0, len(e.Path))
	for _, a := range e.Path {
		names = append(names, AtomLabel(a))
	}
	return fmt.Sprintf("circular dependency: %s", strings.Join(names, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCircularDependency
}

// ComputeError wraps an error raised by a derived atom's compute function,
// identifying the atom it came from.
type ComputeError struct {
	Atom  AnyAtom
	Cause error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("computing %s: %v", AtomLabel(e.Atom), e.Cause)
}

func (e *ComputeError) Unwrap() error {
	return e.Cause
}

// CleanupError describes a failed cleanup function registered through
// ResolveCtx.OnCleanup. Context names the trigger: "recompute" or
// "restart" before a re-evaluation, "invalidate", "teardown" or
// "dispose" when the node goes away.
type CleanupError struct {
	Atom    AnyAtom
	Err     error
	Context string
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup of %s during %s: %v", AtomLabel(e.Atom), e.Context, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// isStructural reports whether err is a graph-integrity error that must
// surface to the caller rather than be captured into a result value.
func isStructural(err error) bool {
	return errors.Is(err, ErrCircularDependency) || errors.Is(err, ErrContainerDisposed)
}
