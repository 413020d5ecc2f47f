package honeycomb

import "context"

// OperationKind represents the type of a container operation.
type OperationKind string

const (
	// OpResolve indicates an atom resolution (Read/Subscribe path).
	OpResolve OperationKind = "resolve"
	// OpWrite indicates a state cell write.
	OpWrite OperationKind = "write"
	// OpEmit indicates an effect channel emission.
	OpEmit OperationKind = "emit"
)

// Operation describes what operation is happening.
type Operation struct {
	Kind      OperationKind
	Atom      AnyAtom
	Container *Container
}

// Extension provides hooks into the container lifecycle. Extensions are
// registered per container, sorted by Order, and wrap resolve, write
// and emit operations middleware-style.
type Extension interface {
	// Name returns the extension's name.
	Name() string

	// Order determines extension execution order (lower = earlier).
	Order() int

	// Init is called when the extension is registered to a container.
	Init(c *Container) error

	// Wrap intercepts operations (resolve, write, emit).
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnError handles errors surfaced by an operation.
	OnError(err error, op *Operation, c *Container)

	// OnCleanupError handles cleanup failures. Returns true if the
	// error was handled, false to fall through to the container logger.
	OnCleanupError(err *CleanupError) bool

	// Node lifecycle hooks.
	OnNodeCreated(atom AnyAtom, c *Container)
	OnNodeDisposed(atom AnyAtom, c *Container)

	// OnRecompute fires after each completed evaluation of a derived
	// atom (including the sync phase of async atoms).
	OnRecompute(atom AnyAtom, c *Container)

	// OnStaleResult fires when an async completion is discarded because
	// its generation was superseded.
	OnStaleResult(atom AnyAtom, c *Container)

	// Dispose is called when the container is disposed.
	Dispose(c *Container) error
}

// BaseExtension provides default implementations for Extension methods.
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name.
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(c *Container) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, c *Container) {
}

func (e *BaseExtension) OnCleanupError(err *CleanupError) bool {
	return false
}

func (e *BaseExtension) OnNodeCreated(atom AnyAtom, c *Container) {
}

func (e *BaseExtension) OnNodeDisposed(atom AnyAtom, c *Container) {
}

func (e *BaseExtension) OnRecompute(atom AnyAtom, c *Container) {
}

func (e *BaseExtension) OnStaleResult(atom AnyAtom, c *Container) {
}

func (e *BaseExtension) Dispose(c *Container) error {
	return nil
}
