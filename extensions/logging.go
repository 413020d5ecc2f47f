package extensions

import (
	"context"
	"time"

	"go.uber.org/zap"

	honeycomb "github.com/AegisLabsOrg/Honeycomb"
)

// Logging logs every container operation with its duration and
// outcome, plus node lifecycle events at debug level.
type Logging struct {
	honeycomb.BaseExtension
	logger *zap.Logger
}

// NewLogging creates a logging extension. A nil logger falls back to
// zap's nop logger.
func NewLogging(logger *zap.Logger) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{
		BaseExtension: honeycomb.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *Logging) Wrap(ctx context.Context, next func() (any, error), op *honeycomb.Operation) (any, error) {
	start := time.Now()
	result, err := next()
	fields := []zap.Field{
		zap.String("op", string(op.Kind)),
		zap.Duration("took", time.Since(start)),
	}
	if op.Atom != nil {
		fields = append(fields, zap.String("atom", honeycomb.AtomLabel(op.Atom)))
	}
	if err != nil {
		e.logger.Warn("operation failed", append(fields, zap.Error(err))...)
	} else {
		e.logger.Debug("operation completed", fields...)
	}
	return result, err
}

func (e *Logging) OnNodeCreated(atom honeycomb.AnyAtom, c *honeycomb.Container) {
	e.logger.Debug("node created",
		zap.String("atom", honeycomb.AtomLabel(atom)),
		zap.String("kind", atom.Kind().String()),
		zap.String("container", c.ID()),
	)
}

func (e *Logging) OnNodeDisposed(atom honeycomb.AnyAtom, c *honeycomb.Container) {
	e.logger.Debug("node disposed",
		zap.String("atom", honeycomb.AtomLabel(atom)),
		zap.String("container", c.ID()),
	)
}

func (e *Logging) OnStaleResult(atom honeycomb.AnyAtom, c *honeycomb.Container) {
	e.logger.Debug("stale async result dropped",
		zap.String("atom", honeycomb.AtomLabel(atom)),
		zap.String("container", c.ID()),
	)
}

func (e *Logging) OnCleanupError(err *honeycomb.CleanupError) bool {
	e.logger.Warn("cleanup failed",
		zap.String("atom", honeycomb.AtomLabel(err.Atom)),
		zap.String("context", err.Context),
		zap.Error(err.Err),
	)
	return true
}
