package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/m1gwings/treedrawer/tree"

	honeycomb "github.com/AegisLabsOrg/Honeycomb"
)

// GraphDebug renders the live dependency graph when an operation
// fails, and exposes a stable fingerprint of the graph topology for
// change detection across runs.
//
// Usage:
//
//	// Human-readable output with the graph drawn as a tree
//	ext := extensions.NewGraphDebug(extensions.NewHumanHandler(os.Stderr, slog.LevelError))
//
//	// Structured JSON
//	ext := extensions.NewGraphDebug(slog.NewJSONHandler(os.Stderr, nil))
//
//	// Silent (tests)
//	ext := extensions.NewGraphDebug(extensions.NewSilentHandler())
type GraphDebug struct {
	honeycomb.BaseExtension

	resolved map[honeycomb.AnyAtom]bool
	failed   map[honeycomb.AnyAtom]error
	logger   *slog.Logger
}

// NewGraphDebug creates a graph debug extension writing through the
// given slog handler.
func NewGraphDebug(handler slog.Handler) *GraphDebug {
	return &GraphDebug{
		BaseExtension: honeycomb.NewBaseExtension("graph-debug"),
		resolved:      make(map[honeycomb.AnyAtom]bool),
		failed:        make(map[honeycomb.AnyAtom]error),
		logger:        slog.New(handler),
	}
}

func (e *GraphDebug) Wrap(ctx context.Context, next func() (any, error), op *honeycomb.Operation) (any, error) {
	result, err := next()
	if op.Kind == honeycomb.OpResolve {
		if err == nil {
			e.resolved[op.Atom] = true
			delete(e.failed, op.Atom)
		} else {
			e.failed[op.Atom] = err
		}
	}
	return result, err
}

// OnError draws the dependency graph around the failed atom.
func (e *GraphDebug) OnError(err error, op *honeycomb.Operation, c *honeycomb.Container) {
	e.logger.Error("reactive graph error",
		"atom", honeycomb.AtomLabel(op.Atom),
		"error", err.Error(),
		"operation", string(op.Kind),
		"graph", e.renderGraph(c, op.Atom),
		"fingerprint", strconv.FormatUint(Fingerprint(c), 16),
	)
}

// renderGraph draws each root node (one with no upstream edges in the
// snapshot) as a tree of its dependents, marking resolution status.
func (e *GraphDebug) renderGraph(c *honeycomb.Container, failed honeycomb.AnyAtom) string {
	graph := c.ExportDependencyGraph()
	if len(graph) == 0 {
		return "(empty)"
	}

	dependent := make(map[honeycomb.AnyAtom]bool)
	for _, ds := range graph {
		for _, d := range ds {
			dependent[d] = true
		}
	}

	roots := make([]honeycomb.AnyAtom, 0, len(graph))
	for a := range graph {
		if !dependent[a] {
			roots = append(roots, a)
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		return honeycomb.AtomLabel(roots[i]) < honeycomb.AtomLabel(roots[j])
	})

	var sb strings.Builder
	for _, root := range roots {
		t := tree.NewTree(tree.NodeString(e.label(root, failed)))
		e.addChildren(t, graph, root, failed, map[honeycomb.AnyAtom]bool{root: true})
		sb.WriteString("\n")
		sb.WriteString(t.String())
	}
	return sb.String()
}

func (e *GraphDebug) addChildren(t *tree.Tree, graph map[honeycomb.AnyAtom][]honeycomb.AnyAtom, a honeycomb.AnyAtom, failed honeycomb.AnyAtom, seen map[honeycomb.AnyAtom]bool) {
	children := append([]honeycomb.AnyAtom(nil), graph[a]...)
	sort.Slice(children, func(i, j int) bool {
		return honeycomb.AtomLabel(children[i]) < honeycomb.AtomLabel(children[j])
	})
	for _, child := range children {
		ct := t.AddChild(tree.NodeString(e.label(child, failed)))
		if seen[child] {
			continue
		}
		seen[child] = true
		e.addChildren(ct, graph, child, failed, seen)
	}
}

func (e *GraphDebug) label(a honeycomb.AnyAtom, failed honeycomb.AnyAtom) string {
	name := honeycomb.AtomLabel(a)
	switch {
	case a == failed:
		return name + " [FAILED]"
	case e.resolved[a]:
		return name + " [ok]"
	default:
		if ferr, ok := e.failed[a]; ok {
			return fmt.Sprintf("%s [error: %v]", name, ferr)
		}
		return name
	}
}

// Fingerprint hashes the container's current graph topology. Two
// containers whose graphs have the same labeled edge sets produce the
// same value.
func Fingerprint(c *honeycomb.Container) uint64 {
	graph := c.ExportDependencyGraph()
	lines := make([]string, 0, len(graph))
	for a, ds := range graph {
		labels := make([]string, 0, len(ds))
		for _, d := range ds {
			labels = append(labels, honeycomb.AtomLabel(d))
		}
		sort.Strings(labels)
		lines = append(lines, honeycomb.AtomLabel(a)+"->"+strings.Join(labels, ","))
	}
	sort.Strings(lines)

	h := xxhash.New()
	for _, line := range lines {
		_, _ = io.WriteString(h, line)
		_, _ = io.WriteString(h, "\n")
	}
	return h.Sum64()
}

// SilentHandler discards all log records. Useful in tests.
type SilentHandler struct{}

// NewSilentHandler creates a handler that drops everything.
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool { return false }
func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}
func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *SilentHandler) WithGroup(name string) slog.Handler       { return h }

// HumanHandler formats records for terminals, printing the rendered
// graph attribute verbatim so the tree drawing survives.
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a human-readable log handler.
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{writer: writer, level: level}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == "graph" {
			_, writeErr = fmt.Fprintf(h.writer, "  graph:%s\n", a.Value.String())
		} else {
			_, writeErr = fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value)
		}
		return writeErr == nil
	})
	return writeErr
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *HumanHandler) WithGroup(name string) slog.Handler       { return h }
