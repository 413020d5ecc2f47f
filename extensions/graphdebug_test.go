package extensions

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	honeycomb "github.com/AegisLabsOrg/Honeycomb"
)

func TestGraphDebugRendersFailedAtom(t *testing.T) {
	var buf bytes.Buffer
	handler := NewHumanHandler(&buf, slog.LevelError)

	c := honeycomb.NewContainer(
		honeycomb.WithExtension(NewGraphDebug(handler)),
	)
	defer c.Dispose()

	base := honeycomb.State("base",
		honeycomb.WithName("Base"),
	)
	broken := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (string, error) {
		if _, err := honeycomb.Watch(ctx, base); err != nil {
			return "", err
		}
		return "", assert.AnError
	}, honeycomb.WithName("Broken"))

	_, err := honeycomb.Read(c, broken)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "reactive graph error")
	assert.Contains(t, out, "Broken")
}

func TestGraphDebugSilentHandler(t *testing.T) {
	c := honeycomb.NewContainer(
		honeycomb.WithExtension(NewGraphDebug(NewSilentHandler())),
	)
	defer c.Dispose()

	broken := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (int, error) {
		return 0, assert.AnError
	})
	_, err := honeycomb.Read(c, broken)
	require.Error(t, err)
}

func TestFingerprintStableAcrossEquivalentGraphs(t *testing.T) {
	build := func() *honeycomb.Container {
		c := honeycomb.NewContainer()
		a := honeycomb.State(1, honeycomb.WithName("a"))
		b := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (int, error) {
			v, err := honeycomb.Watch(ctx, a)
			return v + 1, err
		}, honeycomb.WithName("b"))
		_, err := honeycomb.Read(c, b)
		require.NoError(t, err)
		return c
	}

	c1 := build()
	defer c1.Dispose()
	c2 := build()
	defer c2.Dispose()

	assert.Equal(t, Fingerprint(c1), Fingerprint(c2))
	assert.NotZero(t, Fingerprint(c1))
}

func TestFingerprintChangesWithTopology(t *testing.T) {
	c := honeycomb.NewContainer()
	defer c.Dispose()

	a := honeycomb.State(1, honeycomb.WithName("a"))
	_, err := honeycomb.Read(c, a)
	require.NoError(t, err)
	before := Fingerprint(c)

	b := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (int, error) {
		v, err := honeycomb.Watch(ctx, a)
		return v * 2, err
	}, honeycomb.WithName("b"))
	_, err = honeycomb.Read(c, b)
	require.NoError(t, err)

	assert.NotEqual(t, before, Fingerprint(c))
}

func TestHumanHandlerPrintsGraphVerbatim(t *testing.T) {
	var buf bytes.Buffer
	h := NewHumanHandler(&buf, slog.LevelInfo)
	logger := slog.New(h)
	logger.Info("hello", "graph", "\nx\ny")

	require.True(t, strings.Contains(buf.String(), "graph:"))
	assert.Contains(t, buf.String(), "x\ny")
}
