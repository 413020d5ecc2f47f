package extensions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	honeycomb "github.com/AegisLabsOrg/Honeycomb"
)

func TestLoggingRecordsOperations(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := honeycomb.NewContainer(
		honeycomb.WithExtension(NewLogging(zap.New(core))),
	)
	defer c.Dispose()

	cell := honeycomb.State(1, honeycomb.WithName("cell"))
	_, err := honeycomb.Read(c, cell)
	require.NoError(t, err)
	require.NoError(t, honeycomb.Write(c, cell, 2))

	completed := logs.FilterMessage("operation completed").All()
	require.NotEmpty(t, completed)

	kinds := make(map[string]bool)
	for _, entry := range completed {
		for _, f := range entry.Context {
			if f.Key == "op" {
				kinds[f.String] = true
			}
		}
	}
	assert.True(t, kinds["resolve"])
	assert.True(t, kinds["write"])
}

func TestLoggingRecordsFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	c := honeycomb.NewContainer(
		honeycomb.WithExtension(NewLogging(zap.New(core))),
	)
	defer c.Dispose()

	broken := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (int, error) {
		return 0, assert.AnError
	}, honeycomb.WithName("broken"))

	_, err := honeycomb.Read(c, broken)
	require.Error(t, err)
	assert.NotEmpty(t, logs.FilterMessage("operation failed").All())
}

func TestLoggingNilLoggerDefaultsToNop(t *testing.T) {
	c := honeycomb.NewContainer(
		honeycomb.WithExtension(NewLogging(nil)),
	)
	defer c.Dispose()

	cell := honeycomb.State("x")
	v, err := honeycomb.Read(c, cell)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}
