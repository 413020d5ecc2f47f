package extensions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	honeycomb "github.com/AegisLabsOrg/Honeycomb"
)

func TestTracingPassesValuesThrough(t *testing.T) {
	c := honeycomb.NewContainer(
		honeycomb.WithExtension(NewTracing(nil)),
	)
	defer c.Dispose()

	cell := honeycomb.State(41, honeycomb.WithName("cell"))
	next := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (int, error) {
		v, err := honeycomb.Watch(ctx, cell)
		return v + 1, err
	}, honeycomb.WithName("next"))

	v, err := honeycomb.Read(c, next)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	require.NoError(t, honeycomb.Write(c, cell, 10))
	v, err = honeycomb.Read(c, next)
	require.NoError(t, err)
	assert.Equal(t, 11, v)
}

func TestTracingPropagatesErrors(t *testing.T) {
	c := honeycomb.NewContainer(
		honeycomb.WithExtension(NewTracing(nil)),
	)
	defer c.Dispose()

	broken := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (int, error) {
		return 0, assert.AnError
	})
	_, err := honeycomb.Read(c, broken)
	require.ErrorIs(t, err, assert.AnError)
}
