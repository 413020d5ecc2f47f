package extensions

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	honeycomb "github.com/AegisLabsOrg/Honeycomb"
)

func gatherNames(t *testing.T, reg *prometheus.Registry) map[string]bool {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestMetricsRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := honeycomb.NewContainer(
		honeycomb.WithExtension(NewMetrics(reg)),
	)
	defer c.Dispose()

	count := honeycomb.State(0, honeycomb.WithName("count"))
	doubled := honeycomb.Computed(func(ctx *honeycomb.ResolveCtx) (int, error) {
		v, err := honeycomb.Watch(ctx, count)
		return v * 2, err
	}, honeycomb.WithName("doubled"))

	_, err := honeycomb.Read(c, doubled)
	require.NoError(t, err)
	require.NoError(t, honeycomb.Write(c, count, 5))

	names := gatherNames(t, reg)
	assert.True(t, names["honeycomb_operations_total"])
	assert.True(t, names["honeycomb_operation_duration_seconds"])
	assert.True(t, names["honeycomb_live_nodes"])
	assert.True(t, names["honeycomb_recomputes_total"])
}

func TestMetricsLiveNodesFollowsDisposal(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := honeycomb.NewContainer(
		honeycomb.WithExtension(NewMetrics(reg)),
	)
	defer c.Dispose()

	temp := honeycomb.State("tmp",
		honeycomb.WithName("temp"),
		honeycomb.WithDisposePolicy(honeycomb.AutoDispose),
	)
	unsub, err := honeycomb.Subscribe(c, temp, func(string) {})
	require.NoError(t, err)
	unsub()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "honeycomb_live_nodes" {
			continue
		}
		for _, m := range f.GetMetric() {
			assert.Zero(t, m.GetGauge().GetValue())
		}
	}
}
