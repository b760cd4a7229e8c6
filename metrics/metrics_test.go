package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fixedpool "github.com/replay/go-fixed-pool"
)

type staticStats fixedpool.Stats

func (s staticStats) Stats() fixedpool.Stats { return fixedpool.Stats(s) }

func TestCollectorExportsSnapshot(t *testing.T) {
	c := NewCollector("orders", staticStats{
		Pools:     2,
		PoolSize:  4096,
		Blocks:    10,
		Available: 54,
		Allocated: 80,
		Total:     8192,
	})

	expected := `
# HELP fixedpool_allocated_bytes Bytes handed out to callers.
# TYPE fixedpool_allocated_bytes gauge
fixedpool_allocated_bytes{pool="orders"} 80
# HELP fixedpool_available_slots Number of free slots across all pools.
# TYPE fixedpool_available_slots gauge
fixedpool_available_slots{pool="orders"} 54
# HELP fixedpool_blocks Number of slots handed out.
# TYPE fixedpool_blocks gauge
fixedpool_blocks{pool="orders"} 10
# HELP fixedpool_pool_bytes Bytes reserved by one pool.
# TYPE fixedpool_pool_bytes gauge
fixedpool_pool_bytes{pool="orders"} 4096
# HELP fixedpool_pools Number of pools in the chain.
# TYPE fixedpool_pools gauge
fixedpool_pools{pool="orders"} 2
# HELP fixedpool_total_bytes Bytes reserved by all pools, bookkeeping included.
# TYPE fixedpool_total_bytes gauge
fixedpool_total_bytes{pool="orders"} 8192
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
	assert.Equal(t, 6, testutil.CollectAndCount(c))
}

func TestCollectorFollowsAllocator(t *testing.T) {
	cfg := fixedpool.NewConfig()
	cfg.SlotsPerPool = 16
	a, err := fixedpool.New[uint64](cfg)
	require.NoError(t, err)
	defer a.Release()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector("ids", a)))

	for i := 0; i < 20; i++ {
		_, err := a.Allocate()
		require.NoError(t, err)
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	assert.Equal(t, float64(2), values["fixedpool_pools"])
	assert.Equal(t, float64(20), values["fixedpool_blocks"])
	assert.Equal(t, float64(12), values["fixedpool_available_slots"])
	assert.Equal(t, float64(160), values["fixedpool_allocated_bytes"])
	assert.Equal(t, float64(a.TotalSize()), values["fixedpool_total_bytes"])
}

func TestCollectorRegistersTwiceWithDistinctNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector("a", staticStats{})))
	require.NoError(t, reg.Register(NewCollector("b", staticStats{})))
	assert.Error(t, reg.Register(NewCollector("a", staticStats{})))
}
