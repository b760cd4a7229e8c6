package backing

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrowAllocateFree(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := FromArrow(mem)
	b, err := a.Allocate(200)
	require.NoError(t, err)
	assert.Len(t, b, 200)
	assert.Equal(t, 200, mem.CurrentAlloc())

	for i := range b {
		b[i] = byte(i)
	}
	require.NoError(t, a.Free(b))
	assert.Equal(t, 0, mem.CurrentAlloc())
}

func TestArrowRejectsNonPositiveSize(t *testing.T) {
	_, err := Go().Allocate(0)
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = Go().Allocate(-8)
	require.ErrorIs(t, err, ErrInvalidSize)
}

type panickingAllocator struct{ memory.Allocator }

func (panickingAllocator) Allocate(int) []byte { panic("out of memory") }

func TestArrowPanicBecomesExhausted(t *testing.T) {
	a := FromArrow(panickingAllocator{memory.NewGoAllocator()})
	b, err := a.Allocate(64)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Nil(t, b)
}

func TestLimitExhaustionAndRecovery(t *testing.T) {
	l := Limit(Go(), 256)

	first, err := l.Allocate(200)
	require.NoError(t, err)
	assert.Equal(t, 200, l.Used())

	_, err = l.Allocate(100)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 200, l.Used(), "failed request must not be charged")

	require.NoError(t, l.Free(first))
	assert.Equal(t, 0, l.Used())

	second, err := l.Allocate(100)
	require.NoError(t, err)
	assert.Len(t, second, 100)

	l.SetLimit(100)
	_, err = l.Allocate(1)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestCountingOutstanding(t *testing.T) {
	c := Count(Go())

	a, err := c.Allocate(64)
	require.NoError(t, err)
	b, err := c.Allocate(128)
	require.NoError(t, err)

	allocs, bytes := c.Outstanding()
	assert.EqualValues(t, 2, allocs)
	assert.EqualValues(t, 192, bytes)

	require.NoError(t, c.Free(a))
	require.NoError(t, c.Free(b))

	allocs, bytes = c.Outstanding()
	assert.Zero(t, allocs)
	assert.Zero(t, bytes)
}

func TestCountingSkipsFailedRequests(t *testing.T) {
	c := Count(Limit(Go(), 10))
	_, err := c.Allocate(11)
	require.ErrorIs(t, err, ErrExhausted)

	allocs, bytes := c.Outstanding()
	assert.Zero(t, allocs)
	assert.Zero(t, bytes)
}

var errFreeFailed = errors.New("free failed")

// stuckAllocator never gives memory back.
type stuckAllocator struct{ Allocator }

func (stuckAllocator) Free([]byte) error { return errFreeFailed }

func TestFailedFreeStaysCharged(t *testing.T) {
	l := Limit(stuckAllocator{Go()}, 256)
	b, err := l.Allocate(200)
	require.NoError(t, err)
	require.ErrorIs(t, l.Free(b), errFreeFailed)
	assert.Equal(t, 200, l.Used())

	c := Count(stuckAllocator{Go()})
	b, err = c.Allocate(64)
	require.NoError(t, err)
	require.ErrorIs(t, c.Free(b), errFreeFailed)
	allocs, bytes := c.Outstanding()
	assert.EqualValues(t, 1, allocs)
	assert.EqualValues(t, 64, bytes)
}
