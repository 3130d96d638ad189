package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingQueue_DropsNewestOnceFull(t *testing.T) {
	q := newPendingQueue(2)
	assert.True(t, q.Push([]byte("a")))
	assert.True(t, q.Push([]byte("b")))
	assert.False(t, q.Push([]byte("c")))
	assert.Equal(t, uint64(1), q.Dropped())

	drained := q.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "a", string(drained[0]))
	assert.Equal(t, "b", string(drained[1]))
	assert.Equal(t, 0, q.Len())
}

func TestPendingQueue_ZeroCapDisablesBuffering(t *testing.T) {
	q := newPendingQueue(0)
	assert.False(t, q.Push([]byte("x")))
	assert.Equal(t, uint64(1), q.Dropped())
	assert.Empty(t, q.Drain())
}
