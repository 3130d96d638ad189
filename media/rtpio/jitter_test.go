package rtpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitterBuffer_PopOrdersByExtendedSequence(t *testing.T) {
	jb := NewJitterBuffer(10)
	assert.Equal(t, PushInserted, jb.Push(5, 500, []byte("e")))
	assert.Equal(t, PushInserted, jb.Push(3, 300, []byte("c")))
	assert.Equal(t, PushInserted, jb.Push(4, 400, []byte("d")))

	r, ok := jb.Pop(1000)
	require.True(t, ok)
	assert.Equal(t, uint32(300), r.Timestamp)
	r, ok = jb.Pop(1000)
	require.True(t, ok)
	assert.Equal(t, uint32(400), r.Timestamp)
	r, ok = jb.Pop(1000)
	require.True(t, ok)
	assert.Equal(t, uint32(500), r.Timestamp)
}

func TestJitterBuffer_LateAndDuplicateAreDroppedAndCounted(t *testing.T) {
	jb := NewJitterBuffer(10)
	jb.Push(10, 1000, []byte("a"))
	_, ok := jb.Pop(1000)
	require.True(t, ok)

	assert.Equal(t, PushLate, jb.Push(10, 1000, []byte("stale")))
	jb.Push(11, 1100, []byte("b"))
	assert.Equal(t, PushDuplicate, jb.Push(11, 1100, []byte("dup")))

	late, dup, _ := jb.Stats()
	assert.Equal(t, uint64(1), late)
	assert.Equal(t, uint64(1), dup)
}

func TestJitterBuffer_GapMaterializesAsVacantAndIsConsumedAsLost(t *testing.T) {
	jb := NewJitterBuffer(10)
	jb.Push(1, 100, []byte("a"))
	jb.Push(3, 300, []byte("c")) // seq 2 is a gap

	r, ok := jb.Pop(1000)
	require.True(t, ok)
	assert.Equal(t, uint32(100), r.Timestamp)

	r, ok = jb.Pop(1000)
	require.True(t, ok)
	assert.Equal(t, uint32(300), r.Timestamp, "the vacant slot for seq 2 is consumed, not returned")

	_, _, lost := jb.Stats()
	assert.Equal(t, uint64(1), lost)
}

func TestJitterBuffer_OverflowDropsOldestEntry(t *testing.T) {
	jb := NewJitterBuffer(2)
	jb.Push(1, 100, []byte("a"))
	jb.Push(2, 200, []byte("b"))
	jb.Push(3, 300, []byte("c")) // evicts seq 1's entry

	r, ok := jb.Pop(1000)
	require.True(t, ok)
	assert.Equal(t, uint32(200), r.Timestamp, "seq 1 was evicted on overflow")
}

func TestJitterBuffer_PopRespectsMaxTimestamp(t *testing.T) {
	jb := NewJitterBuffer(10)
	jb.Push(1, 100, []byte("a"))
	jb.Push(2, 900, []byte("b"))

	r, ok := jb.Pop(500)
	require.True(t, ok)
	assert.Equal(t, uint32(100), r.Timestamp)

	_, ok = jb.Pop(500)
	assert.False(t, ok, "the next entry's timestamp is beyond max_ts")

	r, ok = jb.Pop(900)
	require.True(t, ok)
	assert.Equal(t, uint32(900), r.Timestamp)
}
