package rtpio

import (
	"testing"
	"time"

	"github.com/pion/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_PopsInSendAtOrderWithInsertionTiebreak(t *testing.T) {
	base := time.Unix(0, 0)
	p := NewPacer(8000, randutil.NewMathRandomGenerator())

	p.Push(base.Add(30*time.Millisecond), 30*time.Millisecond, []byte("c"), 0, false, nil)
	p.Push(base.Add(10*time.Millisecond), 10*time.Millisecond, []byte("a"), 0, false, nil)
	p.Push(base.Add(10*time.Millisecond), 15*time.Millisecond, []byte("a2"), 0, false, nil)

	_, ok := p.Pop(base)
	assert.False(t, ok, "nothing is due yet")

	first, ok := p.Pop(base.Add(10 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, []byte("a"), first.Payload, "same send_at, first inserted pops first")

	second, ok := p.Pop(base.Add(10 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, []byte("a2"), second.Payload)

	third, ok := p.Pop(base.Add(30 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, []byte("c"), third.Payload)

	assert.Equal(t, first.SequenceNumber+1, second.SequenceNumber)
	assert.Equal(t, second.SequenceNumber+1, third.SequenceNumber)
}

func TestPacer_TimestampDerivesFromMediaTime(t *testing.T) {
	base := time.Unix(0, 0)
	p := NewPacer(8000, randutil.NewMathRandomGenerator())

	first := p.Push(base, 0, []byte("a"), 0, false, nil)
	second := p.Push(base.Add(20*time.Millisecond), 20*time.Millisecond, []byte("b"), 0, false, nil)

	assert.Equal(t, uint32(160), second.Timestamp-first.Timestamp, "20ms at an 8kHz clock is 160 ticks")
}
