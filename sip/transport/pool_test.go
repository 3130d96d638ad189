package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ReuseIsSymmetric(t *testing.T) {
	p := NewPool()
	now := time.Unix(0, 0)
	p.Add("conn-1", "203.0.113.5:5060", DirectionInbound, now)

	e, ok := p.Lookup("203.0.113.5:5060", now.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, DirectionInbound, e.Direction)
}

func TestPool_ExpiresAfterIdleTimeout(t *testing.T) {
	p := NewPool()
	start := time.Unix(0, 0)
	p.Add("conn-1", "203.0.113.5:5060", DirectionOutbound, start)

	assert.Empty(t, p.Expired(start.Add(10*time.Second)))
	expired := p.Expired(start.Add(IdleTimeout + time.Second))
	require.Len(t, expired, 1)
	assert.Equal(t, "conn-1", expired[0])
}

func TestPool_TouchResetsDeadline(t *testing.T) {
	p := NewPool()
	start := time.Unix(0, 0)
	p.Add("conn-1", "203.0.113.5:5060", DirectionOutbound, start)
	p.Touch("conn-1", start.Add(20*time.Second))

	assert.Empty(t, p.Expired(start.Add(30*time.Second)))
	assert.Len(t, p.Expired(start.Add(20*time.Second+IdleTimeout+time.Second)), 1)
}
