package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcall/rtcstack/sip/message"
)

type recordingUsage struct {
	received []*message.Request
}

func (u *recordingUsage) Name() string { return "recording" }
func (u *recordingUsage) Receive(now time.Time, req *message.Request) bool {
	u.received = append(u.received, req)
	return true
}

func TestDialog_DispatchesInDeliveryOrder(t *testing.T) {
	d := New(Key{CallID: "abc", LocalTag: "l", RemoteTag: "r"}, 5)
	usage := &recordingUsage{}
	d.AddUsage(usage)

	now := time.Unix(0, 0)
	unconsumed := d.Receive(now, 7, reqWithCSeq(7))
	assert.Empty(t, unconsumed)
	assert.Empty(t, usage.received, "7 is buffered, nothing dispatched yet")

	unconsumed = d.Receive(now, 5, reqWithCSeq(5))
	assert.Empty(t, unconsumed)
	require.Len(t, usage.received, 1)

	unconsumed = d.Receive(now, 6, reqWithCSeq(6))
	assert.Empty(t, unconsumed)
	require.Len(t, usage.received, 3, "6 closes the gap, draining the buffered 7 too")
	assert.Equal(t, uint32(8), d.NextPeerCSeq())
}

func TestDialog_UnconsumedRequestIsReported(t *testing.T) {
	d := New(Key{CallID: "abc"}, 1)
	unconsumed := d.Receive(time.Unix(0, 0), 1, reqWithCSeq(1))
	require.Len(t, unconsumed, 1, "no usage registered, so nothing consumes it")
}

func TestManager_CreateFindRemove(t *testing.T) {
	m := NewManager()
	key := Key{CallID: "xyz"}

	d, err := m.Create(key, 1)
	require.NoError(t, err)
	require.NotNil(t, d)

	_, err = m.Create(key, 1)
	assert.ErrorIs(t, err, ErrDialogExists)

	found, ok := m.Find(key)
	require.True(t, ok)
	assert.Same(t, d, found)

	m.Remove(key)
	_, ok = m.Find(key)
	assert.False(t, ok)
}
