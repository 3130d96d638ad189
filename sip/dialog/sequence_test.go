package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcall/rtcstack/sip/message"
)

func reqWithCSeq(cseq uint32) *message.Request {
	req := &message.Request{Method: "INFO"}
	req.SetHeader("CSeq", string(rune('0'+cseq))+" INFO")
	return req
}

// Scenario 3: dialog CSeq reordering. Deliver [5, 7, 6, 8]
// with expected_next=5; delivery order to usages must be [5, 6, 7, 8],
// and a late CSeq 4 is delivered immediately without changing the
// expectation.
func TestSequence_ReordersAndDrains(t *testing.T) {
	seq := NewSequence(5)
	r5, r6, r7, r8 := reqWithCSeq(5), reqWithCSeq(6), reqWithCSeq(7), reqWithCSeq(8)

	out := seq.Deliver(5, r5)
	require.Equal(t, []*message.Request{r5}, out)
	assert.Equal(t, uint32(6), seq.Next())

	out = seq.Deliver(7, r7)
	assert.Empty(t, out, "7 arrives ahead of expectation, buffered")
	assert.Equal(t, uint32(6), seq.Next())

	out = seq.Deliver(6, r6)
	require.Equal(t, []*message.Request{r6, r7}, out, "6 closes the gap and drains the buffered 7")
	assert.Equal(t, uint32(8), seq.Next())

	out = seq.Deliver(8, r8)
	require.Equal(t, []*message.Request{r8}, out)
	assert.Equal(t, uint32(9), seq.Next())

	// CSeq 4 arrives late: delivered immediately as a retransmit, but
	// the expectation (now 9) is unchanged.
	r4 := reqWithCSeq(4)
	out = seq.Deliver(4, r4)
	require.Equal(t, []*message.Request{r4}, out)
	assert.Equal(t, uint32(9), seq.Next())
}

func TestSequence_FarAheadCSeqIsDroppedAsWrap(t *testing.T) {
	seq := NewSequence(1)
	out := seq.Deliver(1+uint32(wrapThreshold), reqWithCSeq(0))
	assert.Nil(t, out)
	assert.Equal(t, uint32(1), seq.Next())
}
