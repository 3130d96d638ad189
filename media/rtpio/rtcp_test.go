package rtpio

import (
	"testing"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportComposer_SpillsBlocksBeyond31IntoRR(t *testing.T) {
	c := NewReportComposer()
	blocks := make([]rtcp.ReceptionReport, 40)
	for i := range blocks {
		blocks[i] = rtcp.ReceptionReport{SSRC: uint32(i + 1)}
	}

	packets, err := c.ComposeSR(SenderInfo{SSRC: 1}, blocks)
	require.NoError(t, err)
	require.Len(t, packets, 2, "31 blocks in the SR, 9 spilling into one RR")

	parsed, err := rtcp.Unmarshal(packets[0])
	require.NoError(t, err)
	sr := parsed[0].(*rtcp.SenderReport)
	assert.Len(t, sr.Reports, 31)

	parsed, err = rtcp.Unmarshal(packets[1])
	require.NoError(t, err)
	rr := parsed[0].(*rtcp.ReceiverReport)
	assert.Len(t, rr.Reports, 9)
}

func TestReportComposer_ByeSplitsAt31SSRCs(t *testing.T) {
	c := NewReportComposer()
	ssrcs := make([]uint32, 35)
	for i := range ssrcs {
		ssrcs[i] = uint32(i + 1)
	}

	packets, err := c.ComposeBYE(ssrcs, "session ended")
	require.NoError(t, err)
	require.Len(t, packets, 2)

	parsed, err := rtcp.Unmarshal(packets[0])
	require.NoError(t, err)
	assert.Len(t, parsed[0].(*rtcp.Goodbye).Sources, 31)

	parsed, err = rtcp.Unmarshal(packets[1])
	require.NoError(t, err)
	assert.Len(t, parsed[0].(*rtcp.Goodbye).Sources, 4)
}

func TestReportComposer_SRWithNoBlocks(t *testing.T) {
	c := NewReportComposer()
	packets, err := c.ComposeSR(SenderInfo{SSRC: 42, PacketCount: 10, OctetCount: 1000}, nil)
	require.NoError(t, err)
	require.Len(t, packets, 1)

	parsed, err := rtcp.Unmarshal(packets[0])
	require.NoError(t, err)
	sr := parsed[0].(*rtcp.SenderReport)
	assert.Equal(t, uint32(42), sr.SSRC)
	assert.Empty(t, sr.Reports)
}
