package rtpio

import "github.com/pion/rtcp"

const (
	maxReportBlocks = 31
	maxByeSSRCs     = 31
	defaultMTU      = 1200
)

// SenderInfo is this side's own sender statistics for a Sender Report.
type SenderInfo struct {
	SSRC        uint32
	NTPTime     uint64
	RTPTime     uint32
	PacketCount uint32
	OctetCount  uint32
}

// ReportComposer builds RTCP SR/RR/BYE compound packets bounded by
// its limits: at most 31 report blocks per SR/RR, spilling
// into additional RR packets; at most 31 SSRCs per BYE; total
// compound size bounded by an MTU (default 1200 bytes). Grounded on
// pkg/rtp/rtcp.go and rtcp_session.go's report assembly.
type ReportComposer struct {
	MTU int
}

// NewReportComposer constructs a composer using the default 1200-byte
// MTU.
func NewReportComposer() *ReportComposer {
	return &ReportComposer{MTU: defaultMTU}
}

// ComposeSR builds a sender report carrying as many report blocks as
// fit the 31-block limit, plus additional receiver-report-only
// compounds for any remaining blocks.
func (c *ReportComposer) ComposeSR(sender SenderInfo, blocks []rtcp.ReceptionReport) ([][]byte, error) {
	first := firstN(blocks, maxReportBlocks)
	sr := &rtcp.SenderReport{
		SSRC:        sender.SSRC,
		NTPTime:     sender.NTPTime,
		RTPTime:     sender.RTPTime,
		PacketCount: sender.PacketCount,
		OctetCount:  sender.OctetCount,
		Reports:     first,
	}
	packets, err := c.marshalOne(sr)
	if err != nil {
		return nil, err
	}

	spill, err := c.ComposeRR(sender.SSRC, blocks[len(first):])
	if err != nil {
		return nil, err
	}
	return append(packets, spill...), nil
}

// ComposeRR builds one or more receiver-report compounds, splitting
// blocks across packets at the 31-block limit.
func (c *ReportComposer) ComposeRR(ssrc uint32, blocks []rtcp.ReceptionReport) ([][]byte, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	var packets [][]byte
	rest := blocks
	for len(rest) > 0 {
		n := minInt(len(rest), maxReportBlocks)
		rr := &rtcp.ReceiverReport{SSRC: ssrc, Reports: rest[:n]}
		rrPackets, err := c.marshalOne(rr)
		if err != nil {
			return nil, err
		}
		packets = append(packets, rrPackets...)
		rest = rest[n:]
	}
	return packets, nil
}

// ComposeBYE builds one or more Goodbye packets, splitting SSRCs
// across packets at the 31-source limit.
func (c *ReportComposer) ComposeBYE(ssrcs []uint32, reason string) ([][]byte, error) {
	var packets [][]byte
	rest := ssrcs
	for len(rest) > 0 {
		n := minInt(len(rest), maxByeSSRCs)
		bye := &rtcp.Goodbye{Sources: rest[:n], Reason: reason}
		byePackets, err := c.marshalOne(bye)
		if err != nil {
			return nil, err
		}
		packets = append(packets, byePackets...)
		rest = rest[n:]
	}
	return packets, nil
}

// marshalOne serializes a single compound packet. RTCP compounds
// aren't fragmentable below the transport, so exceeding the MTU is
// reported rather than silently sent oversized.
func (c *ReportComposer) marshalOne(packet rtcp.Packet) ([][]byte, error) {
	raw, err := rtcp.Marshal([]rtcp.Packet{packet})
	if err != nil {
		return nil, err
	}
	mtu := c.MTU
	if mtu <= 0 {
		mtu = defaultMTU
	}
	if len(raw) > mtu {
		return nil, ErrCompoundExceedsMTU
	}
	return [][]byte{raw}, nil
}

func firstN(blocks []rtcp.ReceptionReport, n int) []rtcp.ReceptionReport {
	if len(blocks) <= n {
		return blocks
	}
	return blocks[:n]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
