package rtpio

import (
	"container/heap"
	"time"

	"github.com/pion/randutil"
)

// PacedPacket is one packet handed back by Pacer.Pop, stamped with
// its assigned sequence number and RTP timestamp.
type PacedPacket struct {
	SequenceNumber uint16
	Timestamp      uint32
	PayloadType    uint8
	Marker         bool
	Payload        []byte
	Extensions     map[uint8][]byte
}

type pacerItem struct {
	sendAt    time.Time
	insertion uint64
	index     int
	packet    PacedPacket
}

type pacerHeap []*pacerItem

func (h pacerHeap) Len() int { return len(h) }
func (h pacerHeap) Less(i, j int) bool {
	if h[i].sendAt.Equal(h[j].sendAt) {
		return h[i].insertion < h[j].insertion
	}
	return h[i].sendAt.Before(h[j].sendAt)
}
func (h pacerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *pacerHeap) Push(x interface{}) {
	item := x.(*pacerItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *pacerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// Pacer is the outbound pacing queue: packets are
// submitted with a desired send-at instant and popped in (send_at,
// insertion-order) order once due. Sequence numbers are assigned
// monotonically from a random 11-bit start; timestamps derive from
// media time scaled by clock rate and offset from a random reference
// timestamp. Grounded on pkg/rtp/rtp_session.go's sequence/timestamp
// assignment, restructured from its per-packet send call into an
// explicit pop-when-due queue.
type Pacer struct {
	clockRate uint32
	seq       uint16
	refTime   uint32
	refMedia  time.Duration
	started   bool

	queue         pacerHeap
	nextInsertion uint64
}

// NewPacer constructs a pacer for the given RTP clock rate, seeding
// the initial sequence number and reference timestamp from rng.
func NewPacer(clockRate uint32, rng randutil.SequenceGenerator) *Pacer {
	p := &Pacer{
		clockRate: clockRate,
		seq:       uint16(rng.GenerateUint32() & 0x07FF), // random 11-bit start
		refTime:   rng.GenerateUint32(),
	}
	heap.Init(&p.queue)
	return p
}

// Push enqueues a packet to be sent at sendAt, stamping it with the
// next monotonic sequence number and a timestamp derived from
// mediaTime relative to the first Push's media time.
func (p *Pacer) Push(sendAt time.Time, mediaTime time.Duration, payload []byte, payloadType uint8, marker bool, extensions map[uint8][]byte) PacedPacket {
	if !p.started {
		p.started = true
		p.refMedia = mediaTime
	}

	ts := p.refTime + uint32((mediaTime-p.refMedia).Seconds()*float64(p.clockRate))
	pkt := PacedPacket{
		SequenceNumber: p.seq,
		Timestamp:      ts,
		PayloadType:    payloadType,
		Marker:         marker,
		Payload:        payload,
		Extensions:     extensions,
	}
	p.seq++

	item := &pacerItem{sendAt: sendAt, insertion: p.nextInsertion, packet: pkt}
	p.nextInsertion++
	heap.Push(&p.queue, item)
	return pkt
}

// Pop returns the next packet whose send_at is at or before now, if
// one is due.
func (p *Pacer) Pop(now time.Time) (PacedPacket, bool) {
	if len(p.queue) == 0 || p.queue[0].sendAt.After(now) {
		return PacedPacket{}, false
	}
	item := heap.Pop(&p.queue).(*pacerItem)
	return item.packet, true
}

// NextDeadline reports the send_at of the earliest queued packet.
func (p *Pacer) NextDeadline() (time.Time, bool) {
	if len(p.queue) == 0 {
		return time.Time{}, false
	}
	return p.queue[0].sendAt, true
}

// Len reports the number of packets currently queued.
func (p *Pacer) Len() int {
	return len(p.queue)
}
