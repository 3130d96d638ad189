package rtpio

// jitterEntry is one occupied slot in the buffer's window.
type jitterEntry struct {
	timestamp uint32
	payload   []byte
}

// PushResult classifies the outcome of a JitterBuffer.Push call.
type PushResult int

const (
	PushInserted PushResult = iota
	PushLate
	PushDuplicate
)

// PopResult is one entry handed back by JitterBuffer.Pop.
type PopResult struct {
	ExtSeq    uint64
	Timestamp uint32
	Payload   []byte
}

// JitterBuffer is the bounded-capacity ordered window:
// entries keyed by extended sequence number, push/pop(max_ts), gaps
// materialized as vacant slots consumed as lost on playout, oldest
// entry dropped on overflow. Restructured from the heap+output-channel
// design in pkg/media/jitter_buffer.go into this explicit, sans-I/O
// shape.
type JitterBuffer struct {
	capacity int
	tracker  SeqTracker
	entries  map[uint64]jitterEntry

	started  bool
	cursor   uint64 // next extended seq to be popped
	maxSeen  uint64 // highest extended seq ever pushed
	origin   uint64 // cursor position until a pop, skip or eviction first moves it

	lateDropped uint64
	dupDropped  uint64
	lostCount   uint64
}

// NewJitterBuffer constructs a buffer holding at most capacity
// entries, defaulting to 1000 when capacity is non-positive.
func NewJitterBuffer(capacity int) *JitterBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &JitterBuffer{capacity: capacity, entries: map[uint64]jitterEntry{}}
}

// Push inserts one packet. A packet before the current playout cursor
// (already popped, skipped or evicted) is late and dropped; until the
// cursor has first moved, an earlier packet instead moves the cursor
// back to itself. A packet already present at its extended sequence
// number is a duplicate and dropped; pushing beyond capacity evicts the
// oldest window entry (occupied or vacant).
func (j *JitterBuffer) Push(seq uint16, timestamp uint32, payload []byte) PushResult {
	ext := j.tracker.Extend(seq)

	if !j.started {
		j.started = true
		j.cursor = ext
		j.maxSeen = ext
		j.origin = ext
	}

	if ext < j.cursor && j.cursor == j.origin {
		// nothing popped, skipped or evicted yet: an earlier packet still fits
		j.cursor, j.origin = ext, ext
	}

	if ext < j.cursor {
		j.lateDropped++
		return PushLate
	}
	if _, exists := j.entries[ext]; exists {
		j.dupDropped++
		return PushDuplicate
	}

	j.entries[ext] = jitterEntry{timestamp: timestamp, payload: payload}
	if ext > j.maxSeen {
		j.maxSeen = ext
	}

	for j.maxSeen-j.cursor+1 > uint64(j.capacity) {
		if _, exists := j.entries[j.cursor]; exists {
			delete(j.entries, j.cursor)
		} else {
			j.lostCount++
		}
		j.cursor++
	}

	return PushInserted
}

// Pop returns the next occupied entry whose timestamp is at or before
// maxTS, consuming any leading vacant slots as lost along the way. It
// only consumes a vacant slot up to the highest extended sequence
// number ever observed — a gap this side hasn't yet seen anything
// past is left alone rather than guessed at.
func (j *JitterBuffer) Pop(maxTS uint32) (PopResult, bool) {
	for {
		if !j.started || j.cursor > j.maxSeen {
			return PopResult{}, false
		}
		e, exists := j.entries[j.cursor]
		if !exists {
			j.lostCount++
			j.cursor++
			continue
		}
		if tsAfter(e.timestamp, maxTS) {
			return PopResult{}, false
		}
		delete(j.entries, j.cursor)
		res := PopResult{ExtSeq: j.cursor, Timestamp: e.timestamp, Payload: e.payload}
		j.cursor++
		return res, true
	}
}

// Len reports the number of occupied entries currently buffered.
func (j *JitterBuffer) Len() int {
	return len(j.entries)
}

// Stats reports the running late/duplicate/lost counters.
func (j *JitterBuffer) Stats() (late, duplicate, lost uint64) {
	return j.lateDropped, j.dupDropped, j.lostCount
}

// tsAfter reports whether a is after b in RTP timestamp space,
// honoring 32-bit wraparound.
func tsAfter(a, b uint32) bool {
	return int32(a-b) > 0
}
