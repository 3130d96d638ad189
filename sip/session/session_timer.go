package session

import "time"

// Refresher identifies which side is responsible for refreshing the
// session per RFC4028's Session-Expires "refresher" parameter.
type Refresher int

const (
	RefresherUAC Refresher = iota
	RefresherUAS
)

func (r Refresher) String() string {
	if r == RefresherUAC {
		return "uac"
	}
	return "uas"
}

// TimerEvent is what SessionTimer.Poll reports.
type TimerEvent int

const (
	TimerEventNone TimerEvent = iota
	TimerEventRefreshNeeded // local side is the refresher and Δ/2 elapsed
	TimerEventPeerExpired   // peer is the refresher and Δ elapsed with no refresh
)

// SessionTimer implements RFC4028: when both peers advertise "timer",
// the 2xx carries Session-Expires: Δ; refresher=uac|uas. The refresher
// must send a refresh re-INVITE/UPDATE by Δ/2; if the peer is the
// refresher and Δ elapses with nothing received, this session must be
// BYE'd and torn down.
type SessionTimer struct {
	delta      time.Duration
	refresher  Refresher
	isLocal    bool // true if this UA is the refresher
	timer      pendingTimer
	lastRefresh time.Time
}

// NewSessionTimer starts a session timer negotiated with interval
// delta, refreshed by refresher; isLocalRefresher says whether this UA
// is that refresher.
func NewSessionTimer(now time.Time, delta time.Duration, refresher Refresher, isLocalRefresher bool) *SessionTimer {
	st := &SessionTimer{delta: delta, refresher: refresher, isLocal: isLocalRefresher, lastRefresh: now}
	st.arm(now)
	return st
}

func (st *SessionTimer) arm(now time.Time) {
	if st.isLocal {
		st.timer.arm(now.Add(st.delta / 2))
	} else {
		st.timer.arm(now.Add(st.delta))
	}
}

// NextDeadline reports the next time Poll should be called.
func (st *SessionTimer) NextDeadline() (time.Time, bool) {
	if !st.timer.active() {
		return time.Time{}, false
	}
	return st.timer.deadline, true
}

// Poll advances to now, returning whichever event the elapsed timer produces.
func (st *SessionTimer) Poll(now time.Time) TimerEvent {
	if !st.timer.active() || now.Before(st.timer.deadline) {
		return TimerEventNone
	}
	if st.isLocal {
		// Stays armed: the caller is expected to call Refresh once it
		// sends the refresh; until then, repeated polls keep firing
		// RefreshNeeded so a slow application notices.
		st.timer.arm(now.Add(st.delta / 2))
		return TimerEventRefreshNeeded
	}
	st.timer.clear()
	return TimerEventPeerExpired
}

// Refresh records that a refresh (re-INVITE/UPDATE, or an inbound one
// from the peer) happened at now, resetting the deadline.
func (st *SessionTimer) Refresh(now time.Time) {
	st.lastRefresh = now
	st.arm(now)
}
