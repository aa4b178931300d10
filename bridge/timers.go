package bridge

import (
	"sync"
	"time"
)

// timerSet owns the three session timers. Channels for inactive timers
// are nil so the run loop's select simply never fires them. stopAll
// must run before any other teardown step so a late firing can never
// act on a torn-down transport.
type timerSet struct {
	mu        sync.Mutex
	detection *time.Timer
	overall   *time.Timer
	closePoll *time.Ticker
}

func (t *timerSet) startDetection(d time.Duration) <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detection != nil {
		t.detection.Stop()
	}
	t.detection = time.NewTimer(d)
	return t.detection.C
}

func (t *timerSet) stopDetection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detection != nil {
		t.detection.Stop()
		t.detection = nil
	}
}

// startOverall arms (or re-arms, across a transport fallback) the
// session-wide timeout.
func (t *timerSet) startOverall(d time.Duration) <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.overall != nil {
		t.overall.Stop()
	}
	t.overall = time.NewTimer(d)
	return t.overall.C
}

func (t *timerSet) stopOverall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.overall != nil {
		t.overall.Stop()
		t.overall = nil
	}
}

func (t *timerSet) startClosePoll(d time.Duration) <-chan time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closePoll != nil {
		t.closePoll.Stop()
	}
	t.closePoll = time.NewTicker(d)
	return t.closePoll.C
}

func (t *timerSet) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detection != nil {
		t.detection.Stop()
		t.detection = nil
	}
	if t.overall != nil {
		t.overall.Stop()
		t.overall = nil
	}
	if t.closePoll != nil {
		t.closePoll.Stop()
		t.closePoll = nil
	}
}
