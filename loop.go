package ircx

import (
	"context"
	"sort"
	"sync"
	"time"
)

// timerTask is a single deferred closure scheduled to run on the event
// loop goroutine — the building block component C (event loop & scheduler)
// uses for SASL and PendingRequest deadlines, so that neither needs its own
// goroutine or lock. Reconnection backoff and the ping keepalive do not use
// it.
type timerTask struct {
	id       uint64
	at       time.Time
	fn       func()
	cancelled bool
}

// scheduler is the cooperative, single-threaded task queue: timers and
// deferred work all run on the one goroutine that also dispatches incoming
// messages, so handler code never has to reason about concurrent mutation
// of client/session state. Built on context.Context for cancellation and
// time.Timer for deadlines, composed into one run queue.
type scheduler struct {
	mu     sync.Mutex
	timers []*timerTask
	seq    uint64
	wake   chan struct{}
}

func newScheduler() *scheduler {
	return &scheduler{wake: make(chan struct{}, 1)}
}

func (s *scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// After schedules fn to run on the loop goroutine after d elapses, and
// returns a cancel function.
func (s *scheduler) After(d time.Duration, fn func()) (cancel func()) {
	s.mu.Lock()
	s.seq++
	t := &timerTask{id: s.seq, at: time.Now().Add(d), fn: fn}
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	s.notify()

	return func() {
		s.mu.Lock()
		t.cancelled = true
		s.mu.Unlock()
	}
}

// next returns the nearest pending, non-cancelled deadline, if any.
func (s *scheduler) next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.timers[:0]
	for _, t := range s.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	s.timers = live

	if len(s.timers) == 0 {
		return time.Time{}, false
	}
	sort.Slice(s.timers, func(i, j int) bool { return s.timers[i].at.Before(s.timers[j].at) })
	return s.timers[0].at, true
}

// fireDue runs (and removes) every timer whose deadline has passed.
func (s *scheduler) fireDue() {
	now := time.Now()
	s.mu.Lock()
	var due []*timerTask
	var remaining []*timerTask
	for _, t := range s.timers {
		if !t.cancelled && !t.at.After(now) {
			due = append(due, t)
		} else if !t.cancelled {
			remaining = append(remaining, t)
		}
	}
	s.timers = remaining
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// Run is the cooperative event loop: it reads decoded wire messages from
// rx, dispatches them sequentially through Handlers, and services the
// scheduler's timers, all on this one goroutine. It returns when ctx is
// cancelled or rx is closed (the connection ended).
func (c *Client) Run(ctx context.Context) error {
	for {
		var timerC <-chan time.Time
		if at, ok := c.sched.next(); ok {
			d := time.Until(at)
			if d < 0 {
				d = 0
			}
			timer := time.NewTimer(d)
			timerC = timer.C
			defer timer.Stop()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-c.sched.wake:
			continue

		case <-timerC:
			c.sched.fireDue()

		case m, ok := <-c.rx:
			if !ok {
				return c.lastErr
			}
			c.dispatch(m)
		}
	}
}

// dispatch runs preprocessing (cap/sasl state machine feed) and then the user-visible handler chain, in that order,
// entirely on the loop goroutine.
func (c *Client) dispatch(m *Message) {
	c.preprocess(m)
	c.Handlers.Dispatch(c, m)
}
