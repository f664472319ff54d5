package ircx

import (
	"strconv"
	"time"
)

// PendingRequest is a future-like handle for a multi-reply request/response
// exchange (WHOIS, WHOWAS, a MONITOR query) that accumulates numerics until
// a terminator arrives or a deadline passes, built on a deadline-bounded
// temporary handler registered with Caller.
type PendingRequest struct {
	done    chan struct{}
	cancel  func()
	result  []*Message
	err     error
}

// Messages returns every reply message accumulated before completion.
func (p *PendingRequest) Messages() []*Message { return p.result }

// Err returns the terminal error, if the request failed or timed out.
func (p *PendingRequest) Err() error { return p.err }

// Done returns a channel closed once the request has concluded.
func (p *PendingRequest) Done() <-chan struct{} { return p.done }

// Cancel aborts the request early; Err will report ErrCancelled.
func (p *PendingRequest) Cancel() {
	p.cancel()
}

// newPendingRequest registers a terminator-driven accumulation: every
// message matching any of collect is appended to the result; the request
// concludes when a message matching any of terminators arrives, or after
// timeout elapses.
func (c *Client) newPendingRequest(timeout time.Duration, collect, terminators []string) *PendingRequest {
	p := &PendingRequest{done: make(chan struct{})}

	c.pendingMu.Lock()
	c.pending[p] = struct{}{}
	c.pendingMu.Unlock()

	var ids []string
	finish := func(err error) {
		select {
		case <-p.done:
			return
		default:
		}
		p.err = err
		for _, id := range ids {
			c.Handlers.Remove(id)
		}
		c.pendingMu.Lock()
		delete(c.pending, p)
		c.pendingMu.Unlock()
		close(p.done)
	}

	for _, cmd := range collect {
		id := c.Handlers.Add(cmd, func(cl *Client, m *Message) {
			p.result = append(p.result, m)
		})
		ids = append(ids, id)
	}
	for _, cmd := range terminators {
		id := c.Handlers.Add(cmd, func(cl *Client, m *Message) {
			p.result = append(p.result, m)
			finish(nil)
		})
		ids = append(ids, id)
	}

	cancelTimer := c.sched.After(timeout, func() {
		finish(&TimedOutError{Operation: "pending request"})
	})

	p.cancel = func() {
		cancelTimer()
		finish(ErrCancelled)
	}

	return p
}

// Whois sends a WHOIS query and returns a PendingRequest that resolves once
// RPL_ENDOFWHOIS arrives or timeout elapses.
func (c *Client) Whois(nick string, timeout time.Duration) (*PendingRequest, error) {
	if !IsValidNick(nick) {
		return nil, &ErrInvalidTarget{Target: nick}
	}
	p := c.newPendingRequest(timeout,
		[]string{RPL_WHOISUSER, RPL_WHOISSERVER, RPL_WHOISOPERATOR, RPL_WHOISIDLE, RPL_WHOISCHANNELS, RPL_AWAY, RPL_WHOISACCOUNT, RPL_WHOISSECURE},
		[]string{RPL_ENDOFWHOIS})
	c.send(&Message{Command: WHOIS, Params: []string{nick}})
	return p, nil
}

// Whowas sends a WHOWAS query and returns a PendingRequest that resolves
// once RPL_ENDOFWHOWAS arrives or timeout elapses.
func (c *Client) Whowas(nick string, amount int, timeout time.Duration) (*PendingRequest, error) {
	if !IsValidNick(nick) {
		return nil, &ErrInvalidTarget{Target: nick}
	}
	p := c.newPendingRequest(timeout, []string{RPL_WHOWASUSER}, []string{RPL_ENDOFWHOWAS})
	params := []string{nick}
	if amount > 0 {
		params = append(params, strconv.Itoa(amount))
	}
	c.send(&Message{Command: WHOWAS, Params: params})
	return p, nil
}
