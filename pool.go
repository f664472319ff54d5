package ircx

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyPooled is returned by Pool.Connect when the given Client already
// belongs to another (or the same) Pool.
var ErrAlreadyPooled = errors.New("client already belongs to a pool")

// Pool hosts several Clients' event loops side by side, generalizing the
// teacher's per-client ctxgroup task group (conn.go's execLoop/readLoop/
// sendLoop/pingLoop goroutines) to many clients at once. Each client still
// runs its own goroutine via Run; fairness comes from the Go scheduler
// time-slicing across them exactly as it would across any other set of
// goroutines — Pool adds only the bookkeeping to add, connect, and tear
// down a group of clients together.
type Pool struct {
	mu      sync.Mutex
	clients []*Client
}

// NewPool constructs an empty Pool.
func NewPool() *Pool { return &Pool{} }

// Connect adds c to the pool and connects it. A Client may not belong to
// more than one Pool at a time; calling Connect on an already-pooled client
// returns ErrAlreadyPooled without affecting its existing pool membership.
func (p *Pool) Connect(ctx context.Context, c *Client) error {
	p.mu.Lock()
	if c.pool != nil {
		p.mu.Unlock()
		return ErrAlreadyPooled
	}
	c.pool = p
	p.clients = append(p.clients, c)
	p.mu.Unlock()

	if err := c.Connect(ctx); err != nil {
		p.forget(c)
		return err
	}
	return nil
}

func (p *Pool) forget(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cl := range p.clients {
		if cl == c {
			p.clients = append(p.clients[:i], p.clients[i+1:]...)
			break
		}
	}
	c.pool = nil
}

// Remove sends QUIT to c's connection (if any) and removes it from the
// pool, freeing it to join another Pool or reconnect standalone.
func (p *Pool) Remove(c *Client) {
	c.Quit("")
	p.forget(c)
}

// Clients returns a snapshot of currently pooled clients.
func (p *Pool) Clients() []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Client(nil), p.clients...)
}

// HandleForever runs every pooled client's event loop concurrently and
// blocks until ctx is cancelled or every client's Run has returned. Clients
// added to the pool after HandleForever starts are not picked up — callers
// that need dynamic membership should call HandleForever again for the new
// client, or restructure around a single long-lived pool populated before
// the call.
func (p *Pool) HandleForever(ctx context.Context) error {
	clients := p.Clients()
	if len(clients) == 0 {
		return nil
	}

	errCh := make(chan error, len(clients))
	for _, c := range clients {
		go func(c *Client) {
			errCh <- c.Run(ctx)
		}(c)
	}

	var firstErr error
	for range clients {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
