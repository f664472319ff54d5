package ircx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(nick string) *Client {
	return New(Config{Nick: nick, Server: "irc.example.net"})
}

func TestPoolConnectRejectsAlreadyPooled(t *testing.T) {
	p1 := NewPool()
	p2 := NewPool()
	c := newTestClient("alice")

	c.pool = p1
	err := p2.Connect(context.Background(), c)
	assert.ErrorIs(t, err, ErrAlreadyPooled)
	assert.Empty(t, p2.Clients())
}

func TestPoolForgetAndClients(t *testing.T) {
	p := NewPool()
	a := newTestClient("a")
	b := newTestClient("b")

	p.mu.Lock()
	p.clients = append(p.clients, a, b)
	p.mu.Unlock()
	a.pool = p
	b.pool = p

	clients := p.Clients()
	require.Len(t, clients, 2)

	p.forget(a)
	clients = p.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, b, clients[0])
	assert.Nil(t, a.pool)
}

func TestPoolClientsSnapshotIsIndependent(t *testing.T) {
	p := NewPool()
	a := newTestClient("a")
	p.mu.Lock()
	p.clients = append(p.clients, a)
	p.mu.Unlock()

	snap := p.Clients()
	snap[0] = nil
	assert.NotNil(t, p.Clients()[0])
}

func TestPoolRemove(t *testing.T) {
	p := NewPool()
	a := newTestClient("a")
	p.mu.Lock()
	p.clients = append(p.clients, a)
	p.mu.Unlock()
	a.pool = p

	p.Remove(a)
	assert.Empty(t, p.Clients())
	assert.Nil(t, a.pool)
}

func TestPoolHandleForeverEmptyReturnsNil(t *testing.T) {
	p := NewPool()
	err := p.HandleForever(context.Background())
	assert.NoError(t, err)
}

func TestPoolHandleForeverStopsOnContextCancel(t *testing.T) {
	p := NewPool()
	a := newTestClient("a")
	p.mu.Lock()
	p.clients = append(p.clients, a)
	p.mu.Unlock()
	a.pool = p

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.HandleForever(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
