package ircx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRegister starts c.register in a goroutine (registration drives its
// state machine off dispatched messages, not a real connection) and returns
// a channel delivering its result.
func runRegister(c *Client, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- c.register(ctx) }()
	return done
}

func waitRegister(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("register did not complete in time")
		return nil
	}
}

func TestRegisterSucceedsOnWelcome(t *testing.T) {
	c := New(Config{Nick: "alice", User: "alice", Server: "irc.example.net", DisableCapTracking: true})
	c.state.reset("alice", "alice", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runRegister(c, ctx)
	time.Sleep(20 * time.Millisecond)
	c.Handlers.Dispatch(c, ParseMessage(":irc.example 001 alice :Welcome"))

	err := waitRegister(t, done)
	assert.NoError(t, err)
	assert.Equal(t, "alice", c.GetNick())
}

func TestRegisterNickCollisionFallsBackThenSucceeds(t *testing.T) {
	c := New(Config{
		Nick: "alice", User: "alice", Server: "irc.example.net",
		DisableCapTracking: true, FallbackNicks: []string{"alice_"},
	})
	c.state.reset("alice", "alice", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runRegister(c, ctx)
	time.Sleep(20 * time.Millisecond)
	c.Handlers.Dispatch(c, ParseMessage(":irc.example 433 * alice :Nickname is already in use"))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "alice_", c.GetNick())

	c.Handlers.Dispatch(c, ParseMessage(":irc.example 001 alice_ :Welcome"))
	err := waitRegister(t, done)
	assert.NoError(t, err)
}

func TestRegisterPasswordMismatchFails(t *testing.T) {
	c := New(Config{Nick: "alice", User: "alice", Server: "irc.example.net", DisableCapTracking: true})
	c.state.reset("alice", "alice", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := runRegister(c, ctx)
	time.Sleep(20 * time.Millisecond)
	c.Handlers.Dispatch(c, ParseMessage(":irc.example 464 * :Password incorrect"))

	err := waitRegister(t, done)
	require.Error(t, err)
	var regErr *RegistrationError
	assert.ErrorAs(t, err, &regErr)
	assert.Equal(t, ERR_PASSWDMISMATCH, regErr.Numeric)
}

func TestRegisterContextCancelled(t *testing.T) {
	c := New(Config{Nick: "alice", User: "alice", Server: "irc.example.net", DisableCapTracking: true})
	c.state.reset("alice", "alice", "")

	ctx, cancel := context.WithCancel(context.Background())
	done := runRegister(c, ctx)
	cancel()

	err := waitRegister(t, done)
	assert.ErrorIs(t, err, context.Canceled)
}
