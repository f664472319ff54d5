package ircx

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSTSPolicy(t *testing.T) {
	p := parseSTSPolicy([]string{"port=6697", "duration=2592000", "preload"})
	assert.Equal(t, 6697, p.Port)
	assert.Equal(t, 2592000*time.Second, p.Duration)
	assert.True(t, p.Preload)
	assert.True(t, p.enabled())
}

func TestSTSPolicyExpired(t *testing.T) {
	p := stsPolicy{Port: 6697, Duration: time.Hour, receivedAt: time.Now().Add(-2 * time.Hour)}
	assert.True(t, p.expired())

	p2 := stsPolicy{Port: 6697, Duration: time.Hour, receivedAt: time.Now()}
	assert.False(t, p2.expired())
}

func TestApplySTSStoresPolicy(t *testing.T) {
	c := newTestClient("alice")
	c.applySTS([]string{"port=6697", "duration=2592000"})

	c.state.mu.RLock()
	policy := c.state.sts
	c.state.mu.RUnlock()
	assert.Equal(t, 6697, policy.Port)
}

func TestStsUpgradeAddrReflectsStoredPolicy(t *testing.T) {
	c := newTestClient("alice")
	_, upgrade := c.stsUpgradeAddr()
	assert.False(t, upgrade, "no policy learned yet")

	c.applySTS([]string{"port=6697", "duration=2592000"})
	addr, upgrade := c.stsUpgradeAddr()
	assert.True(t, upgrade)
	assert.Equal(t, net.JoinHostPort("irc.example.net", "6697"), addr)
}

func TestStsUpgradeAddrIgnoredWhenAlreadyTLSConfigured(t *testing.T) {
	c := newTestClient("alice")
	c.Config.TLS = &TLSConfig{Enable: true}
	c.applySTS([]string{"port=6697", "duration=2592000"})

	_, upgrade := c.stsUpgradeAddr()
	assert.False(t, upgrade)
}

func TestDialWithSTSFallsBackOnUpgradeFailure(t *testing.T) {
	c := newTestClient("alice")
	c.applySTS([]string{"port=6697", "duration=2592000"})

	calls := 0
	c.SetDialer(dialerFunc(func(network, addr string) (net.Conn, error) {
		calls++
		if addr == net.JoinHostPort("irc.example.net", "6697") {
			return nil, errors.New("refused")
		}
		client, server := net.Pipe()
		server.Close()
		return client, nil
	}))

	conn, err := c.dialWithSTS(context.Background(), "irc.example.net:6667")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, 2, calls, "upgrade attempt then fallback to the plain address")
}

func TestDialWithSTSReturnsErrorWhenFallbackDisabled(t *testing.T) {
	c := newTestClient("alice")
	c.Config.DisableSTSFallback = true
	c.applySTS([]string{"port=6697", "duration=2592000"})

	c.SetDialer(dialerFunc(func(network, addr string) (net.Conn, error) {
		return nil, errors.New("refused")
	}))

	_, err := c.dialWithSTS(context.Background(), "irc.example.net:6667")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSTSUpgradeFailed)
}

type dialerFunc func(network, addr string) (net.Conn, error)

func (f dialerFunc) Dial(network, addr string) (net.Conn, error) { return f(network, addr) }
