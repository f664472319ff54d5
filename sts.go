package ircx

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// stsPolicy is a learned IRCv3 Strict Transport Security policy: once a
// server advertises "sts", the client remembers to reconnect over TLS at
// the advertised port for Duration, even across an unrelated disconnect.
type stsPolicy struct {
	Port     int
	Duration time.Duration
	Preload  bool

	receivedAt time.Time
	lastFailed time.Time
}

// enabled reports whether a usable STS policy has been learned.
func (s stsPolicy) enabled() bool { return s.Port > 0 }

// expired reports whether the policy's persistence duration has elapsed.
func (s stsPolicy) expired() bool {
	if s.Duration <= 0 {
		return true
	}
	return time.Since(s.receivedAt) > s.Duration
}

// parseSTSPolicy decodes the comma-split values of an "sts" CAP token, e.g.
// ["port=6697", "duration=2592000", "preload"].
func parseSTSPolicy(vals []string) stsPolicy {
	var p stsPolicy
	for _, v := range vals {
		name, val := v, ""
		if eq := strings.IndexByte(v, '='); eq >= 0 {
			name, val = v[:eq], v[eq+1:]
		}
		switch name {
		case "port":
			if port, err := strconv.Atoi(val); err == nil {
				p.Port = port
			}
		case "duration":
			if secs, err := strconv.Atoi(val); err == nil {
				p.Duration = time.Duration(secs) * time.Second
			}
		case "preload":
			p.Preload = true
		}
	}
	return p
}

// applySTS records a freshly-advertised "sts" policy, unless the current
// connection is already TLS (RFC: a server should not advertise sts over an
// already-secure connection, but a client must ignore it if it does).
func (c *Client) applySTS(vals []string) {
	if c.isTLS() {
		return
	}
	policy := parseSTSPolicy(vals)
	if !policy.enabled() {
		return
	}
	policy.receivedAt = time.Now()

	c.state.mu.Lock()
	policy.lastFailed = c.state.sts.lastFailed
	c.state.sts = policy
	c.state.mu.Unlock()
}

func (c *Client) isTLS() bool {
	_, err := c.TLSConnectionState()
	return err == nil
}

// stsUpgradeAddr returns the host:port Connect should dial instead of the
// configured address, and whether it must be over TLS, if an unexpired STS
// policy is in effect and the current Config isn't already TLS-enabled.
func (c *Client) stsUpgradeAddr() (addr string, upgrade bool) {
	if c.Config.TLS != nil && c.Config.TLS.Enable {
		return "", false
	}
	c.state.mu.RLock()
	policy := c.state.sts
	c.state.mu.RUnlock()

	if !policy.enabled() || policy.expired() {
		return "", false
	}
	return net.JoinHostPort(c.Config.Server, strconv.Itoa(policy.Port)), true
}

// dialWithSTS dials addr, first honoring any unexpired STS upgrade policy by
// dialing the advertised TLS port instead. A failed upgrade dial falls back
// to addr over the originally configured transport unless
// Config.DisableSTSFallback is set, in which case it returns
// ErrSTSUpgradeFailed directly.
func (c *Client) dialWithSTS(ctx context.Context, addr string) (*transport, error) {
	upgradeAddr, upgrade := c.stsUpgradeAddr()
	if !upgrade {
		return dial(ctx, &c.Config, c.dialer, addr)
	}

	upgradeCfg := c.Config
	tlsCfg := TLSConfig{Enable: true}
	if c.Config.TLS != nil {
		tlsCfg = *c.Config.TLS
		tlsCfg.Enable = true
	}
	upgradeCfg.TLS = &tlsCfg

	conn, err := dial(ctx, &upgradeCfg, c.dialer, upgradeAddr)
	if err == nil {
		return conn, nil
	}

	c.state.mu.Lock()
	c.state.sts.lastFailed = time.Now()
	c.state.mu.Unlock()

	if c.Config.DisableSTSFallback {
		return nil, fmt.Errorf("%w: %v", ErrSTSUpgradeFailed, err)
	}
	return dial(ctx, &c.Config, c.dialer, addr)
}
