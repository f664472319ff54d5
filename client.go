package ircx

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is a single IRC connection: wire codec, registration/capability
// state machine, user/channel tracking, and the dispatcher handlers are
// registered against. Construct with New, then drive it with Run (directly,
// or via a Pool shared across several clients).
type Client struct {
	Config   Config
	Handlers *Caller
	Cmd      *Commands
	CTCP     *CTCP

	state *state
	sched *scheduler

	mu      sync.RWMutex
	conn    *transport
	dialer  Dialer
	rx      chan *Message
	lastErr error

	throttle *throttle
	cap      *capNegotiator
	sasl     *saslNegotiator

	pendingMu sync.Mutex
	pending   map[*PendingRequest]struct{}

	registered chan struct{}

	// pool is set by Pool.Connect; a Client may belong to at most one Pool.
	pool *Pool
}

// New constructs a Client from cfg. It does not connect; call Connect to do
// that, then Run.
func New(cfg Config) *Client {
	c := &Client{
		Config:  cfg,
		state:   newState(),
		sched:   newScheduler(),
		rx:      make(chan *Message, 32),
		pending: map[*PendingRequest]struct{}{},
	}
	c.Handlers = newCaller()
	c.Cmd = &Commands{c: c}
	c.CTCP = newCTCP()
	c.CTCP.addDefaultHandlers()
	c.registerBuiltins()
	return c
}

func (c *Client) logger() logrus.FieldLogger {
	return c.Config.logger()
}

// SetDialer overrides the Dialer used by Connect, primarily for tests.
func (c *Client) SetDialer(d Dialer) { c.dialer = d }

// Connect dials the configured server, completes registration (CAP
// negotiation, SASL if configured, NICK/USER), and returns once either
// registration succeeds or fails. Callers then invoke Run to drive the
// ongoing event loop.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.Config.isValid(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.conn != nil && c.conn.isConnected() {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", c.Config.Server, c.Config.Port)
	conn, err := c.dialWithSTS(ctx, addr)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.rx = make(chan *Message, 32)
	c.lastErr = nil
	c.state.reset(c.Config.Nick, c.Config.User, "")
	c.throttle = newThrottle(c.Config.throttleBurst(), c.Config.throttleRate(), c.Config.AllowFlood)
	c.registered = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.pingLoop(ctx, conn)

	return c.register(ctx)
}

// readLoop decodes wire lines from conn and feeds them to rx until the
// connection ends.
func (c *Client) readLoop(conn *transport) {
	defer close(c.rx)
	for {
		line, err := conn.readLine(0)
		if err != nil {
			c.mu.Lock()
			if c.lastErr == nil {
				c.lastErr = err
			}
			c.mu.Unlock()
			return
		}
		m, perr := parseMessage(line)
		if perr != nil {
			c.logger().WithError(perr).Debug("dropping malformed line")
			continue
		}
		c.rx <- m
	}
}

// pingLoop sends a keepalive PING after an idle period and declares the
// connection dead if no traffic (in practice, PONG) follows within
// PingTimeout.
func (c *Client) pingLoop(ctx context.Context, conn *transport) {
	delay := c.Config.pingDelay()
	timeout := c.Config.pingTimeout()

	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !conn.isConnected() {
				return
			}
			conn.mu.RLock()
			idle := time.Since(conn.lastActive)
			conn.mu.RUnlock()
			if idle < delay {
				continue
			}
			c.send(&Message{Command: PING, Params: []string{fmt.Sprintf("%d", time.Now().UnixNano())}})

			deadline := time.NewTimer(timeout)
			select {
			case <-ctx.Done():
				deadline.Stop()
				return
			case <-deadline.C:
				conn.mu.RLock()
				stillIdle := time.Since(conn.lastActive) >= delay+timeout
				conn.mu.RUnlock()
				if stillIdle {
					c.mu.Lock()
					c.lastErr = &TimedOutError{Operation: "ping keepalive"}
					c.mu.Unlock()
					conn.Close()
					return
				}
			}
		}
	}
}

// send writes a message to the wire, honoring the outbound throttle unless
// the command is exempt (registration/keepalive traffic).
func (c *Client) send(m *Message) error {
	c.mu.RLock()
	conn := c.conn
	th := c.throttle
	c.mu.RUnlock()

	if conn == nil || !conn.isConnected() {
		return ErrNotConnected
	}

	if th != nil {
		if err := th.Wait(context.Background(), m.Command); err != nil {
			return err
		}
	}

	if !c.HasCapability("message-tags") && len(m.Tags) > 0 {
		stripped := *m
		stripped.Tags = nil
		m = &stripped
	}

	return conn.writeLine(m.Bytes())
}

// Send is the public, throttled send path for arbitrary messages.
func (c *Client) Send(m *Message) error { return c.send(m) }

// Close tears down the connection without sending QUIT.
func (c *Client) Close() error {
	c.cancelPending()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Close()
}

// cancelPending aborts every outstanding Whois/Whowas (or other
// newPendingRequest-backed) request with ErrCancelled, so callers blocked on
// PendingRequest.Done don't wait out their full timeout after disconnect.
func (c *Client) cancelPending() {
	c.pendingMu.Lock()
	reqs := make([]*PendingRequest, 0, len(c.pending))
	for p := range c.pending {
		reqs = append(reqs, p)
	}
	c.pendingMu.Unlock()

	for _, p := range reqs {
		p.Cancel()
	}
}

// Quit sends a QUIT with reason and closes the connection.
func (c *Client) Quit(reason string) {
	c.send(&Message{Command: QUIT, Params: []string{reason}})
	c.Close()
}

// IsConnected reports whether the underlying transport is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.isConnected()
}

// GetNick returns the client's current nick.
func (c *Client) GetNick() string { return c.state.getNick() }

// GetIdent returns the client's current ident/username.
func (c *Client) GetIdent() string { return c.state.getIdent() }

// GetHost returns the client's current host, if known.
func (c *Client) GetHost() string { return c.state.getHost() }

// NetworkName returns the NETWORK= ISUPPORT value, if advertised.
func (c *Client) NetworkName() string { return c.state.getNetwork() }

// ServerMOTD returns the buffered MOTD text.
func (c *Client) ServerMOTD() string {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.motd
}

// ISupport returns the client's parsed ISUPPORT table.
func (c *Client) ISupport() *ISupport {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	return c.state.isupport
}

// LookupChannel returns tracked state for a channel, or nil if untracked.
func (c *Client) LookupChannel(name string) *Channel { return c.state.lookupChannel(name) }

// LookupUser returns tracked state for a user, or nil if untracked.
func (c *Client) LookupUser(nick string) *User { return c.state.lookupUser(nick) }

// Channels returns a snapshot of every tracked channel.
func (c *Client) Channels() []*Channel { return c.state.channelList() }

// Users returns a snapshot of every tracked user.
func (c *Client) Users() []*User { return c.state.userList() }

// IsInChannel reports whether the client currently tracks membership in
// channel.
func (c *Client) IsInChannel(channel string) bool {
	return c.state.lookupChannel(channel) != nil
}

// TLSConnectionState returns the negotiated TLS state of the current
// connection, or ErrConnNotTLS if the transport is plaintext.
func (c *Client) TLSConnectionState() (tls.ConnectionState, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return tls.ConnectionState{}, ErrNotConnected
	}
	return conn.tlsState()
}

// preprocess runs ambient, always-on bookkeeping on every inbound message
// before user/builtin handlers see it: it feeds CAP messages to the CAP
// negotiator (also after registration, for NEW/DEL and late ACK/NAK) and
// every message to an active SASL exchange.
func (c *Client) preprocess(m *Message) {
	if m.Command == PING {
		// Handled by a builtin handler (handlePING) rather than here, to
		// keep ordering/visibility identical to any other registered
		// handler for PING.
	}

	if c.cap != nil && m.Command == CAP {
		c.cap.handle(m)
	}
	if c.sasl != nil && c.sasl.state != saslDone && c.sasl.state != saslFailed {
		if c.sasl.handle(m) {
			c.finishSASL()
		}
	}
}
