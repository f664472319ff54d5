package ircx

import (
	"crypto/tls"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds everything needed to register a connection and drive its
// ongoing behavior. A zero Config is invalid; construct one naming at least
// Server, Nick, and User.
type Config struct {
	Server string
	Port   int
	Nick   string
	User   string
	Name   string

	// ServerPass is sent as PASS before registration. Sensitive: never
	// logged verbatim.
	ServerPass string

	// TLS, when non-nil, is used to upgrade the connection; if TLS.Enable
	// is false the field is ignored and a plaintext socket is used.
	TLS *TLSConfig

	// SASL, when non-nil, is attempted before CAP END.
	SASL *SASLConfig

	// FallbackNicks is tried in order if Nick (and then each fallback) is
	// rejected with ERR_NICKNAMEINUSE during registration.
	FallbackNicks []string

	// HandleNickCollide, if set, overrides the default "append underscore"
	// nick-collision behavior once FallbackNicks are used up. A return of ""
	// ends registration with a RegistrationError.
	HandleNickCollide func(badNick string) string

	// Bind is an optional local address to bind outbound connections to.
	Bind string

	// SupportedCaps lists capability names to request in addition to the
	// registry's own defaults; RequiredCaps are capabilities whose absence
	// from CAP LS or NAK makes Connect return a CapabilityError once
	// registration concludes.
	SupportedCaps []string
	RequiredCaps  []string

	// DisableTracking turns off all user/channel state tracking (component
	// K) and the handlers that feed it.
	DisableTracking bool
	// DisableCapTracking turns off IRCv3 CAP negotiation entirely.
	DisableCapTracking bool
	// DisableSTS ignores any "sts" capability the server advertises instead
	// of honoring its TLS-upgrade policy on the next Connect.
	DisableSTS bool
	// DisableSTSFallback skips the automatic retry over a plaintext
	// connection when an STS-mandated TLS upgrade fails; Connect simply
	// returns the upgrade error instead.
	DisableSTSFallback bool

	// AllowFlood disables the outbound throttle.
	AllowFlood bool
	// ThrottleBurst/ThrottleRate override the default token-bucket
	// parameters (3 burst, 1 message/2s) used by the outbound throttle.
	ThrottleBurst int
	ThrottleRate  time.Duration

	// PingDelay is the idle period before a keepalive PING is sent;
	// PingTimeout is the grace period after that PING before the
	// connection is declared dead.
	PingDelay   time.Duration
	PingTimeout time.Duration

	// Reconnect enables automatic reconnection with exponential backoff
	// after an unplanned disconnect. ReconnectMinDelay/ReconnectMaxDelay
	// bound the backoff; a reconnect attempt's delay is jittered ±10%.
	Reconnect         bool
	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration

	// RecoverFunc, if set, is invoked instead of letting a handler panic
	// propagate and bring down the event loop.
	RecoverFunc func(c *Client, err *HandlerError)

	// Logger receives structured debug output. A nil Logger gets a
	// default instance discarding all output.
	Logger logrus.FieldLogger

	// GlobalFormat enables {color}-style token replacement (see Format) on
	// outgoing PRIVMSG/NOTICE text.
	GlobalFormat bool

	// SASLRequired escalates a SASL failure to abort the connection attempt
	// (AuthenticationError from Connect) rather than merely disabling the
	// "sasl" capability and proceeding unauthenticated.
	SASLRequired bool

	// High-level event callbacks (spec §6). All are optional; a nil
	// callback is simply not invoked. These are derived, synchronous views
	// over the raw handler chain (builtin.go), run after state-tracking
	// handlers so they observe post-update state.
	OnConnect        func(c *Client)
	OnDisconnect     func(c *Client, expected bool)
	OnRaw            func(c *Client, m *Message)
	OnMessage        func(c *Client, m *Message)
	OnChannelMessage func(c *Client, m *Message)
	OnPrivateMessage func(c *Client, m *Message)
	OnNotice         func(c *Client, m *Message)
	OnJoin           func(c *Client, channel *Channel, user *User)
	OnPart           func(c *Client, channel *Channel, user *User, reason string)
	OnKick           func(c *Client, channel *Channel, kicker, kicked, reason string)
	OnQuit           func(c *Client, user *User, reason string)
	OnNickChange     func(c *Client, oldNick, newNick string, err error)
	OnTopicChange    func(c *Client, channel *Channel, setter string)
	OnModeChange     func(c *Client, target string, modes []CMode, setter *Source)
	OnInvite         func(c *Client, channel, inviter string)
	OnUnknown        func(c *Client, m *Message)
	OnUserOnline     func(c *Client, nick string)
	OnUserOffline    func(c *Client, nick string)

	// OnISupport fires on_isupport_<name>(value) for ISUPPORT tokens with
	// no built-in effect, per spec §4.J.
	OnISupport map[string]func(c *Client, value string)

	// OnCapabilityAvailable fires on_capability_<name>_available(): given
	// the server-advertised value, return whether to request the
	// capability. Absent an entry, the default set (plus SupportedCaps/
	// RequiredCaps) governs.
	OnCapabilityAvailable map[string]func(c *Client, value string) bool
	// OnCapabilityEnabled fires on_capability_<name>_enabled() once ACKed;
	// see CapResolution.
	OnCapabilityEnabled map[string]func(c *Client) CapResolution
	// OnCapabilityDisabled fires on_capability_<name>_disabled() when a cap
	// is NAKed, fails, or is later DELed by the server.
	OnCapabilityDisabled map[string]func(c *Client)
}

// TLSConfig controls transport-layer TLS for a connection.
type TLSConfig struct {
	Enable             bool
	InsecureSkipVerify bool
	Config             *tls.Config
}

// SASLConfig selects and parameterizes a SASL mechanism for connection
// registration. Mechanism implementations (PLAIN, EXTERNAL) live outside
// this package's core and are reached only through the sasl.Mechanism
// interface.
type SASLConfig struct {
	Mechanism Mechanism
	// Timeout bounds the whole AUTHENTICATE exchange.
	Timeout time.Duration
}

func (c *Config) isValid() error {
	if c == nil {
		return ErrInvalidConfig
	}
	if c.Server == "" {
		return &ProtocolError{Stage: "config", Err: ErrInvalidConfig}
	}
	if c.Nick == "" || !IsValidNick(c.Nick) {
		return &ProtocolError{Stage: "config", Err: ErrInvalidConfig}
	}
	if c.User == "" {
		return &ProtocolError{Stage: "config", Err: ErrInvalidConfig}
	}
	return nil
}

func (c *Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// pingDelay is the idle-inbound threshold ("ping_timeout" in the
// configuration surface) after which a keepalive PING is sent. Default
// 180s, per spec §4.G.
func (c *Config) pingDelay() time.Duration {
	if c.PingDelay > 0 {
		return c.PingDelay
	}
	if c.PingTimeout > 0 {
		return c.PingTimeout
	}
	return 180 * time.Second
}

// pingTimeout is the further idle grace period after the keepalive PING
// before the transport is declared dead; total idle-to-dead is therefore
// 2×ping_timeout, matching spec §4.G.
func (c *Config) pingTimeout() time.Duration {
	if c.PingTimeout > 0 {
		return c.PingTimeout
	}
	return 180 * time.Second
}

func (c *Config) throttleBurst() int {
	if c.ThrottleBurst > 0 {
		return c.ThrottleBurst
	}
	return 3
}

func (c *Config) throttleRate() time.Duration {
	if c.ThrottleRate > 0 {
		return c.ThrottleRate
	}
	return 2 * time.Second
}

func (c *Config) reconnectBounds() (min, max time.Duration) {
	min, max = c.ReconnectMinDelay, c.ReconnectMaxDelay
	if min <= 0 {
		min = 1 * time.Second
	}
	if max <= 0 {
		max = 5 * time.Minute
	}
	return
}
