package ircx

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Config.isValid (and in turn Connect)
// when a Config is missing required fields or carries contradictory ones.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrNotConnected is returned by any operation that requires an active
// connection while the client is disconnected.
var ErrNotConnected = errors.New("client is not connected to a server")

// ErrConnNotTLS is returned by TLSConnectionState when the underlying
// transport is not a TLS connection.
var ErrConnNotTLS = errors.New("underlying connection is not tls")

// ErrAlreadyConnected is returned by Connect when called on a client
// that already has an active connection.
var ErrAlreadyConnected = errors.New("client is already connected")

// ErrCancelled is returned by a PendingRequest that was cancelled (via
// Cancel, or by its owning client's Close) before the request resolved.
var ErrCancelled = errors.New("request cancelled")

// ErrSTSUpgradeFailed indicates that a server's sts policy could not be
// honored (e.g. the upgraded port refused the TLS handshake).
var ErrSTSUpgradeFailed = errors.New("sts upgrade failed")

// ParseError describes a line that failed to parse as a well-formed IRC
// message, along with the raw input that caused it.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed message %q: %s", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrMalformedLine is the sentinel wrapped by ParseError.Err for generic
// grammar violations (unbalanced tags, empty command, and so on).
var ErrMalformedLine = errors.New("malformed line")

// ProtocolError indicates the peer violated protocol-level expectations
// during registration or capability negotiation (as opposed to a malformed
// line, which fails at the codec layer).
type ProtocolError struct {
	Stage string
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %s", e.Stage, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RegistrationError is returned when the server rejects connection
// registration (ERR_PASSWDMISMATCH, ERR_YOUREBANNEDCREEP, or no nick left to
// try after ERR_NICKNAMEINUSE).
type RegistrationError struct {
	Numeric string
	Reason  string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration failed (%s): %s", e.Numeric, e.Reason)
}

// CapabilityError is returned when a required capability could not be
// negotiated (server NAKed it, or never advertised it).
type CapabilityError struct {
	Capability string
	Reason     string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %q unavailable: %s", e.Capability, e.Reason)
}

// AuthenticationError is returned when SASL authentication fails.
type AuthenticationError struct {
	Mechanism string
	Numeric   string
	Reason    string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("sasl authentication failed (mechanism=%s, numeric=%s): %s", e.Mechanism, e.Numeric, e.Reason)
}

// NotInChannelError is returned by channel-scoped operations performed
// against a channel the client has no tracked membership in.
type NotInChannelError struct {
	Channel string
}

func (e *NotInChannelError) Error() string {
	return fmt.Sprintf("not in channel %q", e.Channel)
}

// AlreadyInChannelError is returned by Join when the client already has
// tracked membership in the target channel.
type AlreadyInChannelError struct {
	Channel string
}

func (e *AlreadyInChannelError) Error() string {
	return fmt.Sprintf("already in channel %q", e.Channel)
}

// TimedOutError indicates that an operation (ping keepalive, a
// PendingRequest, the connection handshake) exceeded its deadline.
type TimedOutError struct {
	Operation string
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("%s timed out", e.Operation)
}

// ErrInvalidTarget is returned by Commands methods when given a nick or
// channel name that fails IsValidNick/IsValidChannel.
type ErrInvalidTarget struct {
	Target string
}

func (e *ErrInvalidTarget) Error() string {
	return fmt.Sprintf("invalid target: %q", e.Target)
}
