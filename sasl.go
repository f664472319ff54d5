package ircx

import (
	"encoding/base64"
	"time"
)

// Mechanism is the narrow interface a SASL mechanism implementation must
// satisfy. Concrete mechanisms (PLAIN, EXTERNAL) live in ircx/sasl; the core
// client only ever drives this interface.
type Mechanism interface {
	// Name returns the mechanism name as advertised/selected in
	// AUTHENTICATE (e.g. "PLAIN", "EXTERNAL").
	Name() string
	// Respond computes the client's response to a server challenge. The
	// first call receives a nil challenge (the initial response).
	Respond(challenge []byte) ([]byte, error)
}

type saslState int

const (
	saslIdle saslState = iota
	saslMechSelect
	saslAwaitingChallenge
	saslDone
	saslFailed
)

// saslNegotiator drives the AUTHENTICATE exchange for a single connection
// attempt. beginSASL creates it once "sasl" is ACKed; after it reaches
// saslDone or saslFailed, preprocess stops feeding it messages.
type saslNegotiator struct {
	client *Client
	mech   Mechanism
	state  saslState
	err    error
}

func newSASLNegotiator(c *Client, mech Mechanism) *saslNegotiator {
	return &saslNegotiator{client: c, mech: mech, state: saslIdle}
}

// beginSASL starts the SASL state machine as a continuation of CAP
// negotiation (called once the "sasl" capability has been ACKed). Its
// completion (success or failure) sends CAP END and resumes registration
// via capNegotiator.onFinish.
func (c *Client) beginSASL() {
	c.sasl = newSASLNegotiator(c, c.Config.SASL.Mechanism)
	c.sasl.begin()

	timeout := c.Config.SASL.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c.sched.After(timeout, func() {
		if c.sasl.state == saslDone || c.sasl.state == saslFailed {
			return
		}
		c.sasl.fail(&TimedOutError{Operation: "sasl authentication"})
		c.finishSASL()
	})
}

// finishSASL sends CAP END and resumes registration once SASL has
// concluded (whether it succeeded or failed — a failed SASL attempt still
// lets registration continue unauthenticated, with "sasl" dropped from the
// enabled capabilities, unless Config.SASLRequired is set, in which case the
// resulting AuthenticationError surfaces from Connect).
func (c *Client) finishSASL() {
	if c.cap.state == capDone {
		return
	}
	if c.sasl.err != nil {
		delete(c.cap.enabled, "sasl")
		if c.Config.SASLRequired {
			c.lastErr = c.sasl.err
			c.cap.sasl = false
			delete(c.cap.pending, "sasl")
			c.cap.finish()
			return
		}
	}
	c.cap.sasl = false
	delete(c.cap.pending, "sasl")
	if len(c.cap.pending) == 0 {
		c.cap.finish()
	}
}

// begin sends the initial AUTHENTICATE <mechanism> line.
func (n *saslNegotiator) begin() {
	n.state = saslMechSelect
	n.client.send(&Message{Command: AUTHENTICATE, Params: []string{n.mech.Name()}})
}

// maxAuthenticateChunk is the wire limit for a single AUTHENTICATE line's
// base64 payload; longer responses must be split across multiple lines
// terminated by a final short (or "+") chunk.
const maxAuthenticateChunk = 400

// handle processes one AUTHENTICATE or SASL-numeric message, advancing the
// state machine. It returns true once negotiation has concluded (success or
// failure).
func (n *saslNegotiator) handle(m *Message) bool {
	switch m.Command {
	case AUTHENTICATE:
		if n.state != saslMechSelect && n.state != saslAwaitingChallenge {
			return false
		}
		var challenge []byte
		if payload := m.Last(); payload != "+" {
			decoded, err := base64.StdEncoding.DecodeString(payload)
			if err != nil {
				n.fail(&AuthenticationError{Mechanism: n.mech.Name(), Reason: "malformed challenge"})
				return true
			}
			challenge = decoded
		}

		resp, err := n.mech.Respond(challenge)
		if err != nil {
			n.fail(&AuthenticationError{Mechanism: n.mech.Name(), Reason: err.Error()})
			n.client.send(&Message{Command: AUTHENTICATE, Params: []string{"*"}})
			return true
		}
		n.state = saslAwaitingChallenge
		n.sendResponse(resp)
		return false

	case RPL_LOGGEDIN, RPL_SASLSUCCESS:
		n.state = saslDone
		return true

	case RPL_NICKLOCKED, ERR_SASLFAIL, ERR_SASLTOOLONG, ERR_SASLABORTED, ERR_SASLALREADY, RPL_SASLMECHS:
		n.fail(&AuthenticationError{Mechanism: n.mech.Name(), Numeric: m.Command, Reason: m.Last()})
		return true

	default:
		return false
	}
}

func (n *saslNegotiator) fail(err error) {
	n.state = saslFailed
	n.err = err
}

func (n *saslNegotiator) sendResponse(resp []byte) {
	if len(resp) == 0 {
		n.client.send(&Message{Command: AUTHENTICATE, Params: []string{"+"}, Sensitive: true})
		return
	}

	encoded := base64.StdEncoding.EncodeToString(resp)
	for len(encoded) > 0 {
		chunk := encoded
		if len(chunk) > maxAuthenticateChunk {
			chunk = chunk[:maxAuthenticateChunk]
		}
		n.client.send(&Message{Command: AUTHENTICATE, Params: []string{chunk}, Sensitive: true})
		encoded = encoded[len(chunk):]
		if len(chunk) == maxAuthenticateChunk && encoded == "" {
			// exact multiple of the chunk size: signal end with an empty chunk
			n.client.send(&Message{Command: AUTHENTICATE, Params: []string{"+"}, Sensitive: true})
		}
	}
}
