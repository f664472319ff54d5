package ircx

import "strings"

// defaultCaps lists capabilities requested by default whenever the server
// advertises them and cap tracking is not disabled.
var defaultCaps = []string{
	"account-notify", "account-tag", "away-notify", "batch", "cap-notify",
	"chghost", "extended-join", "message-tags", "multi-prefix",
	"userhost-in-names", "server-time", "sasl",
}

type capState int

const (
	capNone capState = iota
	capNegotiating
	capDone
)

// CapResolution is returned by a Config.OnCapabilityEnabled hook to tell
// the negotiator how to treat a freshly-ACKed capability, per spec §4.H.
type CapResolution int

const (
	// CapNegotiated is immediate success: the capability is ENABLED.
	CapNegotiated CapResolution = iota
	// CapNegotiating defers resolution; the feature must later call
	// (*Client).CapabilityNegotiated(name, success).
	CapNegotiating
	// CapFailed sends CAP REQ :-<name> to disable the capability.
	CapFailed
)

// capNegotiator drives CAP LS/REQ/ACK/NAK/END during registration.
type capNegotiator struct {
	client *Client

	state     capState
	available map[string][]string
	requested []string
	enabled   map[string]string

	lsBuf map[string][]string

	// pending holds capability names ACKed but whose OnCapabilityEnabled
	// hook returned CapNegotiating; CAP END waits for all of these (and
	// SASL, if active) to resolve.
	pending map[string]bool
	sasl    bool

	// reqLines counts CAP REQ lines sent but not yet answered by a matching
	// ACK or NAK; CAP END waits for this to reach zero too, so splitting a
	// large request across multiple lines doesn't end negotiation early.
	reqLines int

	// onFinish runs once CAP END has been sent (whether negotiation
	// completed immediately or was held open pending SASL); registration.go
	// uses it to continue on to NICK/USER.
	onFinish func()
}

func newCapNegotiator(c *Client) *capNegotiator {
	return &capNegotiator{
		client:    c,
		available: map[string][]string{},
		enabled:   map[string]string{},
		lsBuf:     map[string][]string{},
		pending:   map[string]bool{},
	}
}

func (n *capNegotiator) begin() {
	if n.client.Config.ServerPass != "" {
		n.client.send(&Message{Command: PASS, Params: []string{n.client.Config.ServerPass}, Sensitive: true})
	}
	if n.client.Config.DisableCapTracking {
		n.state = capDone
		return
	}
	n.state = capNegotiating
	n.client.send(&Message{Command: CAP, Params: []string{"LS", "302"}})
}

func parseCapTokens(raw string) map[string][]string {
	out := map[string][]string{}
	for _, tok := range strings.Fields(raw) {
		name, vals := tok, ""
		if eq := strings.IndexByte(tok, '='); eq >= 0 {
			name, vals = tok[:eq], tok[eq+1:]
		}
		name = strings.TrimPrefix(name, "~")
		name = strings.TrimPrefix(name, "=")
		if vals == "" {
			out[name] = nil
		} else {
			out[name] = strings.Split(vals, ",")
		}
	}
	return out
}

// maxCapReqLine is the wire limit (excluding CRLF) for a single CAP REQ
// line; a server advertising many capabilities can require several REQ
// lines to stay under it.
const maxCapReqLine = 510

// batchCapReq splits caps into space-joined groups, each small enough that
// "CAP REQ :<group>" serializes to at most maxCapReqLine octets.
func batchCapReq(caps []string) []string {
	const overhead = len("CAP REQ :")

	var lines []string
	var cur []string
	curLen := overhead

	for _, name := range caps {
		add := len(name)
		if len(cur) > 0 {
			add++ // separating space
		}
		if len(cur) > 0 && curLen+add > maxCapReqLine {
			lines = append(lines, strings.Join(cur, " "))
			cur = nil
			curLen = overhead
			add = len(name)
		}
		cur = append(cur, name)
		curLen += add
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}

func wanted(c *Client, name string) bool {
	if name == "sts" {
		return !c.Config.DisableSTS
	}
	for _, d := range defaultCaps {
		if d == name {
			return true
		}
	}
	for _, s := range c.Config.SupportedCaps {
		if s == name {
			return true
		}
	}
	for _, r := range c.Config.RequiredCaps {
		if r == name {
			return true
		}
	}
	return false
}

// handle processes one CAP message. It returns true once negotiation has
// concluded (CAP END sent or negotiation skipped).
func (n *capNegotiator) handle(m *Message) bool {
	if len(m.Params) < 2 {
		return false
	}
	sub := strings.ToUpper(m.Params[1])

	switch sub {
	case "LS":
		multiline := len(m.Params) >= 3 && m.Params[2] == "*"
		listIdx := 2
		if multiline {
			listIdx = 3
		}
		if listIdx < len(m.Params) {
			for k, v := range parseCapTokens(m.Params[listIdx]) {
				n.lsBuf[k] = v
			}
		}
		if multiline {
			return false
		}

		n.available = n.lsBuf
		for _, r := range n.client.Config.RequiredCaps {
			if _, ok := n.available[r]; !ok {
				n.client.lastErr = &CapabilityError{Capability: r, Reason: "server did not advertise required capability"}
			}
		}
		var req []string
		for name, vals := range n.available {
			want := wanted(n.client, name)
			if hook, ok := n.client.Config.OnCapabilityAvailable[name]; ok {
				want = hook(n.client, strings.Join(vals, ","))
			}
			if want {
				req = append(req, name)
			}
		}

		if len(req) == 0 {
			n.finish()
			return true
		}
		n.requested = req
		for _, line := range batchCapReq(req) {
			n.reqLines++
			n.client.send(&Message{Command: CAP, Params: []string{"REQ", line}})
		}
		return false

	case "ACK":
		for _, name := range strings.Fields(m.Params[2]) {
			name = strings.TrimPrefix(name, "-")
			n.enabled[name] = strings.Join(n.available[name], ",")

			if name == "sts" {
				n.client.applySTS(n.available[name])
			}

			resolution := CapNegotiated
			if hook, ok := n.client.Config.OnCapabilityEnabled[name]; ok {
				resolution = hook(n.client)
			} else if name == "sasl" && n.client.Config.SASL != nil {
				resolution = CapNegotiating
			}

			switch resolution {
			case CapNegotiating:
				n.pending[name] = true
				if name == "sasl" {
					n.sasl = true
					n.client.beginSASL()
				}
			case CapFailed:
				delete(n.enabled, name)
				n.client.send(&Message{Command: CAP, Params: []string{"REQ", "-" + name}})
				if hook, ok := n.client.Config.OnCapabilityDisabled[name]; ok {
					hook(n.client)
				}
			}
		}
		n.client.state.mu.Lock()
		n.client.state.enabledCaps = n.enabled
		n.client.state.mu.Unlock()

		if n.reqLines > 0 {
			n.reqLines--
		}
		if n.reqLines > 0 || len(n.pending) > 0 {
			return false
		}
		n.finish()
		return true

	case "NAK":
		for _, nak := range strings.Fields(m.Params[2]) {
			for _, req := range n.Config().RequiredCaps {
				if req == nak {
					n.client.lastErr = &CapabilityError{Capability: req, Reason: "server NAKed required capability"}
				}
			}
			if hook, ok := n.client.Config.OnCapabilityDisabled[nak]; ok {
				hook(n.client)
			}
		}
		if n.reqLines > 0 {
			n.reqLines--
		}
		if n.reqLines > 0 || len(n.pending) > 0 {
			return false
		}
		n.finish()
		return true

	case "NEW":
		var req []string
		for k, v := range parseCapTokens(m.Params[2]) {
			n.available[k] = v
			if _, already := n.enabled[k]; !already && wanted(n.client, k) {
				req = append(req, k)
			}
		}
		if len(req) > 0 {
			for _, line := range batchCapReq(req) {
				n.client.send(&Message{Command: CAP, Params: []string{"REQ", line}})
			}
		}
		return n.state == capDone

	case "DEL":
		for _, name := range strings.Fields(m.Params[2]) {
			_, wasEnabled := n.enabled[name]
			delete(n.enabled, name)
			delete(n.available, name)
			if hook, ok := n.client.Config.OnCapabilityDisabled[name]; ok && wasEnabled {
				hook(n.client)
			}
		}
		return n.state == capDone
	}

	return n.state == capDone
}

func (n *capNegotiator) Config() *Config { return &n.client.Config }

func (n *capNegotiator) finish() {
	alreadyDone := n.state == capDone
	n.state = capDone
	n.client.state.mu.Lock()
	n.client.state.enabledCaps = n.enabled
	n.client.state.mu.Unlock()
	if alreadyDone {
		// A late ACK/NAK for a cap requested after registration already
		// concluded (e.g. one newly advertised via CAP NEW) must not
		// re-send CAP END or re-run onFinish.
		return
	}
	n.client.send(&Message{Command: CAP, Params: []string{"END"}})
	if n.onFinish != nil {
		n.onFinish()
	}
}

// CapabilityNegotiated resolves a capability previously deferred via
// CapNegotiating from an OnCapabilityEnabled hook. Once every deferred
// capability (and SASL, if active) has resolved, CAP END is emitted and
// registration proceeds, per spec §4.H.
func (c *Client) CapabilityNegotiated(name string, success bool) {
	n := c.cap
	if n == nil {
		return
	}
	if !success {
		n.client.state.mu.Lock()
		delete(n.enabled, name)
		n.client.state.enabledCaps = n.enabled
		n.client.state.mu.Unlock()
		if hook, ok := c.Config.OnCapabilityDisabled[name]; ok {
			hook(c)
		}
	}
	delete(n.pending, name)
	if len(n.pending) == 0 && !n.sasl {
		n.finish()
	}
}

// HasCapability reports whether a capability was successfully negotiated
// on the current connection.
func (c *Client) HasCapability(name string) bool {
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	_, ok := c.state.enabledCaps[name]
	return ok
}
