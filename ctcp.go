package ircx

import "strings"

// ctcpDelim is the CTCP framing byte (\001) that wraps a CTCP payload
// inside a PRIVMSG/NOTICE trailing parameter.
const ctcpDelim = '\x01'

// decodeCTCP extracts the CTCP type and argument from a \001-wrapped
// payload, e.g. "\001ACTION waves\001" -> ("ACTION", "waves"). ok is false
// if text is not CTCP-framed.
func decodeCTCP(text string) (ctcpType, arg string, ok bool) {
	if len(text) < 2 || text[0] != ctcpDelim {
		return "", "", false
	}
	body := strings.TrimSuffix(text[1:], string(rune(ctcpDelim)))
	if body == "" {
		return "", "", false
	}
	if sp := strings.IndexByte(body, ' '); sp >= 0 {
		return strings.ToUpper(body[:sp]), body[sp+1:], true
	}
	return strings.ToUpper(body), "", true
}

// encodeCTCP frames a CTCP type/argument pair for transmission in a
// PRIVMSG/NOTICE trailing parameter.
func encodeCTCP(ctcpType, arg string) string {
	var b strings.Builder
	b.WriteByte(ctcpDelim)
	b.WriteString(strings.ToUpper(ctcpType))
	if arg != "" {
		b.WriteByte(' ')
		b.WriteString(arg)
	}
	b.WriteByte(ctcpDelim)
	return b.String()
}

// CTCPEvent is handed to a registered CTCP handler: the decoded type,
// argument text, the source and target of the carrying message, and
// whether it was a reply (NOTICE) rather than a request (PRIVMSG).
type CTCPEvent struct {
	Type    string
	Text    string
	Source  *Source
	Target  string
	IsReply bool
}

// CTCPHandler reacts to one decoded CTCP exchange.
type CTCPHandler func(c *Client, ev *CTCPEvent)

// CTCP dispatches decoded CTCP requests/replies found inside PRIVMSG/NOTICE
// payloads to type-specific handlers, a thin optional layer on top of the
// core dispatcher (Caller) that routes raw commands.
type CTCP struct {
	requests map[string][]CTCPHandler
	replies  map[string][]CTCPHandler
	anyReq   []CTCPHandler
	anyReply []CTCPHandler
}

func newCTCP() *CTCP {
	return &CTCP{
		requests: map[string][]CTCPHandler{},
		replies:  map[string][]CTCPHandler{},
	}
}

// AddHandler registers a handler for a specific CTCP request type (e.g.
// "VERSION", "ACTION"). Use "*" to register an on_ctcp-equivalent catch-all.
func (ct *CTCP) AddHandler(ctcpType string, fn CTCPHandler) {
	ctcpType = strings.ToUpper(ctcpType)
	if ctcpType == "*" {
		ct.anyReq = append(ct.anyReq, fn)
		return
	}
	ct.requests[ctcpType] = append(ct.requests[ctcpType], fn)
}

// AddReplyHandler registers a handler for a specific CTCP reply type. Use
// "*" for an on_ctcp_reply-equivalent catch-all.
func (ct *CTCP) AddReplyHandler(ctcpType string, fn CTCPHandler) {
	ctcpType = strings.ToUpper(ctcpType)
	if ctcpType == "*" {
		ct.anyReply = append(ct.anyReply, fn)
		return
	}
	ct.replies[ctcpType] = append(ct.replies[ctcpType], fn)
}

// addDefaultHandlers wires the conventional VERSION/PING/TIME/CLIENTINFO
// auto-responses most IRC clients ship by default.
func (ct *CTCP) addDefaultHandlers() {
	ct.AddHandler("VERSION", func(c *Client, ev *CTCPEvent) {
		c.Cmd.SendCTCPReply(ev.Source.Name, "VERSION", "ircx")
	})
	ct.AddHandler("PING", func(c *Client, ev *CTCPEvent) {
		c.Cmd.SendCTCPReply(ev.Source.Name, "PING", ev.Text)
	})
	ct.AddHandler("TIME", func(c *Client, ev *CTCPEvent) {
		c.Cmd.SendCTCPReply(ev.Source.Name, "TIME", timeNowRFC2822())
	})
	ct.AddHandler("CLIENTINFO", func(c *Client, ev *CTCPEvent) {
		c.Cmd.SendCTCPReply(ev.Source.Name, "CLIENTINFO", "ACTION CLIENTINFO PING TIME VERSION")
	})
}

func (ct *CTCP) dispatch(c *Client, m *Message) {
	if len(m.Params) < 2 || m.Source == nil {
		return
	}
	ctcpType, text, ok := decodeCTCP(m.Last())
	if !ok {
		return
	}
	if ctcpType == "ACTION" {
		// ACTION is dispatched as a regular message (IsAction/StripAction),
		// not through the CTCP request/reply machinery.
		return
	}

	ev := &CTCPEvent{Type: ctcpType, Text: text, Source: m.Source, Target: m.Params[0], IsReply: m.Command == NOTICE}

	if ev.IsReply {
		for _, fn := range ct.anyReply {
			fn(c, ev)
		}
		for _, fn := range ct.replies[ctcpType] {
			fn(c, ev)
		}
		return
	}

	for _, fn := range ct.anyReq {
		fn(c, ev)
	}
	for _, fn := range ct.requests[ctcpType] {
		fn(c, ev)
	}
}
