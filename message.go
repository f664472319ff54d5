package ircx

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Wire-format limits. maxLineLength is the classic RFC 1459 512-octet cap on
// a line excluding message tags; maxTagLength is the IRCv3 8191-octet cap
// (including the leading '@' and trailing space) on the tag section.
const (
	maxLineLength = 512
	maxTagLength  = 8191
)

const (
	tagPrefix    = '@'
	sourcePrefix = ':'
	spaceByte    = ' '
)

// maxParams is the RFC 1459 cap on the number of parameters a single
// message may carry (the trailing parameter counts as one of them).
const maxParams = 15

// Message is the in-memory representation of a single IRC line: optional
// IRCv3 tags, an optional source (prefix), a command, and its parameters.
// The last parameter may carry a leading ':' in the wire form (a "trailing"
// parameter that may contain spaces); Params always holds parameters in
// order with any such leading colon stripped.
type Message struct {
	Tags    Tags
	Source  *Source
	Command string
	Params  []string

	// Sensitive marks a message whose parameters must never be logged or
	// echoed verbatim (PASS, OPER, AUTHENTICATE payloads).
	Sensitive bool
}

// NewMessage returns a Message with the given command and parameters as a
// convenience for call sites that build messages to send.
func NewMessage(command string, params ...string) *Message {
	return &Message{Command: command, Params: params}
}

// Last returns the final parameter, or the empty string if there are none.
// This is typically the "trailing" parameter carrying free text.
func (m *Message) Last() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// ParseMessage parses a single wire-format line (without the trailing
// CRLF) into a Message. It returns nil if the line is malformed (no
// command, unbalanced tag/source prefix, or more than maxParams
// parameters); callers needing the reason should use parseMessage instead.
func ParseMessage(line string) *Message {
	m, _ := parseMessage(line)
	return m
}

// parseMessage is ParseMessage's implementation, additionally reporting why
// a line was rejected as a *ParseError wrapping ErrMalformedLine.
func parseMessage(line string) (*Message, error) {
	raw := line
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, &ParseError{Line: raw, Err: fmt.Errorf("%w: empty line", ErrMalformedLine)}
	}

	m := &Message{}

	if line[0] == tagPrefix {
		space := strings.IndexByte(line, spaceByte)
		if space < 0 {
			return nil, &ParseError{Line: raw, Err: fmt.Errorf("%w: unterminated tag section", ErrMalformedLine)}
		}
		m.Tags = ParseTags(line[1:space])
		line = strings.TrimLeft(line[space+1:], " ")
	}

	if len(line) > 0 && line[0] == sourcePrefix {
		space := strings.IndexByte(line, spaceByte)
		if space < 0 {
			return nil, &ParseError{Line: raw, Err: fmt.Errorf("%w: unterminated source prefix", ErrMalformedLine)}
		}
		m.Source = ParseSource(line[1:space])
		line = strings.TrimLeft(line[space+1:], " ")
	}

	if line == "" {
		return nil, &ParseError{Line: raw, Err: fmt.Errorf("%w: no command", ErrMalformedLine)}
	}

	var rest string
	if space := strings.IndexByte(line, spaceByte); space < 0 {
		m.Command = strings.ToUpper(line)
		return m, nil
	} else {
		m.Command = strings.ToUpper(line[:space])
		rest = strings.TrimLeft(line[space+1:], " ")
	}

	if rest == "" {
		return m, nil
	}

	if idx := strings.Index(rest, " :"); idx >= 0 {
		if idx > 0 {
			m.Params = append(m.Params, strings.Fields(rest[:idx])...)
		}
		m.Params = append(m.Params, rest[idx+2:])
	} else if rest[0] == ':' {
		m.Params = append(m.Params, rest[1:])
	} else {
		m.Params = append(m.Params, strings.Fields(rest)...)
	}

	if len(m.Params) > maxParams {
		return nil, &ParseError{Line: raw, Err: fmt.Errorf("%w: %d params exceeds limit of %d", ErrMalformedLine, len(m.Params), maxParams)}
	}

	return m, nil
}

// Len returns the number of bytes Bytes would produce.
func (m *Message) Len() int {
	return len(m.Bytes())
}

// Bytes serializes the message to wire format, without the trailing CRLF.
// Output is truncated so the part after the tags fits maxLineLength
// (leaving room for the CRLF) and the tag section, when tags are present,
// fits maxTagLength, matching server-side behavior most networks enforce on
// receipt.
func (m *Message) Bytes() []byte {
	var buf strings.Builder
	var tagSection string

	if len(m.Tags) > 0 {
		tagStr := m.Tags.String()
		if len(tagStr)+2 > maxTagLength {
			tagStr = tagStr[:maxTagLength-2]
		}
		tagSection = string(tagPrefix) + tagStr + string(spaceByte)
	}

	if m.Source != nil {
		buf.WriteByte(sourcePrefix)
		buf.WriteString(m.Source.String())
		buf.WriteByte(spaceByte)
	}

	buf.WriteString(m.Command)

	for i, p := range m.Params {
		buf.WriteByte(spaceByte)
		last := i == len(m.Params)-1
		if last && (p == "" || strings.ContainsRune(p, ' ') || strings.HasPrefix(p, ":")) {
			buf.WriteByte(':')
		}
		buf.WriteString(p)
	}

	out := buf.String()
	if len(out) > maxLineLength-2 {
		out = out[:maxLineLength-2]
	}
	out = tagSection + out

	return []byte(strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return -1
		}
		return r
	}, out))
}

func (m *Message) String() string {
	return string(m.Bytes())
}

// Time returns the parsed value of the IRCv3 "time" tag, if present and
// parseable, matching the format servers send (an RFC 3339 timestamp, though
// some ircds are laxer, hence dateparse rather than time.Parse).
func (m *Message) Time() (time.Time, bool) {
	raw, ok := m.Tags.Get("time")
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsAction reports whether the message is a CTCP ACTION (an "/me" message).
func (m *Message) IsAction() bool {
	if m.Command != PRIVMSG || len(m.Params) < 2 {
		return false
	}
	text := m.Last()
	return len(text) > 7 && text[0] == ctcpDelim && strings.HasPrefix(text[1:], "ACTION ")
}

// StripAction strips the CTCP ACTION envelope from the trailing parameter,
// returning the bare text.
func (m *Message) StripAction() string {
	if !m.IsAction() {
		return m.Last()
	}
	text := m.Last()
	text = strings.TrimPrefix(text[1:], "ACTION ")
	return strings.TrimSuffix(text, string(rune(ctcpDelim)))
}

// IsFromChannel reports whether the first parameter is a channel name,
// i.e. whether this message was sent to a channel rather than directly to
// the client.
func (m *Message) IsFromChannel() bool {
	if len(m.Params) == 0 {
		return false
	}
	return IsValidChannel(m.Params[0])
}
