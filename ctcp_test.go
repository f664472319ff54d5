package ircx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeCTCP(t *testing.T) {
	typ, arg, ok := decodeCTCP("\x01VERSION\x01")
	assert.True(t, ok)
	assert.Equal(t, "VERSION", typ)
	assert.Equal(t, "", arg)

	typ, arg, ok = decodeCTCP("\x01ACTION waves hello\x01")
	assert.True(t, ok)
	assert.Equal(t, "ACTION", typ)
	assert.Equal(t, "waves hello", arg)

	_, _, ok = decodeCTCP("not ctcp")
	assert.False(t, ok)

	_, _, ok = decodeCTCP("\x01\x01")
	assert.False(t, ok)
}

func TestEncodeCTCP(t *testing.T) {
	assert.Equal(t, "\x01VERSION\x01", encodeCTCP("version", ""))
	assert.Equal(t, "\x01PING 123\x01", encodeCTCP("ping", "123"))
}

func TestCTCPAddHandlerCatchAll(t *testing.T) {
	ct := newCTCP()
	var seen string
	ct.AddHandler("*", func(c *Client, ev *CTCPEvent) { seen = ev.Type })

	c := newTestClient("alice")
	m := ParseMessage(":bob!u@h PRIVMSG alice :\x01FOO bar\x01")
	ct.dispatch(c, m)
	assert.Equal(t, "FOO", seen)
}

func TestCTCPDispatchSpecificType(t *testing.T) {
	ct := newCTCP()
	var gotText string
	ct.AddHandler("PING", func(c *Client, ev *CTCPEvent) { gotText = ev.Text })

	c := newTestClient("alice")
	m := ParseMessage(":bob!u@h PRIVMSG alice :\x01PING 42\x01")
	ct.dispatch(c, m)
	assert.Equal(t, "42", gotText)
}

func TestCTCPDispatchIgnoresAction(t *testing.T) {
	ct := newCTCP()
	called := false
	ct.AddHandler("*", func(c *Client, ev *CTCPEvent) { called = true })

	c := newTestClient("alice")
	m := ParseMessage(":bob!u@h PRIVMSG alice :\x01ACTION waves\x01")
	ct.dispatch(c, m)
	assert.False(t, called, "ACTION is handled via Message.IsAction, not the CTCP dispatcher")
}

func TestCTCPDispatchReplyRoutesToReplyHandlers(t *testing.T) {
	ct := newCTCP()
	var reqCalled, replyCalled bool
	ct.AddHandler("VERSION", func(c *Client, ev *CTCPEvent) { reqCalled = true })
	ct.AddReplyHandler("VERSION", func(c *Client, ev *CTCPEvent) { replyCalled = true })

	c := newTestClient("alice")
	m := ParseMessage(":bob!u@h NOTICE alice :\x01VERSION some-client 1.0\x01")
	ct.dispatch(c, m)
	assert.True(t, replyCalled)
	assert.False(t, reqCalled)
}

func TestCTCPDefaultHandlersRegistered(t *testing.T) {
	ct := newCTCP()
	ct.addDefaultHandlers()
	assert.NotEmpty(t, ct.requests["VERSION"])
	assert.NotEmpty(t, ct.requests["PING"])
	assert.NotEmpty(t, ct.requests["TIME"])
	assert.NotEmpty(t, ct.requests["CLIENTINFO"])
}
