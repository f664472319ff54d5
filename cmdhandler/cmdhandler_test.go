package cmdhandler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tjarrett/ircx"
)

func newTestClient() *ircx.Client {
	return ircx.New(ircx.Config{Nick: "bot", Server: "irc.example.net"})
}

func TestNewQuotesRegexMetacharactersInPrefix(t *testing.T) {
	ch, err := New("[")
	require.NoError(t, err)
	require.NoError(t, ch.Add("greet", &Command{Fn: func(c *ircx.Client, in *Input) {}}))

	done := make(chan struct{}, 1)
	ch.cmds["greet"].Fn = func(c *ircx.Client, in *Input) { done <- struct{}{} }

	c := newTestClient()
	ch.Execute(c, ircx.ParseMessage(":alice!u@h PRIVMSG #chan :[greet"))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("literal '[' prefix was not matched")
	}
}

func TestAddValidatesName(t *testing.T) {
	ch, err := New("!")
	require.NoError(t, err)

	err = ch.Add("a bad name!", &Command{})
	assert.Error(t, err)

	err = ch.Add("good-name_1", &Command{Fn: func(c *ircx.Client, in *Input) {}})
	assert.NoError(t, err)

	err = ch.Add("good-name_1", &Command{Fn: func(c *ircx.Client, in *Input) {}})
	assert.Error(t, err, "duplicate registration should fail")
}

func TestAddRejectsNilCommand(t *testing.T) {
	ch, err := New("!")
	require.NoError(t, err)
	assert.Error(t, ch.Add("x", nil))
}

func TestExecuteInvokesMatchingCommand(t *testing.T) {
	ch, err := New("!")
	require.NoError(t, err)

	done := make(chan *Input, 1)
	require.NoError(t, ch.Add("greet", &Command{
		MinArgs: 1,
		Fn: func(c *ircx.Client, in *Input) {
			done <- in
		},
	}))

	c := newTestClient()
	m := ircx.ParseMessage(":alice!u@h PRIVMSG #chan :!greet world")
	ch.Execute(c, m)

	select {
	case in := <-done:
		assert.Equal(t, []string{"world"}, in.Args)
	case <-time.After(2 * time.Second):
		t.Fatal("command handler was not invoked in time")
	}
}

func TestExecuteIgnoresNonCommandText(t *testing.T) {
	ch, err := New("!")
	require.NoError(t, err)

	called := false
	require.NoError(t, ch.Add("greet", &Command{Fn: func(c *ircx.Client, in *Input) { called = true }}))

	c := newTestClient()
	ch.Execute(c, ircx.ParseMessage(":alice!u@h PRIVMSG #chan :just chatting"))
	assert.False(t, called)
}

func TestExecuteIgnoresUnknownCommand(t *testing.T) {
	ch, err := New("!")
	require.NoError(t, err)

	c := newTestClient()
	// Should not panic even though "missing" was never registered.
	ch.Execute(c, ircx.ParseMessage(":alice!u@h PRIVMSG #chan :!missing"))
}

func TestReplyTargetChannelVsPrivate(t *testing.T) {
	m := ircx.ParseMessage(":alice!u@h PRIVMSG #chan :!greet")
	assert.Equal(t, "#chan", replyTarget(m))

	m2 := ircx.ParseMessage(":alice!u@h PRIVMSG bot :!greet")
	assert.Equal(t, "alice", replyTarget(m2))
}

