package ircx

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connectedTestClient wires c.conn to one end of a loopback TCP connection
// and returns a reader over the other end, so Commands methods can be
// asserted against the exact wire bytes they produce. The kernel buffers
// writes, so a send returns before the test reads it.
func connectedTestClient(t *testing.T, c *Client) *bufio.Reader {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server, err := ln.Accept()
	require.NoError(t, err)
	t.Cleanup(func() { client.Close(); server.Close() })

	c.mu.Lock()
	c.conn = &transport{
		sock:      client,
		rw:        bufio.NewReadWriter(bufio.NewReader(client), bufio.NewWriter(client)),
		connected: true,
	}
	c.throttle = newThrottle(100, 0, true)
	c.mu.Unlock()

	return bufio.NewReader(server)
}

func readWireLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	done := make(chan string, 1)
	go func() {
		line, err := r.ReadString('\n')
		if err != nil {
			done <- ""
			return
		}
		done <- line
	}()
	select {
	case line := <-done:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for wire line")
		return ""
	}
}

func TestCommandsNickValidation(t *testing.T) {
	c := newTestClient("alice")
	err := c.Cmd.Nick("not a nick")
	var target *ErrInvalidTarget
	require.ErrorAs(t, err, &target)
}

func TestCommandsNickSendsWireLine(t *testing.T) {
	c := newTestClient("alice")
	r := connectedTestClient(t, c)

	require.NoError(t, c.Cmd.Nick("bob"))
	assert.Equal(t, "NICK bob\r\n", readWireLine(t, r))
}

func TestCommandsJoinBatchesChannels(t *testing.T) {
	c := newTestClient("alice")
	r := connectedTestClient(t, c)

	require.NoError(t, c.Cmd.Join("#a", "#b", "#c"))
	assert.Equal(t, "JOIN #a,#b,#c\r\n", readWireLine(t, r))
}

func TestCommandsJoinRejectsInvalidChannel(t *testing.T) {
	c := newTestClient("alice")
	err := c.Cmd.Join("not-a-channel")
	var target *ErrInvalidTarget
	require.ErrorAs(t, err, &target)
}

func TestCommandsPartMessage(t *testing.T) {
	c := newTestClient("alice")
	r := connectedTestClient(t, c)
	c.state.createChannel("#chan")

	require.NoError(t, c.Cmd.PartMessage("#chan", "bye"))
	assert.Equal(t, "PART #chan bye\r\n", readWireLine(t, r))
}

func TestCommandsPartRejectsChannelNotJoined(t *testing.T) {
	c := newTestClient("alice")
	connectedTestClient(t, c)

	err := c.Cmd.Part("#chan")
	var target *NotInChannelError
	require.ErrorAs(t, err, &target)
}

func TestCommandsJoinRejectsAlreadyJoinedChannel(t *testing.T) {
	c := newTestClient("alice")
	connectedTestClient(t, c)
	c.state.createChannel("#chan")

	err := c.Cmd.Join("#chan")
	var target *AlreadyInChannelError
	require.ErrorAs(t, err, &target)
}

func TestCommandsMessageAppliesFormatWhenEnabled(t *testing.T) {
	c := New(Config{Nick: "alice", Server: "irc.example.net", GlobalFormat: true})
	r := connectedTestClient(t, c)

	require.NoError(t, c.Cmd.Message("#chan", "{b}bold{b}"))
	line := readWireLine(t, r)
	assert.Contains(t, line, "\x02bold\x02")
}

func TestCommandsMessageLeavesTextAloneWhenFormatDisabled(t *testing.T) {
	c := newTestClient("alice")
	r := connectedTestClient(t, c)

	require.NoError(t, c.Cmd.Message("#chan", "{b}bold{b}"))
	assert.Equal(t, "PRIVMSG #chan {b}bold{b}\r\n", readWireLine(t, r))
}

func TestCommandsAction(t *testing.T) {
	c := newTestClient("alice")
	r := connectedTestClient(t, c)

	require.NoError(t, c.Cmd.Action("#chan", "waves"))
	assert.Equal(t, "PRIVMSG #chan :\x01ACTION waves\x01\r\n", readWireLine(t, r))
}

func TestCommandsAwayToggle(t *testing.T) {
	c := newTestClient("alice")
	r := connectedTestClient(t, c)

	require.NoError(t, c.Cmd.Away("lunch"))
	assert.Equal(t, "AWAY lunch\r\n", readWireLine(t, r))

	require.NoError(t, c.Cmd.Away(""))
	assert.Equal(t, "AWAY\r\n", readWireLine(t, r))
}

func TestCommandsMonitorAddEmptyIsNoop(t *testing.T) {
	c := newTestClient("alice")
	assert.NoError(t, c.Cmd.MonitorAdd())
}

func TestCommandsMonitorAddSendsJoinedList(t *testing.T) {
	c := newTestClient("alice")
	r := connectedTestClient(t, c)

	require.NoError(t, c.Cmd.MonitorAdd("bob", "carol"))
	assert.Equal(t, "MONITOR + bob,carol\r\n", readWireLine(t, r))
}

func TestCommandsKickWithReason(t *testing.T) {
	c := newTestClient("alice")
	r := connectedTestClient(t, c)

	require.NoError(t, c.Cmd.Kick("#chan", "bob", "spamming"))
	assert.Equal(t, "KICK #chan bob spamming\r\n", readWireLine(t, r))
}
