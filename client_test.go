package ircx

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReadLoopSkipsMalformedLineAndLogs exercises the wire-decode path
// directly: a line exceeding the parameter cap must be dropped without
// reaching rx, but the transport keeps running and later well-formed lines
// still arrive.
func TestReadLoopSkipsMalformedLineAndLogs(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	c := newTestClient("alice")
	c.Config.Logger = logger

	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	conn := &transport{
		sock:      client,
		rw:        bufio.NewReadWriter(bufio.NewReader(client), bufio.NewWriter(client)),
		connected: true,
	}
	c.conn = conn
	c.rx = make(chan *Message, 8)

	go c.readLoop(conn)

	w := bufio.NewWriter(server)
	_, err := w.WriteString("CMD a b c d e f g h i j k l m n o :p q\r\n")
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	_, err = w.WriteString("PRIVMSG #chan :hi\r\n")
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	select {
	case m := <-c.rx:
		assert.Equal(t, "PRIVMSG", m.Command)
	case <-time.After(time.Second):
		t.Fatal("well-formed line after a malformed one was never delivered")
	}

	var sawMalformed bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "dropping malformed line" {
			sawMalformed = true
		}
	}
	assert.True(t, sawMalformed, "malformed line should be logged")
}
