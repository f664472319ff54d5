package ircx

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Dialer abstracts the network dial step so tests can substitute an
// in-memory pipe instead of a real socket.
type Dialer interface {
	Dial(network, addr string) (net.Conn, error)
}

type netDialer struct {
	bindAddr string
	timeout  time.Duration
}

func (d *netDialer) Dial(network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.timeout}
	if d.bindAddr != "" {
		if local, err := net.ResolveTCPAddr(network, d.bindAddr+":0"); err == nil {
			dialer.LocalAddr = local
		}
	}
	return dialer.Dial(network, addr)
}

// transport wraps the raw socket with buffered framing and last-activity
// bookkeeping.
type transport struct {
	mu sync.RWMutex

	sock net.Conn
	rw   *bufio.ReadWriter

	lastActive time.Time
	lastWrite  time.Time
	connTime   time.Time
	connected  bool
}

const lineDelim = '\n'

func dial(ctx context.Context, cfg *Config, dialer Dialer, addr string) (*transport, error) {
	if dialer == nil {
		dialer = &netDialer{bindAddr: cfg.Bind, timeout: 10 * time.Second}
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := dialer.Dial("tcp", addr)
		ch <- result{c, err}
	}()

	var sock net.Conn
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, r.err)
		}
		sock = r.conn
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if cfg.TLS != nil && cfg.TLS.Enable {
		tlsConn, err := tlsHandshake(sock, cfg, addr)
		if err != nil {
			sock.Close()
			return nil, err
		}
		sock = tlsConn
	}

	now := time.Now()
	return &transport{
		sock:       sock,
		rw:         bufio.NewReadWriter(bufio.NewReader(sock), bufio.NewWriter(sock)),
		connTime:   now,
		lastActive: now,
		connected:  true,
	}, nil
}

func tlsHandshake(conn net.Conn, cfg *Config, addr string) (*tls.Conn, error) {
	tlsCfg := &tls.Config{}
	if cfg.TLS.Config != nil {
		tlsCfg = cfg.TLS.Config.Clone()
	}
	if tlsCfg.ServerName == "" {
		if host, _, err := net.SplitHostPort(addr); err == nil {
			tlsCfg.ServerName = host
		}
	}
	tlsCfg.InsecureSkipVerify = tlsCfg.InsecureSkipVerify || cfg.TLS.InsecureSkipVerify

	tlsConn := tls.Client(conn, tlsCfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
	}
	return tlsConn, nil
}

// readLine blocks for the next wire line (without CRLF), honoring a read
// deadline so pingLoop-style keepalive logic can detect a dead peer.
func (t *transport) readLine(deadline time.Duration) (string, error) {
	t.mu.RLock()
	sock := t.sock
	rw := t.rw
	t.mu.RUnlock()

	if deadline > 0 {
		sock.SetReadDeadline(time.Now().Add(deadline))
	}

	line, err := rw.ReadString(lineDelim)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.lastActive = time.Now()
	t.mu.Unlock()

	return strings.TrimRight(line, "\r\n"), nil
}

func (t *transport) writeLine(b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return ErrNotConnected
	}

	if _, err := t.rw.Write(b); err != nil {
		return err
	}
	if _, err := t.rw.WriteString("\r\n"); err != nil {
		return err
	}
	if err := t.rw.Flush(); err != nil {
		return err
	}
	t.lastWrite = time.Now()
	return nil
}

func (t *transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return nil
	}
	t.connected = false
	return t.sock.Close()
}

func (t *transport) isConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

func (t *transport) tlsState() (tls.ConnectionState, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tlsConn, ok := t.sock.(*tls.Conn)
	if !ok {
		return tls.ConnectionState{}, ErrConnNotTLS
	}
	return tlsConn.ConnectionState(), nil
}
