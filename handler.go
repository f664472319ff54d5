package ircx

import (
	"fmt"
	"math/rand"
	"runtime"
	"strings"
	"sync"
)

// Handler reacts to a single dispatched Message.
type Handler interface {
	Execute(c *Client, m *Message)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(c *Client, m *Message)

func (f HandlerFunc) Execute(c *Client, m *Message) { f(c, m) }

type handlerEntry struct {
	id      string
	fn      Handler
	once    bool
	done    chan struct{}
}

// Caller is the dispatch table mapping command name (or ALL_EVENTS) to an
// ordered list of handlers. Handlers for a single message run sequentially
// in registration order, so that state mutations made by one handler are
// visible to the next before it runs.
type Caller struct {
	mu       sync.Mutex
	internal map[string][]*handlerEntry
	external map[string][]*handlerEntry
	seq      int
}

func newCaller() *Caller {
	return &Caller{
		internal: map[string][]*handlerEntry{},
		external: map[string][]*handlerEntry{},
	}
}

func (c *Caller) nextID(cmd string) string {
	c.seq++
	return fmt.Sprintf("%s:%d:%x", cmd, c.seq, rand.Int63())
}

func (c *Caller) register(internal bool, cmd string, h Handler) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID(cmd)
	entry := &handlerEntry{id: id, fn: h}
	table := c.external
	if internal {
		table = c.internal
	}
	table[cmd] = append(table[cmd], entry)
	return id
}

// Add registers an external (user-supplied) handler for cmd, returning a
// removal token.
func (c *Caller) Add(cmd string, fn func(c *Client, m *Message)) string {
	return c.register(false, cmd, HandlerFunc(fn))
}

// AddHandler is as Add but takes a Handler value directly.
func (c *Caller) AddHandler(cmd string, h Handler) string {
	return c.register(false, cmd, h)
}

// AddOnce registers a handler that removes itself after its first
// invocation.
func (c *Caller) AddOnce(cmd string, fn func(c *Client, m *Message)) (id string, done <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id = c.nextID(cmd)
	ch := make(chan struct{})
	entry := &handlerEntry{id: id, fn: HandlerFunc(fn), once: true, done: ch}
	c.external[cmd] = append(c.external[cmd], entry)
	return id, ch
}

// Remove deletes a handler by its registration token.
func (c *Caller) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd := cmdFromID(id)
	c.external[cmd] = removeByID(c.external[cmd], id)
	c.internal[cmd] = removeByID(c.internal[cmd], id)
}

func cmdFromID(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i]
	}
	return id
}

func removeByID(entries []*handlerEntry, id string) []*handlerEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Clear removes every handler (internal and external) for cmd.
func (c *Caller) Clear(cmd string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.internal, cmd)
	delete(c.external, cmd)
}

// HasSpecific reports whether any handler (internal or external) is
// registered for cmd specifically, as opposed to only via ALL_EVENTS.
// Used by the builtin on_unknown fallback.
func (c *Caller) HasSpecific(cmd string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.internal[cmd]) > 0 || len(c.external[cmd]) > 0
}

// Count returns the number of handlers (internal + external) registered for
// cmd.
func (c *Caller) Count(cmd string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.internal[cmd]) + len(c.external[cmd])
}

func (c *Caller) snapshot(cmd string) (internal, external []*handlerEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	internal = append([]*handlerEntry(nil), c.internal[cmd]...)
	external = append([]*handlerEntry(nil), c.external[cmd]...)
	return
}

// runOne executes entries for cmd against m, in registration order, removing
// any entries marked once. Built-in (internal) handlers always run before
// user (external) ones for the same command.
func (c *Caller) runOne(client *Client, cmd string, m *Message) {
	internal, external := c.snapshot(cmd)
	var toRemove []string

	run := func(e *handlerEntry) {
		client.runProtected(m, e.id, e.fn)
		if e.once {
			toRemove = append(toRemove, e.id)
			close(e.done)
		}
	}

	for _, e := range internal {
		run(e)
	}
	for _, e := range external {
		run(e)
	}

	for _, id := range toRemove {
		c.Remove(id)
	}
}

// Dispatch runs every handler relevant to m: ALL_EVENTS handlers first, then
// command-specific ones, all sequentially in registration order.
func (c *Caller) Dispatch(client *Client, m *Message) {
	if m.Command != ALL_EVENTS {
		c.runOne(client, ALL_EVENTS, m)
	}
	c.runOne(client, m.Command, m)
}

// HandlerError describes a handler that panicked during dispatch, captured
// for Config.RecoverFunc.
type HandlerError struct {
	Message *Message
	ID      string
	File    string
	Line    int
	Func    string
	Panic   interface{}
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s panicked at %s:%d (%s): %v", e.ID, e.File, e.Line, e.Func, e.Panic)
}

// runProtected executes a single handler, recovering a panic into
// Config.RecoverFunc (or re-panicking if none is configured, matching the
// teacher's DefaultRecoverHandler-absent behavior).
func (c *Client) runProtected(m *Message, id string, h Handler) {
	if c.Config.RecoverFunc == nil {
		h.Execute(c, m)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			pc, file, line, _ := runtime.Caller(3)
			fn := runtime.FuncForPC(pc)
			name := "unknown"
			if fn != nil {
				name = fn.Name()
			}
			c.Config.RecoverFunc(c, &HandlerError{Message: m, ID: id, File: file, Line: line, Func: name, Panic: r})
		}
	}()

	h.Execute(c, m)
}

// DefaultRecoverHandler logs the panic and otherwise swallows it, keeping
// the event loop alive.
func DefaultRecoverHandler(c *Client, err *HandlerError) {
	c.logger().WithField("component", "dispatch").Errorf("recovered handler panic: %s", err)
}
