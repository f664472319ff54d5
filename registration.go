package ircx

import (
	"context"
	"fmt"
)

// register drives connection registration: optional PASS, CAP LS (and SASL,
// if negotiated), NICK/USER, concluding on RPL_WELCOME or a registration
// failure. It runs as an explicit state machine fed by incoming numerics
// rather than a blocking sequence of reads; until registration concludes it
// dispatches messages from rx itself, since Run is not yet running.
func (c *Client) register(ctx context.Context) error {
	resultCh := make(chan error, 1)
	var doneOnce bool
	finish := func(err error) {
		if doneOnce {
			return
		}
		doneOnce = true
		resultCh <- err
	}

	welcomeID := c.Handlers.Add(RPL_WELCOME, func(cl *Client, m *Message) {
		if len(m.Params) > 0 {
			cl.state.setNick(m.Params[0])
		}
		finish(nil)
	})
	defer c.Handlers.Remove(welcomeID)

	passID := c.Handlers.Add(ERR_PASSWDMISMATCH, func(cl *Client, m *Message) {
		finish(&RegistrationError{Numeric: ERR_PASSWDMISMATCH, Reason: m.Last()})
	})
	defer c.Handlers.Remove(passID)

	banID := c.Handlers.Add(ERR_YOUREBANNEDCREEP, func(cl *Client, m *Message) {
		finish(&RegistrationError{Numeric: ERR_YOUREBANNEDCREEP, Reason: m.Last()})
	})
	defer c.Handlers.Remove(banID)

	nicks := append([]string{c.Config.Nick}, c.Config.FallbackNicks...)
	nickIdx := 0

	collideID := c.Handlers.Add(ERR_NICKNAMEINUSE, func(cl *Client, m *Message) {
		nickIdx++
		var next string
		if nickIdx < len(nicks) {
			next = nicks[nickIdx]
		} else if cl.Config.HandleNickCollide != nil {
			next = cl.Config.HandleNickCollide(cl.state.getNick())
		} else {
			next = cl.state.getNick() + "_"
		}
		if next == "" {
			finish(&RegistrationError{Numeric: ERR_NICKNAMEINUSE, Reason: "no fallback nick available"})
			return
		}
		cl.state.setNick(next)
		cl.send(&Message{Command: NICK, Params: []string{next}})
	})
	defer c.Handlers.Remove(collideID)

	c.cap = newCapNegotiator(c)
	c.cap.onFinish = func() {
		c.send(&Message{Command: NICK, Params: []string{c.state.getNick()}})
		c.send(&Message{Command: USER, Params: []string{c.Config.User, "0", "*", c.Config.Name}})
	}
	c.cap.begin()
	if c.cap.state == capDone {
		c.cap.onFinish()
	}

	for waiting := true; waiting; {
		select {
		case err := <-resultCh:
			if err != nil {
				return err
			}
			waiting = false
		case m, ok := <-c.rx:
			if !ok {
				if c.lastErr != nil {
					return c.lastErr
				}
				return ErrNotConnected
			}
			c.dispatch(m)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if c.lastErr != nil {
		if ae, ok := c.lastErr.(*AuthenticationError); ok {
			return ae
		}
		if ce, ok := c.lastErr.(*CapabilityError); ok {
			return ce
		}
	}

	return nil
}

// Reconnect closes the current connection (if any) and attempts to
// re-register, applying exponential backoff with ±10% jitter between
// attempts when Config.Reconnect is enabled. It is the caller's
// responsibility to invoke Run again afterward.
func (c *Client) Reconnect(ctx context.Context) error {
	c.Close()

	min, max := c.Config.reconnectBounds()
	delay := min

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-jitterTimer(delay):
			}
			delay *= 2
			if delay > max {
				delay = max
			}
		}

		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if !c.Config.Reconnect {
			return fmt.Errorf("reconnect: %w", err)
		}
	}
}
