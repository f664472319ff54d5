package ircx

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// throttle paces outbound messages using a token bucket, adapted from the
// teacher's hand-rolled ircConn.rate() delay accumulator into a wrapper
// around golang.org/x/time/rate — the same burst+refill shape, backed by a
// maintained library instead of re-deriving the arithmetic by hand.
type throttle struct {
	limiter *rate.Limiter
	bypass  bool
}

func newThrottle(burst int, every time.Duration, allowFlood bool) *throttle {
	if burst < 1 {
		burst = 1
	}
	var r rate.Limit
	if every <= 0 {
		r = rate.Inf
	} else {
		r = rate.Every(every)
	}
	return &throttle{limiter: rate.NewLimiter(r, burst), bypass: allowFlood}
}

// Wait blocks until the next send is permitted, unless bypass is set or cmd
// is one of the commands the registration/keepalive path must never be
// delayed by (PING, PONG, AUTHENTICATE, and the registration burst itself).
func (t *throttle) Wait(ctx context.Context, cmd string) error {
	if t.bypass || alwaysAllowed(cmd) {
		return nil
	}
	return t.limiter.Wait(ctx)
}

func alwaysAllowed(cmd string) bool {
	switch cmd {
	case PING, PONG, AUTHENTICATE, CAP, NICK, USER, PASS:
		return true
	default:
		return false
	}
}
