package ircx

import (
	"math/rand"
	"time"
)

// jitterTimer returns a timer firing after d ±10%, so reconnecting clients
// don't all hit the server in lockstep after a shared outage.
func jitterTimer(d time.Duration) <-chan time.Time {
	spread := float64(d) * 0.10
	delta := (rand.Float64()*2 - 1) * spread
	jittered := time.Duration(float64(d) + delta)
	if jittered < 0 {
		jittered = 0
	}
	return time.After(jittered)
}
