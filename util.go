package ircx

import "time"

// timeNowRFC2822 formats the current time the way CTCP TIME replies
// conventionally render it.
func timeNowRFC2822() string {
	return time.Now().Format(time.RFC1123Z)
}
