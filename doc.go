// Package ircx implements an IRC client library: a wire codec, a connection
// registration and capability-negotiation state machine, a cooperative
// single-threaded event loop, and a feature registry for composing optional
// IRCv3 behaviors on top of a minimal RFC 1459 core.
//
// A Client is constructed with New, configured with a Config, and driven by
// calling Run (or by handing it to a Pool alongside other clients sharing one
// loop). Handlers are registered on Client.Handlers and are invoked in
// registration order as messages arrive.
package ircx
