package ircx

import (
	"fmt"
	"strings"
)

// Commands holds convenience wrappers over Client.Send for the common
// outbound verbs. Each validates its target where the codec or ISUPPORT
// table can cheaply catch a caller mistake before it reaches the wire.
type Commands struct {
	c *Client
}

// maxJoinLine bounds how many channels/keys Join batches onto one line.
const maxJoinLine = 450

// Nick changes the client's nickname.
func (cmd *Commands) Nick(name string) error {
	if !IsValidNick(name) {
		return &ErrInvalidTarget{Target: name}
	}
	return cmd.c.send(&Message{Command: NICK, Params: []string{name}})
}

// Join enters one or more channels, batching as many as fit on one line.
func (cmd *Commands) Join(channels ...string) error {
	var buf strings.Builder
	flush := func() error {
		if buf.Len() == 0 {
			return nil
		}
		err := cmd.c.send(&Message{Command: JOIN, Params: []string{buf.String()}})
		buf.Reset()
		return err
	}

	for _, ch := range channels {
		if !IsValidChannel(ch) {
			return &ErrInvalidTarget{Target: ch}
		}
		if cmd.c.state.lookupChannel(ch) != nil {
			return &AlreadyInChannelError{Channel: ch}
		}
		if buf.Len()+len(ch)+1 > maxJoinLine {
			if err := flush(); err != nil {
				return err
			}
		}
		if buf.Len() > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(ch)
	}
	return flush()
}

// JoinKey enters a single key-protected channel.
func (cmd *Commands) JoinKey(channel, key string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	if cmd.c.state.lookupChannel(channel) != nil {
		return &AlreadyInChannelError{Channel: channel}
	}
	return cmd.c.send(&Message{Command: JOIN, Params: []string{channel, key}})
}

// Part leaves channel with no reason.
func (cmd *Commands) Part(channel string) error {
	return cmd.PartMessage(channel, "")
}

// PartMessage leaves channel with reason as the parting message.
func (cmd *Commands) PartMessage(channel, reason string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	if cmd.c.state.lookupChannel(channel) == nil {
		return &NotInChannelError{Channel: channel}
	}
	params := []string{channel}
	if reason != "" {
		params = append(params, reason)
	}
	return cmd.c.send(&Message{Command: PART, Params: params})
}

// Message sends a PRIVMSG to target. When Config.GlobalFormat is set, text
// runs through Format first.
func (cmd *Commands) Message(target, text string) error {
	return cmd.c.send(&Message{Command: PRIVMSG, Params: []string{target, cmd.applyFormat(text)}})
}

// Messagef is Message with fmt.Sprintf-style formatting.
func (cmd *Commands) Messagef(target, format string, a ...interface{}) error {
	return cmd.Message(target, fmt.Sprintf(format, a...))
}

// Notice sends a NOTICE to target. When Config.GlobalFormat is set, text
// runs through Format first.
func (cmd *Commands) Notice(target, text string) error {
	return cmd.c.send(&Message{Command: NOTICE, Params: []string{target, cmd.applyFormat(text)}})
}

// Noticef is Notice with fmt.Sprintf-style formatting.
func (cmd *Commands) Noticef(target, format string, a ...interface{}) error {
	return cmd.Notice(target, fmt.Sprintf(format, a...))
}

// Action sends a CTCP ACTION ("/me") to target.
func (cmd *Commands) Action(target, text string) error {
	return cmd.Message(target, encodeCTCP("ACTION", text))
}

// SendCTCP sends a CTCP request to target via PRIVMSG.
func (cmd *Commands) SendCTCP(target, ctcpType, text string) error {
	return cmd.Message(target, encodeCTCP(ctcpType, text))
}

// SendCTCPReply sends a CTCP reply to target via NOTICE.
func (cmd *Commands) SendCTCPReply(target, ctcpType, text string) error {
	return cmd.Notice(target, encodeCTCP(ctcpType, text))
}

// Mode sends a MODE command; params are the mode flags and any arguments.
func (cmd *Commands) Mode(target string, params ...string) error {
	return cmd.c.send(&Message{Command: MODE, Params: append([]string{target}, params...)})
}

// Topic requests (no newTopic) or sets (newTopic) a channel's topic.
func (cmd *Commands) Topic(channel, newTopic string) error {
	if !IsValidChannel(channel) {
		return &ErrInvalidTarget{Target: channel}
	}
	if newTopic == "" {
		return cmd.c.send(&Message{Command: TOPIC, Params: []string{channel}})
	}
	return cmd.c.send(&Message{Command: TOPIC, Params: []string{channel, newTopic}})
}

// Invite invites nick to channel.
func (cmd *Commands) Invite(channel, nick string) error {
	return cmd.c.send(&Message{Command: INVITE, Params: []string{nick, channel}})
}

// Kick removes nick from channel, optionally with a reason.
func (cmd *Commands) Kick(channel, nick, reason string) error {
	params := []string{channel, nick}
	if reason != "" {
		params = append(params, reason)
	}
	return cmd.c.send(&Message{Command: KICK, Params: params})
}

// Away sets (non-empty reason) or clears (empty reason) the client's away
// status.
func (cmd *Commands) Away(reason string) error {
	if reason == "" {
		return cmd.c.send(&Message{Command: AWAY})
	}
	return cmd.c.send(&Message{Command: AWAY, Params: []string{reason}})
}

// Oper authenticates the client as an IRC operator.
func (cmd *Commands) Oper(name, password string) error {
	return cmd.c.send(&Message{Command: OPER, Params: []string{name, password}, Sensitive: true})
}

// Pong replies to a server PING.
func (cmd *Commands) Pong(token string) error {
	return cmd.c.send(&Message{Command: PONG, Params: []string{token}})
}

// Who issues a WHO query against mask.
func (cmd *Commands) Who(mask string) error {
	return cmd.c.send(&Message{Command: WHO, Params: []string{mask}})
}

// MonitorAdd subscribes to online/offline notifications for the given
// nicks via MONITOR +, per spec §4.M.
func (cmd *Commands) MonitorAdd(nicks ...string) error {
	if len(nicks) == 0 {
		return nil
	}
	return cmd.c.send(&Message{Command: MONITOR, Params: []string{"+", strings.Join(nicks, ",")}})
}

// MonitorRemove unsubscribes from the given nicks via MONITOR -.
func (cmd *Commands) MonitorRemove(nicks ...string) error {
	if len(nicks) == 0 {
		return nil
	}
	return cmd.c.send(&Message{Command: MONITOR, Params: []string{"-", strings.Join(nicks, ",")}})
}

// MonitorClear clears the entire MONITOR list (MONITOR C).
func (cmd *Commands) MonitorClear() error {
	return cmd.c.send(&Message{Command: MONITOR, Params: []string{"C"}})
}
