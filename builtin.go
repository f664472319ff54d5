package ircx

import (
	"strings"
	"time"
)

// registerBuiltins wires every always-on internal handler: connection
// lifecycle, user/channel state tracking (unless Config.DisableTracking),
// and the high-level callback derivations from Config. Grounded on the
// teacher's registerBuiltins/registerHandlers.
func (c *Client) registerBuiltins() {
	c.Handlers.register(true, RPL_WELCOME, HandlerFunc(handleWelcome))
	c.Handlers.register(true, PING, HandlerFunc(handlePING))
	c.Handlers.register(true, ERROR, HandlerFunc(handleERROR))
	c.Handlers.register(true, ALL_EVENTS, HandlerFunc(handleRawCallback))
	c.Handlers.register(true, ALL_EVENTS, HandlerFunc(handleUnknown))

	if c.Config.DisableTracking {
		return
	}

	c.Handlers.register(true, JOIN, HandlerFunc(handleJOIN))
	c.Handlers.register(true, PART, HandlerFunc(handlePART))
	c.Handlers.register(true, KICK, HandlerFunc(handleKICK))
	c.Handlers.register(true, QUIT, HandlerFunc(handleQUIT))
	c.Handlers.register(true, NICK, HandlerFunc(handleNICK))
	c.Handlers.register(true, RPL_NAMREPLY, HandlerFunc(handleNAMES))
	c.Handlers.register(true, RPL_ENDOFNAMES, HandlerFunc(handleENDOFNAMES))

	c.Handlers.register(true, MODE, HandlerFunc(handleMODE))
	c.Handlers.register(true, RPL_CHANNELMODEIS, HandlerFunc(handleMODE))

	c.Handlers.register(true, RPL_WHOREPLY, HandlerFunc(handleWHO))
	c.Handlers.register(true, RPL_WHOSPCRPL, HandlerFunc(handleWHO))

	c.Handlers.register(true, TOPIC, HandlerFunc(handleTOPIC))
	c.Handlers.register(true, RPL_TOPIC, HandlerFunc(handleRPLTOPIC))
	c.Handlers.register(true, RPL_CREATIONTIME, HandlerFunc(handleCREATIONTIME))

	c.Handlers.register(true, INVITE, HandlerFunc(handleINVITE))

	c.Handlers.register(true, PRIVMSG, HandlerFunc(handleMessage))
	c.Handlers.register(true, NOTICE, HandlerFunc(handleNotice))

	if !c.Config.DisableCapTracking {
		c.Handlers.register(true, RPL_ISUPPORT, HandlerFunc(handleISUPPORT))
		c.Handlers.register(true, CHGHOST, HandlerFunc(handleCHGHOST))
		c.Handlers.register(true, AWAY, HandlerFunc(handleAWAY))
		c.Handlers.register(true, ACCOUNT, HandlerFunc(handleACCOUNT))
		c.Handlers.register(true, RPL_MONONLINE, HandlerFunc(handleMonitorOnline))
		c.Handlers.register(true, RPL_MONOFFLINE, HandlerFunc(handleMonitorOffline))
	}
}

func handleWelcome(c *Client, m *Message) {
	if c.Config.OnConnect != nil {
		c.Config.OnConnect(c)
	}
}

func handlePING(c *Client, m *Message) {
	c.Cmd.Pong(m.Last())
}

func handleERROR(c *Client, m *Message) {
	c.mu.Lock()
	c.lastErr = &ProtocolError{Stage: "connection", Err: errServerClosed(m.Last())}
	c.mu.Unlock()
}

type errServerClosed string

func (e errServerClosed) Error() string { return "server closed connection: " + string(e) }

func handleRawCallback(c *Client, m *Message) {
	if c.Config.OnRaw != nil {
		c.Config.OnRaw(c, m)
	}
}

// handleUnknown fires Config.OnUnknown for any command with no specific
// (non-ALL_EVENTS) handler registered, per spec §4.F.
func handleUnknown(c *Client, m *Message) {
	if c.Handlers.HasSpecific(m.Command) {
		return
	}
	if c.Config.OnUnknown != nil {
		c.Config.OnUnknown(c, m)
	}
}

func handleJOIN(c *Client, m *Message) {
	if m.Source == nil || len(m.Params) == 0 {
		return
	}
	channelName := m.Params[0]

	channel := c.state.createChannel(channelName)
	user := c.state.createUser(m.Source)
	c.state.addMembership(channelName, user)

	if len(m.Params) >= 2 && m.Params[1] != "*" {
		user.Account = m.Params[1]
	}
	if len(m.Params) >= 3 {
		user.RealName = m.Last()
	}

	isSelf := c.state.normalize(m.Source.Name) == c.state.normalize(c.GetNick())
	if isSelf {
		c.state.mu.Lock()
		c.state.ident = m.Source.Ident
		c.state.host = m.Source.Host
		c.state.mu.Unlock()
		c.send(&Message{Command: MODE, Params: []string{channelName}})
	}

	if c.Config.OnJoin != nil {
		c.Config.OnJoin(c, channel, user)
	}
}

func handlePART(c *Client, m *Message) {
	if m.Source == nil || len(m.Params) < 1 {
		return
	}
	channelName := m.Params[0]
	channel := c.state.lookupChannel(channelName)
	reason := ""
	if len(m.Params) > 1 {
		reason = m.Last()
	}

	isSelf := c.state.normalize(m.Source.Name) == c.state.normalize(c.GetNick())
	user := c.state.lookupUser(m.Source.Name)

	if isSelf {
		c.state.deleteChannel(channelName)
	} else {
		c.state.removeMembership(channelName, m.Source.Name)
	}

	if c.Config.OnPart != nil && channel != nil {
		c.Config.OnPart(c, channel, user, reason)
	}
}

func handleKICK(c *Client, m *Message) {
	if len(m.Params) < 2 {
		return
	}
	channelName, kicked := m.Params[0], m.Params[1]
	channel := c.state.lookupChannel(channelName)
	reason := ""
	if len(m.Params) > 2 {
		reason = m.Last()
	}

	kicker := ""
	if m.Source != nil {
		kicker = m.Source.Name
	}

	if c.state.normalize(kicked) == c.state.normalize(c.GetNick()) {
		c.state.deleteChannel(channelName)
	} else {
		c.state.removeMembership(channelName, kicked)
	}

	if c.Config.OnKick != nil && channel != nil {
		c.Config.OnKick(c, channel, kicker, kicked, reason)
	}
}

func handleQUIT(c *Client, m *Message) {
	if m.Source == nil {
		return
	}
	reason := m.Last()
	user := c.state.lookupUser(m.Source.Name)
	if c.state.normalize(m.Source.Name) != c.state.normalize(c.GetNick()) {
		c.state.removeMembership("", m.Source.Name)
	}
	if c.Config.OnQuit != nil && user != nil {
		c.Config.OnQuit(c, user, reason)
	}
}

func handleNICK(c *Client, m *Message) {
	if m.Source == nil || len(m.Params) < 1 {
		return
	}
	oldNick := m.Source.Name
	newNick := m.Last()
	c.state.renameUser(oldNick, newNick)
	if c.Config.OnNickChange != nil {
		c.Config.OnNickChange(c, oldNick, newNick, nil)
	}
}

// handleNAMES processes RPL_NAMREPLY (353): "<client> <sym> <channel>
// :<prefixed-nick> ...".
func handleNAMES(c *Client, m *Message) {
	if len(m.Params) < 3 {
		return
	}
	channelName := m.Params[len(m.Params)-2]
	if c.state.lookupChannel(channelName) == nil {
		c.state.createChannel(channelName)
	}

	modeLetters, symbolLetters := parsePrefixes(c.ISupport().Prefix)

	for _, token := range strings.Fields(m.Last()) {
		prefixSyms, nick, ok := parseUserPrefix(symbolLetters, token)
		if !ok {
			continue
		}
		user := c.state.createUser(&Source{Name: nick})
		c.state.addMembership(channelName, user)
		if prefixSyms != "" {
			modes := symbolsToModes(modeLetters, symbolLetters, prefixSyms)
			user.Perms.Set(c.state.normalize(channelName), modes)
		}
	}
}

func handleENDOFNAMES(c *Client, m *Message) {}

// handleMODE applies a channel mode change, distinguishing membership
// prefix modes (PREFIX) from persistent settings (CHANMODES classes),
// per spec §4.K.
func handleMODE(c *Client, m *Message) {
	if len(m.Params) < 1 {
		return
	}
	target := m.Params[0]
	if !c.ISupport().IsValidChannel(target) {
		return
	}
	channel := c.state.lookupChannel(target)
	if channel == nil {
		return
	}
	if len(m.Params) < 2 {
		return
	}

	flags := m.Params[1]
	args := m.Params[2:]
	changes := channel.Modes.Parse(flags, args)

	prefixLetters, _ := parsePrefixes(c.ISupport().Prefix)
	for _, chg := range changes {
		if strings.IndexByte(prefixLetters, chg.Name) < 0 {
			continue
		}
		u := c.state.lookupUser(chg.Arg)
		if u == nil {
			continue
		}
		cur := u.ModesIn(target)
		if chg.Add {
			if !strings.ContainsRune(cur, rune(chg.Name)) {
				cur += string(chg.Name)
			}
		} else {
			cur = strings.ReplaceAll(cur, string(chg.Name), "")
		}
		u.Perms.Set(c.state.normalize(target), cur)
	}

	channel.Modes.Apply(changes)

	if c.Config.OnModeChange != nil {
		c.Config.OnModeChange(c, target, changes, m.Source)
	}
}

func handleTOPIC(c *Client, m *Message) {
	if len(m.Params) < 2 {
		return
	}
	channel := c.state.lookupChannel(m.Params[0])
	if channel == nil {
		return
	}
	channel.Topic = m.Last()
	setter := ""
	if m.Source != nil {
		setter = m.Source.Name
	}
	if c.Config.OnTopicChange != nil {
		c.Config.OnTopicChange(c, channel, setter)
	}
}

// handleRPLTOPIC processes RPL_TOPIC (332): "<client> <channel> :<topic>".
func handleRPLTOPIC(c *Client, m *Message) {
	if len(m.Params) < 2 {
		return
	}
	channel := c.state.lookupChannel(m.Params[1])
	if channel == nil {
		return
	}
	channel.Topic = m.Last()
}

func handleCREATIONTIME(c *Client, m *Message) {
	if len(m.Params) < 3 {
		return
	}
	channel := c.state.lookupChannel(m.Params[1])
	if channel == nil {
		return
	}
	channel.Created = m.Params[2]
}

// handleWHO processes RPL_WHOREPLY (352) and the WHOX variant (354).
func handleWHO(c *Client, m *Message) {
	var ident, host, nick, account, realname string

	if m.Command == RPL_WHOSPCRPL {
		if len(m.Params) < 7 {
			return
		}
		ident, host, nick, account = m.Params[2], m.Params[3], m.Params[4], m.Params[5]
		realname = m.Last()
	} else {
		if len(m.Params) < 6 {
			return
		}
		ident, host, nick = m.Params[2], m.Params[3], m.Params[5]
		realname = m.Last()
		if sp := strings.IndexByte(realname, ' '); sp >= 0 {
			realname = realname[sp+1:]
		}
	}

	user := c.state.createUser(&Source{Name: nick, Ident: ident, Host: host})
	user.RealName = realname
	if account != "" && account != "0" {
		user.Account = account
	}
}

func handleCHGHOST(c *Client, m *Message) {
	if m.Source == nil || len(m.Params) < 2 {
		return
	}
	user := c.state.lookupUser(m.Source.Name)
	if user == nil {
		return
	}
	user.Ident = m.Params[0]
	user.Host = m.Params[1]
}

func handleAWAY(c *Client, m *Message) {
	if m.Source == nil {
		return
	}
	user := c.state.lookupUser(m.Source.Name)
	if user == nil {
		return
	}
	user.Away = len(m.Params) > 0 && m.Last() != ""
	if user.Away {
		user.AwayMsg = m.Last()
	} else {
		user.AwayMsg = ""
	}
}

func handleACCOUNT(c *Client, m *Message) {
	if m.Source == nil || len(m.Params) < 1 {
		return
	}
	user := c.state.lookupUser(m.Source.Name)
	if user == nil {
		return
	}
	if m.Params[0] == "*" {
		user.Account = ""
	} else {
		user.Account = m.Params[0]
	}
}

func handleINVITE(c *Client, m *Message) {
	if len(m.Params) < 2 || m.Source == nil {
		return
	}
	if c.Config.OnInvite != nil {
		c.Config.OnInvite(c, m.Params[1], m.Source.Name)
	}
}

func handleMonitorOnline(c *Client, m *Message) {
	dispatchMonitor(c, m, c.Config.OnUserOnline)
}

func handleMonitorOffline(c *Client, m *Message) {
	dispatchMonitor(c, m, c.Config.OnUserOffline)
}

func dispatchMonitor(c *Client, m *Message, fn func(*Client, string)) {
	if fn == nil || len(m.Params) < 2 {
		return
	}
	for _, entry := range strings.Split(m.Last(), ",") {
		nick := entry
		if bang := strings.IndexByte(entry, '!'); bang >= 0 {
			nick = entry[:bang]
		}
		if nick != "" {
			fn(c, nick)
		}
	}
}

// handleISUPPORT applies RPL_ISUPPORT (005) tokens and fires
// Config.OnISupport for anything this package doesn't assign a defined
// effect to.
func handleISUPPORT(c *Client, m *Message) {
	if len(m.Params) < 2 {
		return
	}
	tokens := m.Params[1 : len(m.Params)-1]
	c.state.isupport.Apply(tokens)

	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		key, val := tok, ""
		if tok[0] == '-' {
			key = tok[1:]
		} else if eq := strings.IndexByte(tok, '='); eq >= 0 {
			key, val = tok[:eq], tok[eq+1:]
		}
		if Unrecognized(key) {
			if hook, ok := c.Config.OnISupport[strings.ToUpper(key)]; ok {
				hook(c, val)
			}
		}
	}
}

func handleMessage(c *Client, m *Message) {
	if len(m.Params) < 2 || m.Source == nil {
		return
	}
	if user := c.state.lookupUser(m.Source.Name); user != nil {
		user.LastActive = time.Now()
	}

	if _, _, ok := decodeCTCP(m.Last()); ok && !m.IsAction() {
		c.CTCP.dispatch(c, m)
		return
	}

	if c.Config.OnMessage != nil {
		c.Config.OnMessage(c, m)
	}
	if m.IsFromChannel() {
		if c.Config.OnChannelMessage != nil {
			c.Config.OnChannelMessage(c, m)
		}
	} else {
		if c.Config.OnPrivateMessage != nil {
			c.Config.OnPrivateMessage(c, m)
		}
	}
}

func handleNotice(c *Client, m *Message) {
	if len(m.Params) < 2 {
		return
	}
	if _, _, ok := decodeCTCP(m.Last()); ok {
		c.CTCP.dispatch(c, m)
		return
	}
	if c.Config.OnNotice != nil {
		c.Config.OnNotice(c, m)
	}
}
