package ircx

import (
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map"
)

// User tracks everything the client knows about a peer nick. Membership
// lives in cmap-backed tables rather than plain maps with a shared mutex,
// so lookups from handler goroutines never contend with each other on a
// single coarse lock.
type User struct {
	Nick  string
	Ident string
	Host  string

	Account string
	RealName string
	Away     bool
	AwayMsg  string

	// Perms maps a case-folded channel name to the set of membership
	// prefix modes (e.g. "ov") the user holds in that channel.
	Perms cmap.ConcurrentMap

	FirstSeen  time.Time
	LastActive time.Time

	// Stale marks a user no longer sharing any tracked channel with the
	// client; such a user has already been removed from the user table, so
	// only copies held elsewhere still carry it.
	Stale bool

	// cm is the active CaseMapping at the time this User was created,
	// copied so ModesIn can fold channel names the same way state.normalize
	// does without needing a back-reference to state.
	cm CaseMapping
}

// Mask returns the full nick!ident@host hostmask.
func (u *User) Mask() string {
	ident, host := u.Ident, u.Host
	if ident == "" {
		ident = "*"
	}
	if host == "" {
		host = "*"
	}
	return u.Nick + "!" + ident + "@" + host
}

// ModesIn returns the membership prefix modes (e.g. "ov") the user holds in
// the given channel, or "" if the user is not tracked as a member there.
func (u *User) ModesIn(channel string) string {
	v, ok := u.Perms.Get(u.cm.Fold(channel))
	if !ok {
		return ""
	}
	return v.(string)
}

func newUser(src *Source, cm CaseMapping) *User {
	now := time.Now()
	return &User{
		Nick:       src.Name,
		Ident:      src.Ident,
		Host:       src.Host,
		Perms:      cmap.New(),
		FirstSeen:  now,
		LastActive: now,
		cm:         cm,
	}
}

// Channel tracks everything the client knows about a joined or observed
// channel.
type Channel struct {
	Name    string
	Topic   string
	Created string

	// Users maps case-folded nick to *User for members this client has
	// observed in the channel.
	Users cmap.ConcurrentMap

	Modes CModes

	Joined time.Time

	cm CaseMapping
}

// Len returns the number of tracked members.
func (ch *Channel) Len() int { return ch.Users.Count() }

// UserIn reports whether nick is a tracked member.
func (ch *Channel) UserIn(nick string) bool {
	_, ok := ch.Users.Get(ch.cm.Fold(nick))
	return ok
}

func newChannel(name string, chanModes, prefixes string, cm CaseMapping) *Channel {
	return &Channel{
		Name:   name,
		Users:  cmap.New(),
		Modes:  newCModes(chanModes, prefixes),
		Joined: time.Now(),
		cm:     cm,
	}
}

// state holds all mutable connection/session state for a Client: the
// negotiated identity, the user/channel tables, capability and ISUPPORT
// state. It is embedded in Client and reset at the start of each
// registration attempt.
type state struct {
	mu sync.RWMutex

	nick  string
	ident string
	host  string

	network string
	motd    string

	channels cmap.ConcurrentMap // case-folded name -> *Channel
	users    cmap.ConcurrentMap // case-folded nick -> *User

	isupport *ISupport

	enabledCaps map[string]string

	// sts carries any Strict Transport Security policy learned from the
	// "sts" capability; unlike the rest of state it survives reset, since
	// its whole purpose is to outlive the connection that learned it.
	sts stsPolicy
}

func newState() *state {
	return &state{
		channels: cmap.New(),
		users:    cmap.New(),
		isupport: newISupport(),
	}
}

func (s *state) reset(nick, ident, host string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nick, s.ident, s.host = nick, ident, host
	s.network = ""
	s.motd = ""
	s.channels = cmap.New()
	s.users = cmap.New()
	s.isupport = newISupport()
	s.enabledCaps = map[string]string{}
}

func (s *state) getNick() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nick
}

func (s *state) setNick(n string) {
	s.mu.Lock()
	s.nick = n
	s.mu.Unlock()
}

func (s *state) getIdent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ident
}

func (s *state) getHost() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.host
}

func (s *state) getNetwork() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.network
}

// normalize case-folds s per the currently negotiated ISUPPORT casemapping,
// the comparison IRC uses everywhere identities are keyed or compared
// (spec §4.A, testable property 3).
func (s *state) normalize(v string) string {
	s.mu.RLock()
	cm := CaseMappingRFC1459
	if s.isupport != nil {
		cm = s.isupport.CaseMapping
	}
	s.mu.RUnlock()
	return cm.Fold(v)
}

func (s *state) caseMapping() CaseMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.isupport == nil {
		return CaseMappingRFC1459
	}
	return s.isupport.CaseMapping
}

func (s *state) lookupUser(nick string) *User {
	v, ok := s.users.Get(s.normalize(nick))
	if !ok {
		return nil
	}
	return v.(*User)
}

func (s *state) lookupChannel(name string) *Channel {
	v, ok := s.channels.Get(s.normalize(name))
	if !ok {
		return nil
	}
	return v.(*Channel)
}

func (s *state) createUser(src *Source) *User {
	key := s.normalize(src.Name)
	if v, ok := s.users.Get(key); ok {
		u := v.(*User)
		if src.Ident != "" {
			u.Ident = src.Ident
		}
		if src.Host != "" {
			u.Host = src.Host
		}
		u.Stale = false
		return u
	}
	u := newUser(src, s.caseMapping())
	s.users.Set(key, u)
	return u
}

func (s *state) createChannel(name string) *Channel {
	key := s.normalize(name)
	if v, ok := s.channels.Get(key); ok {
		return v.(*Channel)
	}
	var chanModes, prefixes string
	if s.isupport != nil {
		chanModes, prefixes = s.isupport.ChanModes, s.isupport.Prefix
	}
	ch := newChannel(name, chanModes, prefixes, s.caseMapping())
	s.channels.Set(key, ch)
	return ch
}

func (s *state) addMembership(channelName string, u *User) {
	ch := s.lookupChannel(channelName)
	if ch == nil {
		return
	}
	ch.Users.Set(s.normalize(u.Nick), u)
	if _, ok := u.Perms.Get(s.normalize(channelName)); !ok {
		u.Perms.Set(s.normalize(channelName), "")
	}
}

// deleteChannel removes a channel and, for every member whose only shared
// channel was this one, marks them stale.
func (s *state) deleteChannel(name string) {
	key := s.normalize(name)
	ch := s.lookupChannel(name)
	if ch == nil {
		return
	}
	for _, nick := range ch.Users.Keys() {
		s.removeMembership(name, nick)
	}
	s.channels.Remove(key)
}

// removeMembership drops nick's membership in channelName. If channelName
// is "" the user is removed from every channel (used for QUIT). A user with
// no remaining channels is marked Stale and removed from the user table.
func (s *state) removeMembership(channelName, nick string) {
	nickKey := s.normalize(nick)
	u := s.lookupUser(nick)
	if u == nil {
		return
	}

	if channelName == "" {
		for _, chName := range u.Perms.Keys() {
			if ch := s.lookupChannel(chName); ch != nil {
				ch.Users.Remove(nickKey)
			}
		}
		u.Perms = cmapNewEmpty()
	} else {
		chKey := s.normalize(channelName)
		u.Perms.Remove(chKey)
		if ch := s.lookupChannel(channelName); ch != nil {
			ch.Users.Remove(nickKey)
		}
	}

	if u.Perms.Count() == 0 {
		u.Stale = true
		s.users.Remove(nickKey)
	}
}

func cmapNewEmpty() cmap.ConcurrentMap { return cmap.New() }

// renameUser updates every table keyed by the old nick to the new one,
// including the client's own identity if oldNick is us.
func (s *state) renameUser(oldNick, newNick string) {
	oldKey, newKey := s.normalize(oldNick), s.normalize(newNick)

	if oldKey == s.normalize(s.getNick()) {
		s.setNick(newNick)
	}

	v, ok := s.users.Get(oldKey)
	if !ok {
		return
	}
	u := v.(*User)
	u.Nick = newNick
	u.LastActive = time.Now()
	s.users.Remove(oldKey)
	s.users.Set(newKey, u)

	for _, chName := range u.Perms.Keys() {
		if ch := s.lookupChannel(chName); ch != nil {
			if pv, ok := ch.Users.Get(oldKey); ok {
				ch.Users.Remove(oldKey)
				ch.Users.Set(newKey, pv)
			}
		}
	}
}

func (s *state) channelList() []*Channel {
	out := make([]*Channel, 0, s.channels.Count())
	for item := range s.channels.IterBuffered() {
		out = append(out, item.Val.(*Channel))
	}
	return out
}

func (s *state) userList() []*User {
	out := make([]*User, 0, s.users.Count())
	for item := range s.users.IterBuffered() {
		out = append(out, item.Val.(*User))
	}
	return out
}
