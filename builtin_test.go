package ircx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleJOINTracksOtherUser(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")

	var joinedUser *User
	c.Config.OnJoin = func(cl *Client, ch *Channel, u *User) { joinedUser = u }

	m := ParseMessage(":bob!ident@host JOIN #chan")
	c.Handlers.Dispatch(c, m)

	ch := c.LookupChannel("#chan")
	require.NotNil(t, ch)
	assert.True(t, ch.UserIn("bob"))
	require.NotNil(t, joinedUser)
	assert.Equal(t, "bob", joinedUser.Nick)
}

func TestHandleJOINSelfUpdatesIdentHost(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")

	m := ParseMessage(":alice!aident@ahost JOIN #chan")
	c.Handlers.Dispatch(c, m)

	assert.Equal(t, "aident", c.GetIdent())
	assert.Equal(t, "ahost", c.GetHost())
	assert.True(t, c.IsInChannel("#chan"))
}

func TestHandlePARTRemovesMembership(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")

	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h JOIN #chan"))
	require.True(t, c.LookupChannel("#chan").UserIn("bob"))

	var partedReason string
	c.Config.OnPart = func(cl *Client, ch *Channel, u *User, reason string) { partedReason = reason }

	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h PART #chan :goodbye"))
	assert.False(t, c.LookupChannel("#chan").UserIn("bob"))
	assert.Equal(t, "goodbye", partedReason)
}

func TestHandlePARTSelfDeletesChannel(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")

	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h JOIN #chan"))
	require.True(t, c.IsInChannel("#chan"))

	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h PART #chan"))
	assert.False(t, c.IsInChannel("#chan"))
}

func TestHandleKICKRemovesKickedUser(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")

	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h JOIN #chan"))
	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h JOIN #chan"))
	require.True(t, c.LookupChannel("#chan").UserIn("bob"))

	var kicker, kicked, reason string
	c.Config.OnKick = func(cl *Client, ch *Channel, by, who, why string) {
		kicker, kicked, reason = by, who, why
	}

	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h KICK #chan bob :rule 3"))
	assert.False(t, c.LookupChannel("#chan").UserIn("bob"))
	assert.Equal(t, "alice", kicker)
	assert.Equal(t, "bob", kicked)
	assert.Equal(t, "rule 3", reason)
}

func TestHandleQUITRemovesUserEverywhere(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")

	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h JOIN #a"))
	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h JOIN #b"))
	require.True(t, c.LookupChannel("#a").UserIn("bob"))
	require.True(t, c.LookupChannel("#b").UserIn("bob"))

	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h QUIT :leaving"))
	assert.False(t, c.LookupChannel("#a").UserIn("bob"))
	assert.False(t, c.LookupChannel("#b").UserIn("bob"))
	assert.Nil(t, c.LookupUser("bob"))
}

func TestHandleNICKRenamesUser(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")

	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h JOIN #chan"))
	require.NotNil(t, c.LookupUser("bob"))

	var oldN, newN string
	c.Config.OnNickChange = func(cl *Client, o, n string, err error) { oldN, newN = o, n }

	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h NICK bobby"))
	assert.Nil(t, c.LookupUser("bob"))
	require.NotNil(t, c.LookupUser("bobby"))
	assert.True(t, c.LookupChannel("#chan").UserIn("bobby"))
	assert.Equal(t, "bob", oldN)
	assert.Equal(t, "bobby", newN)
}

func TestHandleNICKRenamesSelf(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")

	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h NICK alice2"))
	assert.Equal(t, "alice2", c.GetNick())
}

func TestHandleMODEAppliesChannelSettingAndPrefix(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")
	c.state.isupport.Apply([]string{"CHANMODES=beI,k,l,imnpst", "PREFIX=(ov)@+"})

	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h JOIN #chan"))
	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h JOIN #chan"))

	var changedTarget string
	c.Config.OnModeChange = func(cl *Client, target string, changes []CMode, src *Source) {
		changedTarget = target
	}

	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h MODE #chan +ol bob 50"))
	assert.Equal(t, "#chan", changedTarget)

	bob := c.LookupUser("bob")
	require.NotNil(t, bob)
	assert.Contains(t, bob.ModesIn("#chan"), "o")

	ch := c.LookupChannel("#chan")
	assert.Equal(t, "50", ch.Modes.settings['l'])
}

func TestHandleMODERemovesMembershipPrefix(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")
	c.state.isupport.Apply([]string{"CHANMODES=beI,k,l,imnpst", "PREFIX=(ov)@+"})

	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h JOIN #chan"))
	c.Handlers.Dispatch(c, ParseMessage(":bob!u@h JOIN #chan"))
	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h MODE #chan +o bob"))
	require.Contains(t, c.LookupUser("bob").ModesIn("#chan"), "o")

	c.Handlers.Dispatch(c, ParseMessage(":alice!u@h MODE #chan -o bob"))
	assert.NotContains(t, c.LookupUser("bob").ModesIn("#chan"), "o")
}

func TestHandlePINGRepliesWithPong(t *testing.T) {
	c := newTestClient("alice")
	r := connectedTestClient(t, c)

	c.Handlers.Dispatch(c, ParseMessage("PING :token123"))
	assert.Equal(t, "PONG token123\r\n", readWireLine(t, r))
}

func TestHandleISUPPORTAppliesTokensAndFiresUnrecognized(t *testing.T) {
	c := newTestClient("alice")
	c.state.reset("alice", "alice", "")

	var gotKey, gotVal string
	c.Config.OnISupport = map[string]func(*Client, string){
		"SAFELIST": func(cl *Client, v string) { gotKey, gotVal = "SAFELIST", v },
	}

	c.Handlers.Dispatch(c, ParseMessage(":irc.example 005 alice CASEMAPPING=ascii SAFELIST :are supported by this server"))
	assert.Equal(t, CaseMappingASCII, c.ISupport().CaseMapping)
	assert.Equal(t, "SAFELIST", gotKey)
	assert.Equal(t, "", gotVal)
}
