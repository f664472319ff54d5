package ircx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCModesSplitsClasses(t *testing.T) {
	cm := newCModes("beI,k,l,imnpst", "(ov)@+")
	hasArg, isSetting := cm.hasArg(true, 'b')
	assert.True(t, hasArg)
	assert.False(t, isSetting)

	hasArg, isSetting = cm.hasArg(true, 'k')
	assert.True(t, hasArg)
	assert.True(t, isSetting)

	hasArg, isSetting = cm.hasArg(true, 'l')
	assert.True(t, hasArg)
	assert.True(t, isSetting)

	hasArg, isSetting = cm.hasArg(false, 'l')
	assert.False(t, hasArg)
	assert.False(t, isSetting)

	hasArg, _ = cm.hasArg(true, 'm')
	assert.False(t, hasArg)
}

func TestCModesParseAndApply(t *testing.T) {
	cm := newCModes("beI,k,l,imnpst", "(ov)@+")

	changes := cm.Parse("+ko-l", []string{"secret", "50"})
	assert.Len(t, changes, 3)
	assert.Equal(t, CMode{Add: true, Name: 'k', Setting: true, Arg: "secret"}, changes[0])
	assert.Equal(t, CMode{Add: true, Name: 'o', Setting: false, Arg: "50"}, changes[1])
	assert.Equal(t, CMode{Add: false, Name: 'l', Setting: false}, changes[2])

	cm.Apply(changes)
	assert.Equal(t, "secret", cm.settings['k'])
	_, hasLimit := cm.settings['l']
	assert.False(t, hasLimit)
	_, hasOp := cm.settings['o']
	assert.False(t, hasOp, "membership prefix modes are never persisted as channel settings")
}

func TestCModesParseBanIsListNotSetting(t *testing.T) {
	cm := newCModes("beI,k,l,imnpst", "(ov)@+")
	changes := cm.Parse("+b", []string{"*!*@example.net"})
	assert.Len(t, changes, 1)
	assert.False(t, changes[0].Setting)
	assert.Equal(t, "*!*@example.net", changes[0].Arg)
}

func TestCModesApplyRemovesOnMinus(t *testing.T) {
	cm := newCModes("beI,k,l,imnpst", "(ov)@+")
	cm.Apply(cm.Parse("+l", []string{"50"}))
	assert.Equal(t, "50", cm.settings['l'])

	cm.Apply(cm.Parse("-l", nil))
	_, ok := cm.settings['l']
	assert.False(t, ok)
}

func TestParsePrefixes(t *testing.T) {
	modes, symbols := parsePrefixes("(ov)@+")
	assert.Equal(t, "ov", modes)
	assert.Equal(t, "@+", symbols)

	modes, symbols = parsePrefixes("garbage")
	assert.Equal(t, "ov", modes)
	assert.Equal(t, "@+", symbols)
}

func TestIsValidChannelModeDef(t *testing.T) {
	assert.True(t, isValidChannelModeDef("beI,k,l,imnpst"))
	assert.True(t, isValidChannelModeDef(",,,"))
	assert.False(t, isValidChannelModeDef("not-valid"))
}

func TestIsValidUserPrefixDef(t *testing.T) {
	assert.True(t, isValidUserPrefixDef("(ov)@+"))
	assert.False(t, isValidUserPrefixDef("garbage"))
	assert.False(t, isValidUserPrefixDef("(ov)@"))
}

func TestParseUserPrefix(t *testing.T) {
	symbols, nick, ok := parseUserPrefix("@+", "@alice")
	assert.True(t, ok)
	assert.Equal(t, "@", symbols)
	assert.Equal(t, "alice", nick)

	_, _, ok = parseUserPrefix("@+", "")
	assert.False(t, ok)

	symbols, nick, ok = parseUserPrefix("@+", "bob")
	assert.True(t, ok)
	assert.Equal(t, "", symbols)
	assert.Equal(t, "bob", nick)
}

func TestSymbolsToModes(t *testing.T) {
	assert.Equal(t, "ov", symbolsToModes("ov", "@+", "@+"))
	assert.Equal(t, "o", symbolsToModes("ov", "@+", "@"))
	assert.Equal(t, "", symbolsToModes("ov", "@+", ""))
}
