package ircx

import (
	"strconv"
	"strings"
	"sync"
)

// ISupport holds the server's advertised ISUPPORT (numeric 005) parameters,
// parsed into typed fields where the client consumes them directly, and a
// raw table for everything else.
type ISupport struct {
	mu sync.RWMutex

	raw map[string]string

	ChanTypes   string
	ChanModes   string
	Prefix      string
	CaseMapping CaseMapping
	Network     string
	NickLen     int
	ChannelLen  int
	StatusMsg   string
	MonitorMax  int
	WHOX        bool
	ExtBan      string
}

// recognizedISupportTokens lists the ISUPPORT keys spec §4.J assigns a
// defined effect to; anything else fires Config.OnISupport instead.
var recognizedISupportTokens = map[string]bool{
	"CASEMAPPING": true, "CHANTYPES": true, "PREFIX": true, "CHANMODES": true,
	"STATUSMSG": true, "NICKLEN": true, "MAXNICKLEN": true, "CHANNELLEN": true,
	"NETWORK": true, "MONITOR": true, "WHOX": true, "EXTBAN": true,
}

func newISupport() *ISupport {
	return &ISupport{
		raw:         map[string]string{},
		ChanTypes:   defaultChanTypes,
		ChanModes:   "b,k,l,imnpstaqr",
		Prefix:      "(ov)@+",
		CaseMapping: CaseMappingRFC1459,
		NickLen:     maxNickLen,
	}
}

// Apply parses the parameter tokens of an RPL_ISUPPORT line (everything
// between the target nick and the trailing ":are supported by this server"
// text) and merges them into the table.
func (is *ISupport) Apply(tokens []string) {
	is.mu.Lock()
	defer is.mu.Unlock()

	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if tok[0] == '-' {
			delete(is.raw, strings.ToUpper(tok[1:]))
			continue
		}

		key, val := tok, ""
		if eq := strings.IndexByte(tok, '='); eq >= 0 {
			key, val = tok[:eq], tok[eq+1:]
		}
		key = strings.ToUpper(key)
		is.raw[key] = val

		switch key {
		case "CHANTYPES":
			if val != "" {
				is.ChanTypes = val
			}
		case "CHANMODES":
			if isValidChannelModeDef(val) {
				is.ChanModes = val
			}
		case "PREFIX":
			if isValidUserPrefixDef(val) {
				is.Prefix = val
			}
		case "CASEMAPPING":
			is.CaseMapping = ParseCaseMapping(val)
		case "NETWORK":
			is.Network = val
		case "NICKLEN", "MAXNICKLEN":
			if n, err := strconv.Atoi(val); err == nil {
				is.NickLen = n
			}
		case "CHANNELLEN":
			if n, err := strconv.Atoi(val); err == nil {
				is.ChannelLen = n
			}
		case "STATUSMSG":
			is.StatusMsg = val
		case "MONITOR":
			if n, err := strconv.Atoi(val); err == nil {
				is.MonitorMax = n
			}
		case "WHOX":
			is.WHOX = true
		case "EXTBAN":
			is.ExtBan = val
		}
	}
}

// Unrecognized reports whether key is outside the set of ISUPPORT tokens
// this package assigns a defined effect to, i.e. whether it should surface
// via Config.OnISupport per spec §4.J.
func Unrecognized(key string) bool {
	return !recognizedISupportTokens[strings.ToUpper(key)]
}

// Get returns a raw ISUPPORT token value and whether it was advertised.
func (is *ISupport) Get(key string) (string, bool) {
	is.mu.RLock()
	defer is.mu.RUnlock()
	v, ok := is.raw[strings.ToUpper(key)]
	return v, ok
}

// GetInt is a convenience wrapper over Get for integer-valued tokens,
// returning def if the token is absent or unparseable.
func (is *ISupport) GetInt(key string, def int) int {
	v, ok := is.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// All returns a snapshot copy of every advertised token.
func (is *ISupport) All() map[string]string {
	is.mu.RLock()
	defer is.mu.RUnlock()
	out := make(map[string]string, len(is.raw))
	for k, v := range is.raw {
		out[k] = v
	}
	return out
}

// IsValidChannel reports whether name begins with one of the negotiated
// CHANTYPES prefixes.
func (is *ISupport) IsValidChannel(name string) bool {
	if name == "" {
		return false
	}
	is.mu.RLock()
	types := is.ChanTypes
	is.mu.RUnlock()
	return strings.ContainsRune(types, rune(name[0])) && validMiddleParam(name)
}
