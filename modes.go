package ircx

import "strings"

// CMode is a single parsed channel mode change.
type CMode struct {
	Add     bool
	Name    byte
	Setting bool
	Arg     string
}

// CModes tracks the CHANMODES parameter classes (A, B, C, D — list, always-
// arg, set-arg-only, no-arg) for a server, plus the persistent "setting"
// mode values (classes B, C and D) currently applied to one channel.
type CModes struct {
	// listArgs (A), alwaysArgs (B), setArgs (C), noArgs (D) hold the mode
	// letters belonging to each CHANMODES class, per ISUPPORT.
	listArgs, alwaysArgs, setArgs, noArgs string
	// prefixes holds the membership-prefix mode letters (from PREFIX),
	// which behave like class B (always take an argument) but are never
	// persisted as channel settings.
	prefixes string

	settings map[byte]string
}

// newCModes builds a CModes from raw ISUPPORT CHANMODES and PREFIX values.
func newCModes(chanModes, userPrefixes string) CModes {
	parts := strings.SplitN(chanModes, ",", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	prefixes, _ := parsePrefixes(userPrefixes)
	return CModes{
		listArgs:   parts[0],
		alwaysArgs: parts[1],
		setArgs:    parts[2],
		noArgs:     parts[3],
		prefixes:   prefixes,
		settings:   map[byte]string{},
	}
}

// parsePrefixes splits a PREFIX=(modes)symbols token into its mode-letter
// and symbol halves.
func parsePrefixes(raw string) (modes, symbols string) {
	if len(raw) < 2 || raw[0] != '(' {
		return "ov", "@+"
	}
	close := strings.IndexByte(raw, ')')
	if close < 0 {
		return "ov", "@+"
	}
	return raw[1:close], raw[close+1:]
}

// hasArg reports whether a mode letter takes an argument, and if so,
// whether it represents a persistent channel "setting" (as opposed to a
// list entry like a ban, or a membership prefix).
func (cm *CModes) hasArg(set bool, mode byte) (hasArg, isSetting bool) {
	if strings.IndexByte(cm.listArgs, mode) >= 0 {
		return true, false
	}
	if strings.IndexByte(cm.alwaysArgs, mode) >= 0 {
		return true, true
	}
	if strings.IndexByte(cm.setArgs, mode) >= 0 {
		return set, set
	}
	if strings.IndexByte(cm.prefixes, mode) >= 0 {
		return true, false
	}
	return false, true
}

// Parse walks a +/- mode-flag string and its trailing arguments into a
// slice of CMode.
func (cm *CModes) Parse(flags string, args []string) []CMode {
	var out []CMode
	add := true
	ai := 0

	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case '+':
			add = true
			continue
		case '-':
			add = false
			continue
		}

		mode := flags[i]
		needsArg, setting := cm.hasArg(add, mode)

		var arg string
		if needsArg && ai < len(args) {
			arg = args[ai]
			ai++
		}
		out = append(out, CMode{Add: add, Name: mode, Setting: setting, Arg: arg})
	}
	return out
}

// Apply merges parsed mode changes into the persistent settings table
// (classes B, C and D — list modes like bans and membership prefixes are
// not persisted here). A '-' change removes the setting.
func (cm *CModes) Apply(modes []CMode) {
	for _, m := range modes {
		if (!m.Setting && m.Add) || strings.IndexByte(cm.prefixes, m.Name) >= 0 {
			continue
		}
		if strings.IndexByte(cm.listArgs, m.Name) >= 0 {
			continue
		}
		if m.Add {
			cm.settings[m.Name] = m.Arg
		} else {
			delete(cm.settings, m.Name)
		}
	}
}

// String renders the currently applied persistent settings back to a
// +flags arg1 arg2 form.
func (cm *CModes) String() string {
	if len(cm.settings) == 0 {
		return ""
	}
	var flags strings.Builder
	var args []string
	flags.WriteByte('+')
	for mode, arg := range cm.settings {
		flags.WriteByte(mode)
		if arg != "" {
			args = append(args, arg)
		}
	}
	if len(args) == 0 {
		return flags.String()
	}
	return flags.String() + " " + strings.Join(args, " ")
}

// isValidChannelModeDef reports whether a CHANMODES value looks well-formed
// (four comma-separated, possibly-empty mode-letter groups).
func isValidChannelModeDef(raw string) bool {
	return len(strings.Split(raw, ",")) == 4
}

// isValidUserPrefixDef reports whether a PREFIX value is syntactically
// well-formed: "(modes)symbols" with matching lengths.
func isValidUserPrefixDef(raw string) bool {
	if len(raw) < 2 || raw[0] != '(' {
		return false
	}
	close := strings.IndexByte(raw, ')')
	if close < 0 {
		return false
	}
	modes, symbols := raw[1:close], raw[close+1:]
	return len(modes) == len(symbols)
}

// parseUserPrefix splits a NAMES/353-style "@+nick" token into its prefix
// symbols and bare nick, using the server's negotiated PREFIX symbols.
func parseUserPrefix(symbols, token string) (prefixSymbols, nick string, ok bool) {
	if token == "" {
		return "", "", false
	}
	i := 0
	for i < len(token) && strings.IndexByte(symbols, token[i]) >= 0 {
		i++
	}
	if i >= len(token) {
		return "", "", false
	}
	return token[:i], token[i:], true
}

// symbolsToModes converts a run of PREFIX symbols (e.g. "@+") to the
// corresponding mode letters (e.g. "ov"), using the server's negotiated
// PREFIX mapping.
func symbolsToModes(modeLetters, symbolLetters, symbols string) string {
	var out strings.Builder
	for i := 0; i < len(symbols); i++ {
		if idx := strings.IndexByte(symbolLetters, symbols[i]); idx >= 0 && idx < len(modeLetters) {
			out.WriteByte(modeLetters[idx])
		}
	}
	return out.String()
}
