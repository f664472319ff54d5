package ircx

import "strings"

// CaseMapping identifies one of the three casemapping schemes a server may
// advertise via ISUPPORT CASEMAPPING=.
type CaseMapping int

const (
	// CaseMappingRFC1459 folds '[', ']', '\', '~' onto '{', '}', '|', '^' in
	// addition to ASCII case folding. This is the IRC default absent an
	// ISUPPORT token, and what RFC 1459 itself specifies.
	CaseMappingRFC1459 CaseMapping = iota
	// CaseMappingRFC1459Strict is as CaseMappingRFC1459 but without folding
	// '~' onto '^' (a narrower variant some networks advertise).
	CaseMappingRFC1459Strict
	// CaseMappingASCII folds only 'A'-'Z' onto 'a'-'z'.
	CaseMappingASCII
)

// ParseCaseMapping maps an ISUPPORT CASEMAPPING token to a CaseMapping,
// defaulting to CaseMappingRFC1459 for unrecognized values.
func ParseCaseMapping(token string) CaseMapping {
	switch strings.ToLower(token) {
	case "ascii":
		return CaseMappingASCII
	case "rfc1459-strict":
		return CaseMappingRFC1459Strict
	default:
		return CaseMappingRFC1459
	}
}

// ToRFC1459 case-folds a nick or channel name using the classic RFC 1459
// mapping. It is used as the default and as the map-key folder wherever a
// CaseMapping has not yet been negotiated from ISUPPORT.
func ToRFC1459(s string) string {
	return foldCase(s, CaseMappingRFC1459)
}

func foldCase(s string, cm CaseMapping) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'A' && c <= 'Z':
			b[i] = c + ('a' - 'A')
		case cm == CaseMappingASCII:
			// no further folding
		case c == '[':
			b[i] = '{'
		case c == ']':
			b[i] = '}'
		case c == '\\':
			b[i] = '|'
		case c == '~' && cm == CaseMappingRFC1459:
			b[i] = '^'
		}
	}
	return string(b)
}

// Fold case-folds s per the receiver's scheme.
func (cm CaseMapping) Fold(s string) string {
	return foldCase(s, cm)
}

// Equal reports whether a and b are equal under the receiver's case
// mapping — the comparison IRC uses for nick/channel identity.
func (cm CaseMapping) Equal(a, b string) bool {
	return cm.Fold(a) == cm.Fold(b)
}

const defaultChanTypes = "#&+!"

// IsValidChannel reports whether name begins with one of the default
// channel-type prefixes and contains no spaces, commas, CR, LF or BEL
// (0x07), per RFC 1459 §1.3. Callers with a negotiated CHANTYPES value
// should prefer (*ISupport).IsValidChannel.
func IsValidChannel(name string) bool {
	if name == "" {
		return false
	}
	if !strings.ContainsRune(defaultChanTypes, rune(name[0])) {
		return false
	}
	return validMiddleParam(name)
}

// IsValidNick reports whether name is a syntactically valid IRC nickname.
func IsValidNick(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	c := name[0]
	if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || strings.ContainsRune("[]\\`_^{|}", rune(c))) {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
			strings.ContainsRune("[]\\`_^{|}-", rune(c)) {
			continue
		}
		return false
	}
	return true
}

func validMiddleParam(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', ',', '\r', '\n', 0x07:
			return false
		}
	}
	return true
}
