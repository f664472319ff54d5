package ircx

import "strings"

// Tags holds IRCv3 message tags as a simple map; escaping/unescaping of the
// wire representation is handled by ParseTags/String.
type Tags map[string]string

var (
	tagDecodeReplacer = strings.NewReplacer(
		`\:`, ";",
		`\s`, " ",
		`\\`, `\`,
		`\r`, "\r",
		`\n`, "\n",
	)
	tagEncodeReplacer = strings.NewReplacer(
		";", `\:`,
		" ", `\s`,
		`\`, `\\`,
		"\r", `\r`,
		"\n", `\n`,
	)
)

// ParseTags parses the portion of a wire line between '@' and the first
// unescaped space into a Tags map.
func ParseTags(raw string) Tags {
	t := Tags{}
	for _, pair := range strings.Split(raw, ";") {
		if pair == "" {
			continue
		}
		if eq := strings.IndexByte(pair, '='); eq >= 0 {
			t[pair[:eq]] = tagDecodeReplacer.Replace(pair[eq+1:])
		} else {
			t[pair] = ""
		}
	}
	return t
}

// Get returns the value of a tag and whether it was present at all
// (distinguishing a present-but-empty tag from an absent one).
func (t Tags) Get(name string) (string, bool) {
	v, ok := t[name]
	return v, ok
}

// Set assigns a tag value. It does not allocate: calling it on a nil Tags
// (as on a zero-value Message) panics.
func (t Tags) Set(name, value string) {
	t[name] = value
}

// Remove deletes a tag.
func (t Tags) Remove(name string) {
	delete(t, name)
}

// Len returns the number of tags.
func (t Tags) Len() int { return len(t) }

// String serializes the tags to their wire form, without the leading '@'.
func (t Tags) String() string {
	if len(t) == 0 {
		return ""
	}

	parts := make([]string, 0, len(t))
	for k, v := range t {
		if v == "" {
			parts = append(parts, k)
			continue
		}
		parts = append(parts, k+"="+tagEncodeReplacer.Replace(v))
	}
	return strings.Join(parts, ";")
}

// validTagName reports whether name is a syntactically valid IRCv3 tag key
// (optionally vendor-prefixed with "vendor/"), per the client-tag grammar.
func validTagName(name string) bool {
	if name == "" {
		return false
	}
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimPrefix(name, "+")
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}
