package ircx

import "strings"

// Source identifies the origin of a Message: either a server (Name only, a
// hostname) or a user (Name/Ident/Host forming a full hostmask).
type Source struct {
	Name  string
	Ident string
	Host  string
}

// ParseSource parses the portion of a wire line between ':' and the first
// unescaped space into a Source.
func ParseSource(raw string) *Source {
	if raw == "" {
		return nil
	}

	bang := strings.IndexByte(raw, '!')
	at := strings.IndexByte(raw, '@')

	switch {
	case bang >= 0 && at > bang:
		return &Source{Name: raw[:bang], Ident: raw[bang+1 : at], Host: raw[at+1:]}
	case bang >= 0:
		return &Source{Name: raw[:bang], Ident: raw[bang+1:]}
	case at >= 0:
		return &Source{Name: raw[:at], Host: raw[at+1:]}
	default:
		return &Source{Name: raw}
	}
}

// ID returns the case-folded nick/server name, suitable as a map key for
// user/channel membership tracking.
func (s *Source) ID() string {
	if s == nil {
		return ""
	}
	return ToRFC1459(s.Name)
}

// IsHostmask reports whether the source carries both ident and host,
// i.e. represents a user rather than a bare server name.
func (s *Source) IsHostmask() bool {
	return s != nil && s.Ident != "" && s.Host != ""
}

// IsServer reports whether the source looks like a bare server name (no '!'
// or '@' components).
func (s *Source) IsServer() bool {
	return s != nil && s.Ident == "" && s.Host == ""
}

// String renders the source back to wire form (nick[!ident][@host]).
func (s *Source) String() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Ident != "" {
		b.WriteByte('!')
		b.WriteString(s.Ident)
	}
	if s.Host != "" {
		b.WriteByte('@')
		b.WriteString(s.Host)
	}
	return b.String()
}

// Mask returns the full "nick!ident@host" hostmask, using "*" for any
// missing component.
func (s *Source) Mask() string {
	if s == nil {
		return ""
	}
	ident := s.Ident
	if ident == "" {
		ident = "*"
	}
	host := s.Host
	if host == "" {
		host = "*"
	}
	return s.Name + "!" + ident + "@" + host
}
