package ircx

import "strings"

// color maps one or more {alias} tokens to an mIRC control-code sequence.
type color struct {
	aliases []string
	val     string
}

var colors = []*color{
	{aliases: []string{"white"}, val: "\x0300"},
	{aliases: []string{"black"}, val: "\x0301"},
	{aliases: []string{"blue", "navy"}, val: "\x0302"},
	{aliases: []string{"green"}, val: "\x0303"},
	{aliases: []string{"red"}, val: "\x0304"},
	{aliases: []string{"brown", "maroon"}, val: "\x0305"},
	{aliases: []string{"purple"}, val: "\x0306"},
	{aliases: []string{"orange", "olive", "gold"}, val: "\x0307"},
	{aliases: []string{"yellow"}, val: "\x0308"},
	{aliases: []string{"lightgreen", "lime"}, val: "\x0309"},
	{aliases: []string{"teal"}, val: "\x0310"},
	{aliases: []string{"cyan"}, val: "\x0311"},
	{aliases: []string{"lightblue", "royal"}, val: "\x0312"},
	{aliases: []string{"lightpurple", "pink", "fuchsia"}, val: "\x0313"},
	{aliases: []string{"grey", "gray"}, val: "\x0314"},
	{aliases: []string{"lightgrey", "silver"}, val: "\x0315"},
	{aliases: []string{"bold", "b"}, val: "\x02"},
	{aliases: []string{"italic", "i"}, val: "\x1d"},
	{aliases: []string{"reset", "r"}, val: "\x0f"},
	{aliases: []string{"clear", "c"}, val: "\x03"},
	{aliases: []string{"reverse"}, val: "\x16"},
	{aliases: []string{"underline", "ul"}, val: "\x1f"},
}

// Format replaces "{alias}" tokens (e.g. "{red}", "{b}") with the mIRC
// control codes they name.
func Format(text string) string {
	for _, c := range colors {
		for _, a := range c.aliases {
			text = strings.ReplaceAll(text, "{"+a+"}", c.val)
		}
		if !strings.ContainsRune(text, '{') {
			return text
		}
	}
	return text
}

// StripFormat removes every "{alias}" token without substituting a control
// code, leaving plain text.
func StripFormat(text string) string {
	for _, c := range colors {
		for _, a := range c.aliases {
			text = strings.ReplaceAll(text, "{"+a+"}", "")
		}
		if !strings.ContainsRune(text, '{') {
			return text
		}
	}
	return text
}

// StripColors removes mIRC control codes already present in text (as
// opposed to the {alias} tokens Format/StripFormat operate on).
func StripColors(text string) string {
	for _, c := range colors {
		text = strings.ReplaceAll(text, c.val, "")
	}
	return text
}

// applyFormat runs Format over text when Config.GlobalFormat is enabled,
// otherwise returns text unchanged.
func (cmd *Commands) applyFormat(text string) string {
	if cmd.c.Config.GlobalFormat {
		return Format(text)
	}
	return text
}
