// Package cmdhandler is a thin, opt-in "!command arg1 arg2" router built on
// top of ircx's dispatcher, for bots that want prefix commands without
// building their own PRIVMSG parsing.
package cmdhandler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tjarrett/ircx"
)

// Input carries the parsed command invocation handed to a Command's Fn.
type Input struct {
	Origin *ircx.Message
	Args   []string

	User    *ircx.User
	Channel *ircx.Channel
}

// Command describes one registered prefix command.
type Command struct {
	Help    string
	MinArgs int
	Fn      func(c *ircx.Client, in *Input)
}

// CmdHandler matches "<prefix><name> [args...]" in channel/private PRIVMSG
// text and dispatches to registered Commands, plus a built-in "help".
type CmdHandler struct {
	prefix string
	re     *regexp.Regexp

	mu   sync.Mutex
	cmds map[string]*Command
}

var cmdMatch = `^%s([a-z0-9-_]{1,20})(?: (.*))?$`
var validName = regexp.MustCompile(`^[a-zA-Z0-9-_]{1,20}$`)

// New builds a CmdHandler matching commands prefixed with prefix (e.g. "!").
func New(prefix string) (*CmdHandler, error) {
	re, err := regexp.Compile(fmt.Sprintf(cmdMatch, regexp.QuoteMeta(prefix)))
	if err != nil {
		return nil, err
	}
	return &CmdHandler{prefix: prefix, re: re, cmds: make(map[string]*Command)}, nil
}

// Add registers cmd under name. Names must match [a-zA-Z0-9-_]{1,20} and may
// only be registered once.
func (ch *CmdHandler) Add(name string, cmd *Command) error {
	if cmd == nil {
		return errors.New("cmdhandler: nil command")
	}
	name = strings.ToLower(name)
	if !validName.MatchString(name) {
		return fmt.Errorf("cmdhandler: invalid command name: %q", name)
	}
	if cmd.MinArgs < 0 {
		cmd.MinArgs = 0
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if _, ok := ch.cmds[name]; ok {
		return fmt.Errorf("cmdhandler: command already registered: %s", name)
	}
	ch.cmds[name] = cmd
	return nil
}

// Register wires ch onto c's PRIVMSG dispatch as an external handler.
func (ch *CmdHandler) Register(c *ircx.Client) {
	c.Handlers.AddHandler(ircx.PRIVMSG, ch)
}

// replyTarget is the channel (if the invocation arrived in one) or the
// sender's nick (for a private message) a reply should be sent to.
func replyTarget(m *ircx.Message) string {
	if m.IsFromChannel() {
		return m.Params[0]
	}
	if m.Source != nil {
		return m.Source.Name
	}
	return ""
}

// Execute satisfies ircx.Handler.
func (ch *CmdHandler) Execute(c *ircx.Client, m *ircx.Message) {
	if m.Source == nil || m.Command != ircx.PRIVMSG || len(m.Params) < 2 {
		return
	}

	parsed := ch.re.FindStringSubmatch(m.Last())
	if len(parsed) != 3 {
		return
	}

	invoked := strings.ToLower(parsed[1])
	var args []string
	if parsed[2] != "" {
		args = strings.Fields(parsed[2])
	}
	target := replyTarget(m)

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if invoked == "help" {
		ch.handleHelp(c, target, args)
		return
	}

	cmd, ok := ch.cmds[invoked]
	if !ok {
		return
	}
	if len(args) < cmd.MinArgs {
		c.Cmd.Messagef(target, "not enough arguments for %q, try '%shelp %s'", invoked, ch.prefix, invoked)
		return
	}

	in := &Input{Origin: m, Args: args, User: c.LookupUser(m.Source.Name)}
	if m.IsFromChannel() {
		in.Channel = c.LookupChannel(m.Params[0])
	}

	go cmd.Fn(c, in)
}

func (ch *CmdHandler) handleHelp(c *ircx.Client, target string, args []string) {
	if len(args) == 0 {
		c.Cmd.Messagef(target, "type '%shelp <command>' to get more info about a specific command", ch.prefix)
		return
	}
	name := strings.ToLower(args[0])
	cmd, ok := ch.cmds[name]
	if !ok {
		c.Cmd.Messagef(target, "unknown command %q", name)
		return
	}
	if cmd.Help == "" {
		c.Cmd.Messagef(target, "there is no help documentation for %q", name)
		return
	}
	c.Cmd.Messagef(target, "%s%s :: %s", ch.prefix, name, cmd.Help)
}
