package tui

import "strings"

// CommandKind identifies what a ':' command does.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdQuit
	CmdLogout
	CmdNew
	CmdOpen
	CmdHelp
	CmdInfo
)

var commandAliases = map[string]CommandKind{
	"q":      CmdQuit,
	"quit":   CmdQuit,
	"logout": CmdLogout,
	"n":      CmdNew,
	"new":    CmdNew,
	"o":      CmdOpen,
	"open":   CmdOpen,
	"chat":   CmdOpen,
	"h":      CmdHelp,
	"help":   CmdHelp,
	"info":   CmdInfo,
}

// Command is a parsed command line.
type Command struct {
	Kind CommandKind
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	cmd := Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}
	cmd.Kind = commandAliases[cmd.Name]
	return cmd
}
