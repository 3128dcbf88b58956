package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Command verbs understood by the rules engine.
const (
	CmdSetup  = "setup"
	CmdState  = "state"
	CmdAction = "action"
	CmdQuit   = "quit"
)

// Command is one request to the rules engine. Commands are immutable once
// constructed and live only for the duration of a single exchange.
type Command struct {
	Cmd  string       `json:"cmd"`
	Args *CommandArgs `json:"args,omitempty"`
}

// CommandArgs is the verb-specific argument bundle. Only the fields relevant
// to the command's verb are populated; the rest stay at their zero value and
// are omitted from the wire form.
type CommandArgs struct {
	// setup
	Seed     *int64         `json:"seed,omitempty"`
	Scenario string         `json:"scenario,omitempty"`
	Options  map[string]any `json:"options,omitempty"`

	// action
	Player string `json:"player,omitempty"`
	Action string `json:"action,omitempty"`
	Arg    any    `json:"arg,omitempty"`
}

// NewSetupCommand builds a setup command. A nil seed asks the engine for a
// random seed.
func NewSetupCommand(seed *int64, scenario string, options map[string]any) Command {
	return Command{
		Cmd: CmdSetup,
		Args: &CommandArgs{
			Seed:     seed,
			Scenario: scenario,
			Options:  options,
		},
	}
}

// NewStateCommand builds a state query command.
func NewStateCommand() Command {
	return Command{Cmd: CmdState}
}

// NewActionCommand builds an action command. arg may be nil, a string, or an
// integer, matching what the engine advertised for the action.
func NewActionCommand(player, action string, arg any) Command {
	return Command{
		Cmd: CmdAction,
		Args: &CommandArgs{
			Player: player,
			Action: action,
			Arg:    arg,
		},
	}
}

// NewQuitCommand builds a quit command.
func NewQuitCommand() Command {
	return Command{Cmd: CmdQuit}
}

// EncodeCommand serializes a command to one self-contained JSON line
// terminated by a single newline. The codec performs no semantic validation
// beyond well-formedness.
func EncodeCommand(cmd Command) (string, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return "", fmt.Errorf("encode command %q: %w", cmd.Cmd, err)
	}
	line := string(data)
	if strings.ContainsRune(line, '\n') {
		return "", fmt.Errorf("encode command %q: embedded newline", cmd.Cmd)
	}
	return line + "\n", nil
}
