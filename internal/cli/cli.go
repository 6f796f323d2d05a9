// Package cli parses drishti command lines.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe         Command = "serve"
	CommandListen        Command = "listen"
	CommandStop          Command = "stop"
	CommandScan          Command = "scan"
	CommandRead          Command = "read"
	CommandNavigate      Command = "navigate"
	CommandEmergency     Command = "emergency"
	CommandStopEmergency Command = "stop-emergency"
	CommandSay           Command = "say"
	CommandStatus        Command = "status"
	CommandDoctor        Command = "doctor"
	CommandVersion       Command = "version"
	CommandHelp          Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandServe:         {},
	CommandListen:        {},
	CommandStop:          {},
	CommandScan:          {},
	CommandRead:          {},
	CommandNavigate:      {},
	CommandEmergency:     {},
	CommandStopEmergency: {},
	CommandSay:           {},
	CommandStatus:        {},
	CommandDoctor:        {},
	CommandVersion:       {},
	CommandHelp:          {},
}

// Forwardable reports whether a running daemon should execute the command.
func (c Command) Forwardable() bool {
	switch c {
	case CommandListen, CommandStop, CommandScan, CommandRead, CommandNavigate,
		CommandEmergency, CommandStopEmergency, CommandSay:
		return true
	default:
		return false
	}
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Verbose    bool
	ShowHelp   bool
	// Text is the typed utterance for say.
	Text string
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			rest := args[i+1:]
			if cmd == CommandSay {
				parsed.Text = strings.TrimSpace(strings.Join(rest, " "))
				if parsed.Text == "" {
					return Parsed{}, errors.New("say requires text")
				}
				return parsed, nil
			}
			if len(rest) > 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--verbose] <command> [text...]

Commands:
  serve            Run the assistant daemon
  listen           Listen for one voice command
  stop             Stop voice listening
  scan             Describe the surroundings
  read             Read text held in front of the camera
  navigate         Start navigation mode
  emergency        Alert trusted contacts and start emergency monitoring
  stop-emergency   Stop emergency monitoring
  say TEXT...      Run a typed command as if it were spoken
  status           Print current state
  doctor           Run configuration and environment checks
  version          Print version information
  help             Show this help

Flags:
  --config PATH    Config file path (default: $XDG_CONFIG_HOME/drishti/config.jsonc)
  -v, --verbose    Also log to stderr at debug level
  -h, --help       Show help
  --version        Show version
`, binaryName)
}
