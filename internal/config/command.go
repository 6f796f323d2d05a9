package config

import (
	"strings"

	"github.com/google/shlex"
)

// DevicePlaceholder in capture.command is replaced with capture.device.
const DevicePlaceholder = "{device}"

// ParseCommand splits raw with shell quoting rules. A blank or fully
// commented-out value yields a disabled command.
func ParseCommand(raw string) (CommandConfig, error) {
	raw = strings.TrimSpace(raw)
	argv, err := shlex.Split(raw)
	if err != nil {
		return CommandConfig{}, err
	}
	if len(argv) == 0 {
		argv = nil
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func mustCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

// Enabled reports whether there is a program to run.
func (c CommandConfig) Enabled() bool {
	return len(c.Argv) > 0
}

// Program is the executable name, or "" when disabled.
func (c CommandConfig) Program() string {
	if !c.Enabled() {
		return ""
	}
	return c.Argv[0]
}

// Uses reports whether any argument carries placeholder.
func (c CommandConfig) Uses(placeholder string) bool {
	for _, arg := range c.Argv {
		if strings.Contains(arg, placeholder) {
			return true
		}
	}
	return false
}
