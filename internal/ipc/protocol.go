// Package ipc carries drishti commands between CLI invocations and the daemon
// as newline-delimited JSON over a unix socket.
package ipc

import (
	"errors"
	"fmt"
	"strings"
)

// Commands understood by the daemon.
const (
	CommandStatus        = "status"
	CommandListen        = "listen"
	CommandStop          = "stop"
	CommandScan          = "scan"
	CommandRead          = "read"
	CommandNavigate      = "navigate"
	CommandEmergency     = "emergency"
	CommandStopEmergency = "stop-emergency"
	CommandSay           = "say"
)

// MaxRequestBytes bounds one encoded request line.
const MaxRequestBytes = 4096

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingText    = errors.New("say requires text")
	ErrUnexpectedText = errors.New("only say carries text")
)

var known = map[string]struct{}{
	CommandStatus:        {},
	CommandListen:        {},
	CommandStop:          {},
	CommandScan:          {},
	CommandRead:          {},
	CommandNavigate:      {},
	CommandEmergency:     {},
	CommandStopEmergency: {},
	CommandSay:           {},
}

// Request is one client command. Text carries the typed utterance for say.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Normalize lower-cases the command and trims the utterance.
func (r Request) Normalize() Request {
	return Request{
		Command: strings.ToLower(strings.TrimSpace(r.Command)),
		Text:    strings.TrimSpace(r.Text),
	}
}

// Validate checks a normalized request.
func (r Request) Validate() error {
	if _, ok := known[r.Command]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownCommand, r.Command)
	}
	switch {
	case r.Command == CommandSay && r.Text == "":
		return ErrMissingText
	case r.Command != CommandSay && r.Text != "":
		return fmt.Errorf("%w, not %s", ErrUnexpectedText, r.Command)
	}
	return nil
}

// Response reports whether the daemon accepted the command and its state.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Reject is the response for a request the daemon refused.
func Reject(err error) Response {
	return Response{OK: false, Error: err.Error()}
}
