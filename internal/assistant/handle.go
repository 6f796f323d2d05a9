package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/drishti-ai/drishti/internal/fsm"
	"github.com/drishti-ai/drishti/internal/intent"
	"github.com/drishti-ai/drishti/internal/ipc"
)

// Handle serves IPC commands for the daemon. Foreground work is acknowledged
// immediately and continues in the background under ctx.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.respond(true, c.statusMessage(), nil)
	case ipc.CommandListen:
		return c.startAsync(ctx, fsm.EventListen, "listening", func(ctx context.Context) error {
			return c.listen(ctx)
		})
	case ipc.CommandStop:
		if !c.StopListening() {
			return c.respond(false, "", errors.New("not listening"))
		}
		return c.respond(true, "listening stopped", nil)
	case ipc.CommandScan:
		return c.startAsync(ctx, fsm.EventRun, "scan started", func(ctx context.Context) error {
			return c.run(ctx, intent.ScanEnvironment)
		})
	case ipc.CommandRead:
		return c.startAsync(ctx, fsm.EventRun, "read started", func(ctx context.Context) error {
			return c.run(ctx, intent.ReadText)
		})
	case ipc.CommandNavigate:
		return c.background(ctx, "navigation started", intent.Intent{Kind: intent.Navigate, Raw: req.Command})
	case ipc.CommandEmergency:
		return c.background(ctx, "emergency activated", intent.Intent{Kind: intent.Emergency, Raw: req.Command})
	case ipc.CommandStopEmergency:
		if !c.StopEmergency(ctx) {
			return c.respond(true, "emergency monitoring not active", nil)
		}
		return c.respond(true, "emergency monitoring stopped", nil)
	case ipc.CommandSay:
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return c.respond(false, "", errors.New("say requires text"))
		}
		in := c.deps.Interpreter.Interpret(text)
		if in.Kind == intent.ScanEnvironment || in.Kind == intent.ReadText {
			return c.startAsync(ctx, fsm.EventRun, fmt.Sprintf("%s started", in.Kind), func(ctx context.Context) error {
				return c.run(ctx, in.Kind)
			})
		}
		return c.background(ctx, fmt.Sprintf("%s accepted", in.Kind), in)
	default:
		return c.respond(false, "", fmt.Errorf("unknown command: %s", req.Command))
	}
}

// startAsync claims the foreground before acknowledging so a concurrent
// request observes the busy state.
func (c *Controller) startAsync(ctx context.Context, event fsm.Event, message string, fn func(context.Context) error) ipc.Response {
	if err := c.begin(event); err != nil {
		c.goSafe(func() { c.say(ctx, c.deps.Messages.Busy) })
		return c.respond(false, "", err)
	}
	resp := c.respond(true, message, nil)
	c.goSafe(func() {
		if err := fn(ctx); err != nil {
			c.logWarn("command failed", "error", err.Error())
		}
	})
	return resp
}

func (c *Controller) background(ctx context.Context, message string, in intent.Intent) ipc.Response {
	resp := c.respond(true, message, nil)
	c.goSafe(func() {
		if err := c.dispatchNonRun(ctx, in); err != nil {
			c.logWarn("command failed", "error", err.Error())
		}
	})
	return resp
}

func (c *Controller) goSafe(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func (c *Controller) respond(ok bool, message string, err error) ipc.Response {
	resp := ipc.Response{OK: ok, State: string(c.State()), Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (c *Controller) statusMessage() string {
	if c.Monitoring() {
		return "emergency monitoring active"
	}
	return "emergency monitoring inactive"
}
