package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/drishti-ai/drishti/internal/cli"
	"github.com/drishti-ai/drishti/internal/config"
	"github.com/drishti-ai/drishti/internal/doctor"
	"github.com/drishti-ai/drishti/internal/ipc"
	"github.com/drishti-ai/drishti/internal/logging"
	"github.com/drishti-ai/drishti/internal/version"
)

const (
	binaryName     = "drishti"
	forwardTimeout = 220 * time.Millisecond
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	devices overrides
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New(logging.Options{Verbose: parsed.Verbose, Console: r.Stderr})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch {
	case parsed.Command == cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case parsed.Command == cli.CommandStatus:
		return r.commandStatus(ctx)
	case parsed.Command == cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	case parsed.Command.Forwardable():
		return r.forwardOrRun(ctx, request(parsed), cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func request(parsed cli.Parsed) ipc.Request {
	return ipc.Request{Command: string(parsed.Command), Text: parsed.Text}
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := ipc.Forward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

// forwardOrRun hands the command to a running daemon. Without one, stop
// commands fail and everything else runs once in this process.
func (r Runner) forwardOrRun(ctx context.Context, req ipc.Request, cfg config.Config, logger *slog.Logger) int {
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := ipc.Forward(ctx, socketPath, req, forwardTimeout)
		if handled {
			return r.report(resp, err)
		}
	}

	switch req.Command {
	case ipc.CommandStop, ipc.CommandStopEmergency:
		fmt.Fprintln(r.Stderr, "error: no active drishti daemon")
		return 1
	}
	return r.runOnce(ctx, req, cfg, logger)
}

func (r Runner) runOnce(ctx context.Context, req ipc.Request, cfg config.Config, logger *slog.Logger) int {
	svc, err := build(cfg, logger, r.devices)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp := svc.controller.Handle(ctx, req)
	code := r.report(resp, nil)
	if code != 0 {
		return code
	}

	svc.controller.Wait()
	// Any dispatch path can start monitoring; it lives until interrupted.
	if svc.controller.Monitoring() {
		<-ctx.Done()
	}
	logCommandResult(logger, req.Command, string(svc.controller.State()), nil)
	return 0
}

func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	svc, err := build(cfg, logger, r.devices)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	auxErrCh := make(chan error, 2)
	aux := 0
	if cfg.Health.Listen != "" {
		aux++
		go func() { auxErrCh <- svc.health.Serve(serverCtx, cfg.Health.Listen) }()
	}
	if cfg.Metrics.Listen != "" {
		aux++
		go func() { auxErrCh <- svc.metrics.Serve(serverCtx, cfg.Metrics.Listen, logger) }()
	}

	svc.health.SetServing(true)
	logger.Info("daemon ready", "socket", socketPath, "health", cfg.Health.Listen, "metrics", cfg.Metrics.Listen)
	svc.controller.Welcome(serverCtx)

	server := ipc.Server{Handler: svc.controller, Logger: logger}
	serveErr := server.Serve(serverCtx, listener)
	svc.health.SetServing(false)
	serverCancel()
	svc.controller.Wait()

	code := 0
	if serveErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serveErr)
		code = 1
	}
	for ; aux > 0; aux-- {
		if auxErr := <-auxErrCh; auxErr != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", auxErr)
			code = 1
		}
	}
	logCommandResult(logger, string(cli.CommandServe), string(svc.controller.State()), serveErr)
	return code
}

func (r Runner) report(resp ipc.Response, err error) int {
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if !resp.OK {
		fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func logCommandResult(logger *slog.Logger, command string, state string, err error) {
	if logger == nil {
		return
	}
	fields := []any{"command", command, "state", state}
	if err != nil {
		logger.Error("command failed", append(fields, "error", err.Error())...)
		return
	}
	logger.Info("command complete", fields...)
}
