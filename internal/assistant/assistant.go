// Package assistant coordinates voice listening, intent dispatch, pipeline
// runs, and emergency monitoring for one user.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/drishti-ai/drishti/internal/emergency"
	"github.com/drishti-ai/drishti/internal/fsm"
	"github.com/drishti-ai/drishti/internal/intent"
	"github.com/drishti-ai/drishti/internal/locale"
	"github.com/drishti-ai/drishti/internal/pipeline"
	"github.com/drishti-ai/drishti/internal/speech"
)

// ErrBusy rejects a foreground request while another listen or run is in flight.
var ErrBusy = errors.New("assistant is busy")

// Pipeline executes one capture-to-announcement pass.
type Pipeline interface {
	Run(ctx context.Context) pipeline.Run
}

// Listener records and recognizes one utterance.
type Listener interface {
	Start(ctx context.Context) *speech.ListenSession
}

// Speaker speaks prompts and notices.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Feedback is the assistant-facing subset of the feedback surface.
type Feedback interface {
	Show(ctx context.Context, text string)
	CueListening(ctx context.Context)
	CueComplete(ctx context.Context)
	CueError(ctx context.Context)
}

// Notifier alerts trusted contacts.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Deps wires a Controller. Listener, Notifier, Feedback and Logger are optional.
type Deps struct {
	Interpreter *intent.Interpreter
	Pipeline    Pipeline
	Listener    Listener
	Speaker     Speaker
	Feedback    Feedback
	Monitor     *emergency.Monitor
	Notifier    Notifier
	Messages    locale.Messages
	Logger      *slog.Logger
}

type noopFeedback struct{}

func (noopFeedback) Show(context.Context, string) {}
func (noopFeedback) CueListening(context.Context) {}
func (noopFeedback) CueComplete(context.Context)  {}
func (noopFeedback) CueError(context.Context)     {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) error { return nil }

// Controller owns the foreground state machine.
type Controller struct {
	deps Deps

	mu        sync.RWMutex
	state     fsm.State
	listening *speech.ListenSession

	wg sync.WaitGroup
}

// New returns an idle controller.
func New(deps Deps) (*Controller, error) {
	switch {
	case deps.Pipeline == nil:
		return nil, errors.New("assistant requires a pipeline")
	case deps.Speaker == nil:
		return nil, errors.New("assistant requires a speaker")
	case deps.Monitor == nil:
		return nil, errors.New("assistant requires an emergency monitor")
	}
	if deps.Interpreter == nil {
		deps.Interpreter = intent.NewInterpreter(intent.DefaultKeywords())
	}
	if deps.Feedback == nil {
		deps.Feedback = noopFeedback{}
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	return &Controller{deps: deps, state: fsm.StateIdle}, nil
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Monitoring reports whether emergency monitoring is active.
func (c *Controller) Monitoring() bool {
	return c.deps.Monitor.Active()
}

// Wait blocks until every background dispatch started by Handle returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Welcome greets the user.
func (c *Controller) Welcome(ctx context.Context) {
	c.say(ctx, c.deps.Messages.Welcome)
}

// Listen records one voice command and dispatches it.
func (c *Controller) Listen(ctx context.Context) error {
	if err := c.begin(fsm.EventListen); err != nil {
		c.say(ctx, c.deps.Messages.Busy)
		return err
	}
	return c.listen(ctx)
}

// StopListening cancels only the in-flight recognition. It reports whether
// a recognition was cancelled.
func (c *Controller) StopListening() bool {
	c.mu.RLock()
	session := c.listening
	c.mu.RUnlock()
	if session == nil {
		return false
	}
	session.Stop()
	return true
}

// Say interprets typed text exactly like a recognized utterance.
func (c *Controller) Say(ctx context.Context, text string) error {
	return c.Dispatch(ctx, c.deps.Interpreter.Interpret(text))
}

// Dispatch performs the action for in.
func (c *Controller) Dispatch(ctx context.Context, in intent.Intent) error {
	switch in.Kind {
	case intent.ScanEnvironment, intent.ReadText:
		if err := c.begin(fsm.EventRun); err != nil {
			c.say(ctx, c.deps.Messages.Busy)
			return err
		}
		return c.run(ctx, in.Kind)
	default:
		return c.dispatchNonRun(ctx, in)
	}
}

// StopEmergency ends monitoring. It is idempotent.
func (c *Controller) StopEmergency(ctx context.Context) bool {
	if !c.deps.Monitor.Stop() {
		return false
	}
	c.say(ctx, c.deps.Messages.MonitoringStopped)
	return true
}

func (c *Controller) listen(ctx context.Context) error {
	if c.deps.Listener == nil {
		c.deps.Feedback.CueError(ctx)
		c.toErrorAndReset()
		c.say(ctx, c.deps.Messages.ListenFailed)
		return fmt.Errorf("%w: %w", pipeline.ErrRecognition, speech.ErrNotConfigured)
	}

	c.deps.Feedback.CueListening(ctx)
	c.deps.Feedback.Show(ctx, c.deps.Messages.Listening)

	session := c.deps.Listener.Start(ctx)
	c.setListening(session)
	text, err := session.Wait()
	c.setListening(nil)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			_ = c.transition(fsm.EventCancel)
			c.logInfo("listening cancelled")
			return nil
		}
		c.deps.Feedback.CueError(ctx)
		c.toErrorAndReset()
		c.say(ctx, c.deps.Messages.ListenFailed)
		c.logWarn("speech recognition failed", "error", err.Error())
		return fmt.Errorf("%w: %w", pipeline.ErrRecognition, err)
	}

	in := c.deps.Interpreter.Interpret(text)
	c.logInfo("command recognized", "intent", string(in.Kind), "text", text)
	switch in.Kind {
	case intent.ScanEnvironment, intent.ReadText:
		if err := c.transition(fsm.EventRun); err != nil {
			c.deps.Feedback.CueError(ctx)
			c.toErrorAndReset()
			c.say(ctx, c.deps.Messages.ListenFailed)
			return err
		}
		return c.run(ctx, in.Kind)
	default:
		_ = c.transition(fsm.EventHeard)
		return c.dispatchNonRun(ctx, in)
	}
}

// run executes one pipeline pass; the controller must already be running.
func (c *Controller) run(ctx context.Context, kind intent.Kind) error {
	if kind == intent.ReadText {
		c.say(ctx, c.deps.Messages.ReadMode)
	}

	result := c.deps.Pipeline.Run(ctx)
	if result.Failed() {
		c.deps.Feedback.CueError(ctx)
		c.toErrorAndReset()
		return result.Err
	}
	c.deps.Feedback.CueComplete(ctx)
	return c.transition(fsm.EventDone)
}

func (c *Controller) dispatchNonRun(ctx context.Context, in intent.Intent) error {
	switch in.Kind {
	case intent.Navigate:
		c.say(ctx, c.deps.Messages.NavigationMode)
		return nil
	case intent.Emergency:
		return c.startEmergency(ctx)
	case intent.Unrecognized:
		c.say(ctx, c.deps.Messages.Unrecognized(in.Raw))
		return nil
	default:
		return fmt.Errorf("unsupported intent %q", in.Kind)
	}
}

func (c *Controller) startEmergency(ctx context.Context) error {
	msgs := c.deps.Messages
	c.say(ctx, msgs.EmergencyActivated)
	if err := c.deps.Notifier.Notify(ctx, msgs.EmergencyActivated); err != nil {
		c.logWarn("trusted contact alert failed", "error", err.Error())
	}

	if _, started := c.deps.Monitor.Start(ctx); !started {
		c.say(ctx, msgs.AlreadyMonitoring)
		return nil
	}
	c.say(ctx, msgs.MonitoringStarted)
	return nil
}

// begin moves idle to the event's target state or reports ErrBusy.
func (c *Controller) begin(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Busy() {
		return fmt.Errorf("%w: %s", ErrBusy, c.state)
	}
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

func (c *Controller) setListening(session *speech.ListenSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listening = session
}

// say displays and speaks a notice. Speech failures are logged only.
func (c *Controller) say(ctx context.Context, text string) {
	c.deps.Feedback.Show(ctx, text)
	if err := c.deps.Speaker.Speak(ctx, text); err != nil {
		c.logWarn("notice could not be spoken", "error", err.Error())
	}
}

func (c *Controller) logInfo(msg string, args ...any) {
	if c.deps.Logger != nil {
		c.deps.Logger.Info(msg, args...)
	}
}

func (c *Controller) logWarn(msg string, args ...any) {
	if c.deps.Logger != nil {
		c.deps.Logger.Warn(msg, args...)
	}
}
