// Package pipeline runs one capture -> analysis -> description -> announcement pass.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/drishti-ai/drishti/internal/camera"
	"github.com/drishti-ai/drishti/internal/compose"
	"github.com/drishti-ai/drishti/internal/describe"
	"github.com/drishti-ai/drishti/internal/hazard"
	"github.com/drishti-ai/drishti/internal/locale"
	"github.com/drishti-ai/drishti/internal/metrics"
	"github.com/drishti-ai/drishti/internal/scene"
	"github.com/drishti-ai/drishti/internal/speech"
	"github.com/google/uuid"
)

// Stage sentinels. Run errors wrap exactly one of them.
var (
	ErrCapture     = errors.New("capture failed")
	ErrRecognition = errors.New("speech recognition failed")
	ErrAnalysis    = errors.New("scene analysis failed")
	ErrGeneration  = errors.New("description generation failed")
	ErrSynthesis   = errors.New("speech synthesis failed")
)

// Stage is the furthest point a run reached.
type Stage string

const (
	StageCapture    Stage = "capture"
	StageAnalysis   Stage = "analysis"
	StageGeneration Stage = "generation"
	StageAnnounce   Stage = "announce"
	StageDone       Stage = "done"
)

// Capturer produces one normalized camera frame.
type Capturer interface {
	Capture(ctx context.Context) (camera.Frame, error)
}

// Analyzer turns an encoded image into scene annotations.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (scene.Annotation, error)
}

// Speaker speaks text aloud and returns once playback finished.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Renderer is a Speaker whose synthesis can be bounded apart from playback.
type Renderer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Play(ctx context.Context, pcm []byte) error
}

// Display is the visual and haptic output surface.
type Display interface {
	Show(ctx context.Context, text string)
	Alert(ctx context.Context, text string)
	Vibrate(ctx context.Context) bool
}

// Timeouts bound each remote call. Zero disables the bound. Synthesis
// bounds only a Renderer's network call; playback runs under the run context.
type Timeouts struct {
	Capture    time.Duration
	Analysis   time.Duration
	Generation time.Duration
	Synthesis  time.Duration
}

// Deps wires an Orchestrator. Fallback, Hazards, Metrics and Logger are
// optional; without Hazards nothing is flagged.
type Deps struct {
	Camera    Capturer
	Analyzer  Analyzer
	Composer  *compose.Composer
	Describer describe.Describer
	Hazards   *hazard.Detector
	Speaker   Speaker
	Fallback  Speaker
	Display   Display
	Messages  locale.Messages
	Timeouts  Timeouts
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
}

// Run is the record of one pipeline pass.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Stage        Stage
	CaptureBytes int
	Annotation   scene.Annotation
	Description  string
	Hazards      hazard.List
	Err          error

	CaptureLatency    time.Duration
	AnalysisLatency   time.Duration
	GenerationLatency time.Duration
	AnnounceLatency   time.Duration

	UsedFallback bool
	Vibrated     bool
}

// Failed reports whether the run ended with a stage error.
func (r Run) Failed() bool {
	return r.Err != nil
}

// Orchestrator executes pipeline runs. It keeps no state between runs and is
// safe for concurrent use; the camera serializes overlapping captures.
type Orchestrator struct {
	deps Deps
}

// New validates deps and returns an orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Camera == nil:
		return nil, errors.New("pipeline requires a camera")
	case deps.Analyzer == nil:
		return nil, errors.New("pipeline requires a vision analyzer")
	case deps.Describer == nil:
		return nil, errors.New("pipeline requires a describer")
	case deps.Speaker == nil:
		return nil, errors.New("pipeline requires a speaker")
	case deps.Display == nil:
		return nil, errors.New("pipeline requires a display")
	}
	if deps.Composer == nil {
		deps.Composer = compose.New("", "", 0)
	}
	if deps.Hazards == nil {
		deps.Hazards = hazard.NewDetector(nil)
	}
	return &Orchestrator{deps: deps}, nil
}

// Run executes one pass. Stage failures are reported in Run.Err after the
// user has heard exactly one apology.
func (o *Orchestrator) Run(ctx context.Context) Run {
	run := Run{ID: uuid.NewString(), StartedAt: time.Now(), Stage: StageCapture}

	run.Err = o.execute(ctx, &run)
	run.FinishedAt = time.Now()
	if run.Err == nil {
		run.Stage = StageDone
	}

	o.observe(run)
	o.logSummary(run)
	return run
}

func (o *Orchestrator) execute(ctx context.Context, run *Run) error {
	started := time.Now()
	frame, err := call(ctx, o.deps.Timeouts.Capture, o.deps.Camera.Capture)
	run.CaptureLatency = time.Since(started)
	if err != nil {
		o.apologize(ctx, o.deps.Messages.CaptureFailed)
		return fmt.Errorf("%w: %w", ErrCapture, err)
	}
	run.CaptureBytes = len(frame.JPEG)

	run.Stage = StageAnalysis
	started = time.Now()
	annotation, err := call(ctx, o.deps.Timeouts.Analysis, func(ctx context.Context) (scene.Annotation, error) {
		return o.deps.Analyzer.Analyze(ctx, frame.JPEG)
	})
	run.AnalysisLatency = time.Since(started)
	if err != nil {
		o.apologize(ctx, o.deps.Messages.ProcessingFailed)
		return fmt.Errorf("%w: %w", ErrAnalysis, err)
	}
	run.Annotation = annotation

	run.Stage = StageGeneration
	request := o.deps.Composer.Compose(annotation)
	started = time.Now()
	description, err := call(ctx, o.deps.Timeouts.Generation, func(ctx context.Context) (string, error) {
		return o.deps.Describer.Describe(ctx, request)
	})
	run.GenerationLatency = time.Since(started)
	if err != nil {
		o.apologize(ctx, o.deps.Messages.ProcessingFailed)
		return fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	run.Description = description

	run.Stage = StageAnnounce
	started = time.Now()
	var (
		wg          sync.WaitGroup
		announceErr error
		fallback    bool
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.deps.Display.Show(ctx, description)
		fallback, announceErr = o.speak(ctx, description)
	}()
	go func() {
		defer wg.Done()
		run.Hazards = o.deps.Hazards.Detect(annotation)
	}()
	wg.Wait()
	run.UsedFallback = fallback

	if len(run.Hazards) > 0 {
		labels := run.Hazards.Labels()
		o.deps.Display.Alert(ctx, o.deps.Messages.HazardAlert(labels))
		usedFallback, err := o.speak(ctx, o.deps.Messages.HazardWarning(labels))
		run.UsedFallback = run.UsedFallback || usedFallback
		if announceErr == nil {
			announceErr = err
		}
		run.Vibrated = o.deps.Display.Vibrate(ctx)
	}
	run.AnnounceLatency = time.Since(started)

	if announceErr != nil {
		return fmt.Errorf("%w: %w", ErrSynthesis, announceErr)
	}
	return nil
}

// speak tries the primary voice first and the local fallback second. It
// reports whether the fallback carried the text.
func (o *Orchestrator) speak(ctx context.Context, text string) (bool, error) {
	err := o.speakPrimary(ctx, text)
	if err == nil {
		return false, nil
	}
	o.logWarn("primary speech failed", err)
	if o.deps.Fallback == nil || errors.Is(err, speech.ErrPlayback) || ctx.Err() != nil {
		return false, err
	}
	if ferr := o.deps.Fallback.Speak(ctx, text); ferr != nil {
		return false, errors.Join(err, fmt.Errorf("fallback voice: %w", ferr))
	}
	o.deps.Metrics.ObserveSpeechFallback()
	return true, nil
}

func (o *Orchestrator) speakPrimary(ctx context.Context, text string) error {
	renderer, ok := o.deps.Speaker.(Renderer)
	if !ok {
		return o.deps.Speaker.Speak(ctx, text)
	}
	pcm, err := call(ctx, o.deps.Timeouts.Synthesis, func(ctx context.Context) ([]byte, error) {
		return renderer.Synthesize(ctx, text)
	})
	if err != nil {
		return err
	}
	if err := renderer.Play(ctx, pcm); err != nil {
		if errors.Is(err, speech.ErrPlayback) {
			return err
		}
		return fmt.Errorf("%w: %w", speech.ErrPlayback, err)
	}
	return nil
}

// apologize is the single user-facing notice for a failed stage.
func (o *Orchestrator) apologize(ctx context.Context, message string) {
	o.deps.Display.Show(ctx, message)
	if _, err := o.speak(ctx, message); err != nil {
		o.logWarn("apology could not be spoken", err)
	}
}

func (o *Orchestrator) observe(run Run) {
	stage := ""
	if run.Failed() {
		stage = string(run.Stage)
	}
	o.deps.Metrics.ObserveRun(stage, run.FinishedAt.Sub(run.StartedAt))
	o.deps.Metrics.ObserveHazards(run.Hazards.Keywords())
}

func (o *Orchestrator) logSummary(run Run) {
	if o.deps.Logger == nil {
		return
	}
	attrs := []any{
		"run_id", run.ID,
		"stage", string(run.Stage),
		"capture_bytes", run.CaptureBytes,
		"capture_ms", run.CaptureLatency.Milliseconds(),
		"analysis_ms", run.AnalysisLatency.Milliseconds(),
		"generation_ms", run.GenerationLatency.Milliseconds(),
		"announce_ms", run.AnnounceLatency.Milliseconds(),
		"total_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		"objects", len(run.Annotation.Objects),
		"hazards", run.Hazards.Labels(),
		"fallback_voice", run.UsedFallback,
		"vibrated", run.Vibrated,
	}
	if run.Failed() {
		o.deps.Logger.Error("run failed", append(attrs, "error", run.Err.Error())...)
		return
	}
	o.deps.Logger.Info("run complete", attrs...)
}

func (o *Orchestrator) logWarn(message string, err error) {
	if o.deps.Logger == nil {
		return
	}
	o.deps.Logger.Warn(message, "error", err.Error())
}

// call runs fn under an optional per-call timeout.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}
