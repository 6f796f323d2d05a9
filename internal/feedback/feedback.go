// Package feedback delivers display, audio cue, and haptic output to the user.
package feedback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/drishti-ai/drishti/internal/audio"
	"github.com/drishti-ai/drishti/internal/config"
	"github.com/gen2brain/beeep"
)

const (
	dispatchTimeout = 400 * time.Millisecond
	maxNotifyRunes  = 240
)

// Feedback is the concrete display/cue/haptic surface used by the assistant.
type Feedback struct {
	cfg     config.FeedbackConfig
	logger  *slog.Logger
	player  audio.Player
	haptics Haptics
	pattern []time.Duration

	notify func(title, message, icon string) error
	alert  func(title, message, icon string) error

	soundMu sync.Mutex
}

// New builds feedback from config. A nil player uses PulseAudio.
func New(cfg config.FeedbackConfig, player audio.Player, logger *slog.Logger) *Feedback {
	if player == nil {
		player = audio.PulsePlayer{MediaName: "drishti cue"}
	}
	return &Feedback{
		cfg:     cfg,
		logger:  logger,
		player:  player,
		haptics: DetectHaptics(cfg.Haptic, player),
		pattern: Pattern(cfg.HapticPatternMS),
		notify:  beeep.Notify,
		alert:   beeep.Alert,
	}
}

// Show publishes text on the screen-reader channel: a structured log record
// and, when enabled, a desktop notification.
func (f *Feedback) Show(ctx context.Context, text string) {
	f.announce("announce", text)
	if !f.cfg.Notify {
		return
	}
	f.run(ctx, func() error {
		return f.notify(f.cfg.AppName, truncate(text), "")
	})
}

// Alert publishes an urgent message and plays the hazard cue in the
// rhythm of the haptic pattern.
func (f *Feedback) Alert(ctx context.Context, text string) {
	f.announce("alert", text)
	f.playCue(cueHazard)
	if !f.cfg.Notify {
		return
	}
	f.run(ctx, func() error {
		return f.alert(f.cfg.AppName, truncate(text), "dialog-warning")
	})
}

// Vibrate plays the configured pattern when a haptic device is present.
// It reports whether a device was driven.
func (f *Feedback) Vibrate(ctx context.Context) bool {
	if !f.haptics.Available() || len(f.pattern) == 0 {
		return false
	}
	if err := f.haptics.Vibrate(ctx, f.pattern); err != nil {
		f.log("haptic feedback failed", err)
		return false
	}
	return true
}

// HapticsName describes the selected haptic backend.
func (f *Feedback) HapticsName() string {
	return f.haptics.Name()
}

// CueListening signals that the microphone is open.
func (f *Feedback) CueListening(context.Context) {
	f.playCue(cueListening)
}

// CueComplete signals a finished run.
func (f *Feedback) CueComplete(context.Context) {
	f.playCue(cueComplete)
}

// CueError signals a failed stage.
func (f *Feedback) CueError(context.Context) {
	f.playCue(cueError)
}

// run executes a display operation with a bounded timeout. Notification
// calls are not context-aware, so a slow bus only delays the log line.
func (f *Feedback) run(ctx context.Context, fn func() error) {
	runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		f.log("display dispatch failed", err)
	case <-runCtx.Done():
		f.log("display dispatch timed out", runCtx.Err())
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (f *Feedback) playCue(kind cueKind) {
	if !f.cfg.Sound {
		return
	}
	samples := render(cueNotes(kind, f.pattern))
	if len(samples) == 0 {
		return
	}
	go func() {
		f.soundMu.Lock()
		defer f.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := f.player.Play(ctx, samples, cueSampleRate); err != nil {
			f.log("audio cue failed", err)
		}
	}()
}

func (f *Feedback) announce(kind string, text string) {
	if f.logger == nil {
		return
	}
	f.logger.Info("screen reader", "kind", kind, "text", text)
}

// log emits debug-only feedback failures to the runtime logger.
func (f *Feedback) log(message string, err error) {
	if f.logger == nil || err == nil {
		return
	}
	f.logger.Debug(message, "error", err.Error())
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxNotifyRunes {
		return text
	}
	return string(runes[:maxNotifyRunes]) + "…"
}
