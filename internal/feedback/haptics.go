package feedback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/drishti-ai/drishti/internal/audio"
)

// Haptic modes accepted by feedback.haptic.
const (
	HapticAuto  = "auto"
	HapticSysfs = "sysfs"
	HapticAudio = "audio"
	HapticOff   = "off"
)

// Known vibrator locations. Tests override them.
var (
	timedOutputVibrator = "/sys/class/timed_output/vibrator"
	ledVibrator         = "/sys/class/leds/vibrator"
)

// Haptics drives a vibration device with an on/off pattern.
type Haptics interface {
	Available() bool
	Name() string
	Vibrate(ctx context.Context, pattern []time.Duration) error
}

// Pattern converts millisecond values into alternating on/off durations.
func Pattern(ms []int) []time.Duration {
	out := make([]time.Duration, 0, len(ms))
	for _, v := range ms {
		if v <= 0 {
			continue
		}
		out = append(out, time.Duration(v)*time.Millisecond)
	}
	return out
}

// DetectHaptics resolves mode to a backend. auto prefers a sysfs vibrator and
// otherwise reports no device; audio plays a low rumble through player.
func DetectHaptics(mode string, player audio.Player) Haptics {
	switch mode {
	case HapticOff:
		return noHaptics{}
	case HapticAudio:
		return rumble{player: player}
	case HapticSysfs, HapticAuto, "":
		if v, ok := findSysfsVibrator(); ok {
			return v
		}
		return noHaptics{}
	default:
		return noHaptics{}
	}
}

func findSysfsVibrator() (sysfsVibrator, bool) {
	if isWritable(filepath.Join(timedOutputVibrator, "enable")) {
		return sysfsVibrator{dir: timedOutputVibrator, timedOutput: true}, true
	}
	if isWritable(filepath.Join(ledVibrator, "activate")) {
		return sysfsVibrator{dir: ledVibrator}, true
	}
	return sysfsVibrator{}, false
}

func isWritable(path string) bool {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

type noHaptics struct{}

func (noHaptics) Available() bool { return false }

func (noHaptics) Name() string { return "none" }

func (noHaptics) Vibrate(context.Context, []time.Duration) error { return nil }

// sysfsVibrator writes to the kernel's timed_output or leds vibrator interface.
type sysfsVibrator struct {
	dir         string
	timedOutput bool
}

func (v sysfsVibrator) Available() bool { return v.dir != "" }

func (v sysfsVibrator) Name() string { return "sysfs:" + v.dir }

func (v sysfsVibrator) Vibrate(ctx context.Context, pattern []time.Duration) error {
	return playPattern(ctx, pattern, func(on time.Duration) error {
		ms := strconv.FormatInt(on.Milliseconds(), 10)
		if v.timedOutput {
			return writeSysfs(filepath.Join(v.dir, "enable"), ms)
		}
		if err := writeSysfs(filepath.Join(v.dir, "duration"), ms); err != nil {
			return err
		}
		return writeSysfs(filepath.Join(v.dir, "activate"), "1")
	})
}

func writeSysfs(path string, value string) error {
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// rumble approximates vibration with a low tone for devices without a motor.
type rumble struct {
	player audio.Player
}

func (r rumble) Available() bool { return r.player != nil }

func (r rumble) Name() string { return "audio" }

func (r rumble) Vibrate(ctx context.Context, pattern []time.Duration) error {
	return r.player.Play(ctx, render(rhythm(pattern, rumbleHz, rumbleGain)), cueSampleRate)
}

// playPattern triggers on for each even index and waits out every segment,
// so the call returns after the whole pattern has elapsed.
func playPattern(ctx context.Context, pattern []time.Duration, on func(time.Duration) error) error {
	for i, d := range pattern {
		if i%2 == 0 {
			if err := on(d); err != nil {
				return err
			}
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
