// Package camera acquires single still frames from a capture device.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// DevicePlaceholder is replaced with the configured device in the capture argv.
const DevicePlaceholder = "{device}"

var (
	// ErrPermission reports a device the process may not open.
	ErrPermission = errors.New("camera permission denied")
	// ErrUnavailable reports a missing device or a capture command that produced no frame.
	ErrUnavailable = errors.New("camera unavailable")
)

// Frame is one normalized JPEG still.
type Frame struct {
	JPEG       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Options configures frame acquisition.
type Options struct {
	Device       string
	Argv         []string
	MaxDimension int
	JPEGQuality  int
}

// Camera serializes access to one capture device.
type Camera struct {
	opts Options
	sem  chan struct{}

	checkDevice func(string) error
	grab        func(context.Context, []string) ([]byte, error)
}

// New returns a camera for opts.
func New(opts Options) *Camera {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = 1280
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 80
	}
	return &Camera{
		opts:        opts,
		sem:         make(chan struct{}, 1),
		checkDevice: checkDevice,
		grab:        runCapture,
	}
}

// Device returns the configured device path.
func (c *Camera) Device() string {
	return c.opts.Device
}

// Capture acquires exclusive use of the device, grabs one frame, and returns
// it fitted within MaxDimension and re-encoded as JPEG. The device is released
// before Capture returns.
func (c *Camera) Capture(ctx context.Context) (Frame, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return Frame{}, fmt.Errorf("wait for camera: %w", ctx.Err())
	}
	defer func() { <-c.sem }()

	if err := c.checkDevice(c.opts.Device); err != nil {
		return Frame{}, err
	}

	raw, err := c.grab(ctx, expandArgv(c.opts.Argv, c.opts.Device))
	if err != nil {
		return Frame{}, err
	}
	if len(raw) == 0 {
		return Frame{}, fmt.Errorf("%w: capture command produced no data", ErrUnavailable)
	}

	return normalize(raw, c.opts.MaxDimension, c.opts.JPEGQuality)
}

// Check verifies the device can be opened without capturing.
func (c *Camera) Check() error {
	return c.checkDevice(c.opts.Device)
}

func normalize(raw []byte, maxDimension int, quality int) (Frame, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	fitted := imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}

	bounds := fitted.Bounds()
	return Frame{
		JPEG:       buf.Bytes(),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		CapturedAt: time.Now(),
	}, nil
}

func expandArgv(argv []string, device string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = strings.ReplaceAll(arg, DevicePlaceholder, device)
	}
	return out
}

func checkDevice(device string) error {
	device = strings.TrimSpace(device)
	if device == "" {
		return fmt.Errorf("%w: no device configured", ErrUnavailable)
	}
	if !strings.HasPrefix(device, "/") {
		return nil
	}

	f, err := os.Open(device)
	switch {
	case err == nil:
		return f.Close()
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s does not exist", ErrUnavailable, device)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermission, device)
	default:
		return fmt.Errorf("%w: open %s: %w", ErrUnavailable, device, err)
	}
}

func runCapture(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: capture command is empty", ErrUnavailable)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("capture frame: %w", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(msg), "permission denied") {
			return nil, fmt.Errorf("%w: %s", ErrPermission, msg)
		}
		if msg != "" {
			return nil, fmt.Errorf("%w: %s: %w: %s", ErrUnavailable, argv[0], err, msg)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, argv[0], err)
	}
	return stdout.Bytes(), nil
}
