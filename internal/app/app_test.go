package app

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/drishti-ai/drishti/internal/camera"
	"github.com/drishti-ai/drishti/internal/compose"
	"github.com/drishti-ai/drishti/internal/ipc"
	"github.com/drishti-ai/drishti/internal/locale"
	"github.com/drishti-ai/drishti/internal/scene"
	"github.com/drishti-ai/drishti/internal/speech"
	"github.com/stretchr/testify/require"
)

const testDescription = "आपके सामने एक कार है।"

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "drishti")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestExecuteSayWithoutTextIsUsageError(t *testing.T) {
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"say"}, &bytes.Buffer{}, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "say requires text")
}

func TestRunnerStatusIdleWhenSocketUnavailable(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.NotContains(t, stderr.String(), "error:")
}

func TestRunnerStopCommandsRequireDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)

	for _, cmd := range []string{"stop", "stop-emergency"} {
		var stderr bytes.Buffer
		runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

		exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, cmd})
		require.Equal(t, 1, exitCode, cmd)
		require.Contains(t, stderr.String(), "no active drishti daemon", cmd)
	}
}

func TestRunnerForwardsCommandsToDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)
	requests := make(chan ipc.Request, 8)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "drishti.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		requests <- req
		switch req.Command {
		case ipc.CommandStatus:
			return ipc.Response{OK: true, State: "running", Message: "emergency monitoring inactive"}
		case ipc.CommandListen, ipc.CommandScan, ipc.CommandSay:
			return ipc.Response{OK: true, Message: req.Command + " handled"}
		default:
			return ipc.Response{OK: false, Error: "unsupported"}
		}
	})
	defer shutdown()

	cases := [][]string{{"status"}, {"listen"}, {"scan"}, {"say", "yeh", "kya", "hai"}}
	for _, args := range cases {
		var stdout bytes.Buffer
		var stderr bytes.Buffer
		runner := Runner{Stdout: &stdout, Stderr: &stderr}

		exitCode := runner.Execute(context.Background(), append([]string{"--config", paths.configPath}, args...))
		require.Equal(t, 0, exitCode, args[0])
		require.NotContains(t, stderr.String(), "error:", args[0])
		if args[0] == "status" {
			require.Equal(t, "running\nemergency monitoring inactive\n", stdout.String())
		} else {
			require.Equal(t, args[0]+" handled\n", stdout.String())
		}
	}

	var got []ipc.Request
	for range cases {
		got = append(got, <-requests)
	}
	require.Equal(t, []ipc.Request{
		{Command: "status"},
		{Command: "listen"},
		{Command: "scan"},
		{Command: "say", Text: "yeh kya hai"},
	}, got)
}

func TestRunnerReportsDaemonRejection(t *testing.T) {
	paths := setupRunnerEnv(t)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "drishti.sock"), func(context.Context, ipc.Request) ipc.Response {
		return ipc.Response{OK: false, State: "running", Error: "assistant is busy"}
	})
	defer shutdown()

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "scan"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "assistant is busy")
}

func TestRunnerStatusFallsBackToIdleWhenServerStateEmpty(t *testing.T) {
	paths := setupRunnerEnv(t)
	commands := make(chan string, 1)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "drishti.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		commands <- req.Command
		return ipc.Response{OK: true, State: ""}
	})
	defer shutdown()

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
	require.Equal(t, "status", <-commands)
}

func TestRunnerScanRunsInProcessWithoutDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)
	fakes := newFakeDevices()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger(), devices: fakes.overrides()}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "scan"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, "scan started\n", stdout.String())
	require.Equal(t, []string{testDescription, "सावधान! कार, ट्रैफिक"}, fakes.speaker.spoken())
	require.Equal(t, 1, fakes.captures())
}

func TestRunnerEmergencyRunsUntilCancelled(t *testing.T) {
	paths := setupRunnerEnv(t)
	fakes := newFakeDevices()
	msgs := locale.For("hi-IN")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Logger: discardLogger(), devices: fakes.overrides()}

	exitCode := runner.Execute(ctx, []string{"--config", paths.configPath, "emergency"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, "emergency activated\n", stdout.String())
	require.Equal(t, []string{msgs.EmergencyActivated, msgs.MonitoringStarted}, fakes.speaker.spoken())
}

func TestRunnerHelpRequestKeepsMonitoringUntilCancelled(t *testing.T) {
	msgs := locale.For("hi-IN")

	cases := map[string]func(*fakeDevices) ([]string, overrides){
		"say": func(f *fakeDevices) ([]string, overrides) {
			return []string{"say", "मदद"}, f.overrides()
		},
		"listen": func(f *fakeDevices) ([]string, overrides) {
			o := f.overrides()
			o.listener = listenerHearing("help")
			return []string{"listen"}, o
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			paths := setupRunnerEnv(t)
			fakes := newFakeDevices()
			args, devices := setup(fakes)

			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()

			var stderr bytes.Buffer
			runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Logger: discardLogger(), devices: devices}

			started := time.Now()
			exitCode := runner.Execute(ctx, append([]string{"--config", paths.configPath}, args...))
			require.Equal(t, 0, exitCode, stderr.String())
			require.GreaterOrEqual(t, time.Since(started), 250*time.Millisecond)
			require.Equal(t, []string{msgs.EmergencyActivated, msgs.MonitoringStarted}, fakes.speaker.spoken())
		})
	}
}

func TestRunnerNonEmergencySayReturnsImmediately(t *testing.T) {
	paths := setupRunnerEnv(t)
	fakes := newFakeDevices()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Logger: discardLogger(), devices: fakes.overrides()}

	started := time.Now()
	require.Equal(t, 0, runner.Execute(ctx, []string{"--config", paths.configPath, "say", "रास्ता"}))
	require.Less(t, time.Since(started), 2*time.Second)
	require.Equal(t, []string{locale.For("hi-IN").NavigationMode}, fakes.speaker.spoken())
}

func TestRunnerServeOwnsSocketUntilCancelled(t *testing.T) {
	paths := setupRunnerEnv(t)
	fakes := newFakeDevices()
	socketPath := filepath.Join(paths.runtimeDir, "drishti.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Logger: discardLogger(), devices: fakes.overrides()}
	exitCh := make(chan int, 1)
	go func() {
		exitCh <- runner.Execute(ctx, []string{"--config", paths.configPath, "serve"})
	}()

	var resp ipc.Response
	require.Eventually(t, func() bool {
		r, err := ipc.Send(context.Background(), socketPath, ipc.Request{Command: ipc.CommandStatus}, 200*time.Millisecond)
		if err != nil {
			return false
		}
		resp = r
		return true
	}, 3*time.Second, 20*time.Millisecond)
	require.True(t, resp.OK)
	require.Equal(t, "idle", resp.State)

	var stderr bytes.Buffer
	second := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Logger: discardLogger()}
	require.Equal(t, 1, second.Execute(context.Background(), []string{"--config", paths.configPath, "serve"}))
	require.Contains(t, stderr.String(), "drishti daemon already running")

	cancel()
	select {
	case code := <-exitCh:
		require.Equal(t, 0, code)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not exit after cancellation")
	}

	_, statErr := os.Stat(socketPath)
	require.ErrorIs(t, statErr, os.ErrNotExist)
	require.Equal(t, locale.For("hi-IN").Welcome, fakes.speaker.spoken()[0])
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t)
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("DRISHTI_VISION_KEY", "")
	t.Setenv("DRISHTI_DESCRIPTION_KEY", "")
	t.Setenv("DRISHTI_SPEECH_KEY", "")

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "] config:")
	require.Contains(t, stdout.String(), "[FAIL]")
}

func TestLogCommandResultWritesFailureAndSuccess(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	logCommandResult(logger, "scan", "idle", nil)
	require.Contains(t, logBuf.String(), "command complete")
	require.Contains(t, logBuf.String(), "\"command\":\"scan\"")

	logBuf.Reset()
	logCommandResult(logger, "serve", "idle", errors.New("boom"))
	require.Contains(t, logBuf.String(), "command failed")
	require.Contains(t, logBuf.String(), "boom")

	logCommandResult(nil, "serve", "idle", nil)
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	t.Setenv("XDG_STATE_HOME", t.TempDir())
	runtimeDir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	content := `{
  // no desktop side effects in tests
  "feedback": {"notify": false, "sound": false, "haptic": "off"}
}
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		server := ipc.Server{Handler: ipc.HandlerFunc(handler)}
		done <- server.Serve(ctx, listener)
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type fakeDevices struct {
	camera  *fakeCamera
	speaker *fakeSpeaker
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{camera: &fakeCamera{}, speaker: &fakeSpeaker{}}
}

func (f *fakeDevices) overrides() overrides {
	return overrides{
		camera:    f.camera,
		analyzer:  fakeAnalyzer{},
		describer: fakeDescriber{},
		speaker:   f.speaker,
		fallback:  f.speaker,
		player:    silentPlayer{},
	}
}

func (f *fakeDevices) captures() int {
	f.camera.mu.Lock()
	defer f.camera.mu.Unlock()
	return f.camera.calls
}

type fakeCamera struct {
	mu    sync.Mutex
	calls int
}

func (c *fakeCamera) Capture(context.Context) (camera.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return camera.Frame{JPEG: []byte{0xff, 0xd8}, CapturedAt: time.Now()}, nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(context.Context, []byte) (scene.Annotation, error) {
	return scene.Annotation{
		Objects: []scene.DetectedObject{{Label: "car", Confidence: 0.92}},
		Tags:    []scene.Tag{{Label: "traffic", Confidence: 0.81}},
	}, nil
}

type fakeDescriber struct{}

func (fakeDescriber) Describe(context.Context, compose.Request) (string, error) {
	return testDescription, nil
}

type fakeSpeaker struct {
	mu   sync.Mutex
	said []string
}

func (s *fakeSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
	return nil
}

func (s *fakeSpeaker) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.said...)
}

type staticTranscriber string

func (s staticTranscriber) Recognize(context.Context, []byte) (string, error) {
	return string(s), nil
}

type chunkSource struct{ chunks chan []byte }

func (s *chunkSource) Chunks() <-chan []byte { return s.chunks }
func (s *chunkSource) Stop() error           { return nil }

func listenerHearing(text string) *speech.Listener {
	return speech.NewListener(speech.ListenerOptions{}, staticTranscriber(text), nil).
		WithSource(func(context.Context) (speech.ChunkSource, error) {
			chunk := make([]byte, 640)
			for i := 0; i < len(chunk); i += 2 {
				binary.LittleEndian.PutUint16(chunk[i:], 4000)
			}
			source := &chunkSource{chunks: make(chan []byte, 1)}
			source.chunks <- chunk
			close(source.chunks)
			return source, nil
		})
}

type silentPlayer struct{}

func (silentPlayer) Play(context.Context, []int16, int) error { return nil }
