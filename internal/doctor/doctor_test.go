package doctor

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drishti-ai/drishti/internal/config"
	"github.com/drishti-ai/drishti/internal/describe"
	"github.com/drishti-ai/drishti/internal/health"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckSecretNamesEnvVariable(t *testing.T) {
	check := checkSecret("vision.key", "", config.EnvVisionKey)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, config.EnvVisionKey)

	require.True(t, checkSecret("vision.key", "abc", config.EnvVisionKey).Pass)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(config.CommandConfig{}, "speech.fallback_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-espeak")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand(config.CommandConfig{Raw: "fake-espeak --stdin", Argv: []string{"fake-espeak", "--stdin"}}, "speech.fallback_cmd")
	require.True(t, check.Pass)
	require.Equal(t, "speech.fallback_cmd", check.Name)
	require.Contains(t, check.Message, "speech.fallback_cmd command is available")
}

func TestCheckDescriptionAzureRequiresKey(t *testing.T) {
	cfg := config.Default().Description
	cfg.Backend = describe.BackendAzure
	cfg.Endpoint = "https://example.openai.azure.com"
	cfg.Key = ""

	check := checkDescription(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, config.EnvDescriptionKey)

	cfg.Key = "secret"
	require.True(t, checkDescription(context.Background(), cfg).Pass)
}

func TestCheckDescriptionQueriesOllama(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default().Description
	cfg.Backend = describe.BackendOllama
	cfg.Endpoint = server.URL

	check := checkDescription(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Equal(t, "/api/tags", path)
}

func TestCheckDescriptionOllamaFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	check := checkOllama(context.Background(), server.URL)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 503")
}

func TestCheckCameraMissingDevice(t *testing.T) {
	cfg := config.Default().Capture
	cfg.Device = filepath.Join(t.TempDir(), "video9")

	check := checkCamera(cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "does not exist")
}

func TestCheckMicrophoneFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkMicrophone(context.Background(), "default")
	require.False(t, check.Pass)
	require.Equal(t, "speech.input", check.Name)
}

func TestCheckDaemonReportsServingStatus(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	server := health.NewServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, addr) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	server.SetServing(true)
	require.Eventually(t, func() bool { return checkDaemon(context.Background(), addr).Pass }, 3*time.Second, 50*time.Millisecond)
}

func TestCheckDaemonUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	check := checkDaemon(context.Background(), addr)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "not reachable")
}

func TestRunIncludesOptionalChecksWhenConfigured(t *testing.T) {
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "fake-notify"), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.Emergency.NotifyCmd = config.CommandConfig{Raw: "fake-notify", Argv: []string{"fake-notify"}}

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	names := map[string]Check{}
	for _, check := range report.Checks {
		names[check.Name] = check
	}
	require.Contains(t, names, "config")
	require.Contains(t, names, "vision.key")
	require.Contains(t, names, "feedback.haptic")
	require.True(t, names["emergency.notify_cmd"].Pass)
	require.NotContains(t, names, "daemon")
}
