// Package doctor runs readiness diagnostics for config, credentials, devices, and the daemon.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/drishti-ai/drishti/internal/audio"
	"github.com/drishti-ai/drishti/internal/camera"
	"github.com/drishti-ai/drishti/internal/config"
	"github.com/drishti-ai/drishti/internal/describe"
	"github.com/drishti-ai/drishti/internal/feedback"
	"github.com/drishti-ai/drishti/internal/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes every check for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q (%d warnings)", loaded.Path, len(loaded.Warnings)),
	}}

	checks = append(checks,
		checkSecret("vision.key", cfg.Vision.Key, config.EnvVisionKey),
		checkEndpoint("vision.endpoint", cfg.Vision.Endpoint),
		checkDescription(ctx, cfg.Description),
		checkSecret("speech.key", cfg.Speech.Key, config.EnvSpeechKey),
		checkCommand(cfg.Speech.Fallback, "speech.fallback_cmd"),
		checkCommand(cfg.Capture.Command, "capture.command"),
		checkCamera(cfg.Capture),
		checkMicrophone(ctx, cfg.Speech.Input),
		checkHaptics(cfg.Feedback),
	)

	if cfg.Emergency.NotifyCmd.Enabled() {
		checks = append(checks, checkCommand(cfg.Emergency.NotifyCmd, "emergency.notify_cmd"))
	}
	if strings.TrimSpace(cfg.Health.Listen) != "" {
		checks = append(checks, checkDaemon(ctx, cfg.Health.Listen))
	}

	return Report{Checks: checks}
}

func checkSecret(name string, value string, env string) Check {
	if strings.TrimSpace(value) == "" {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("not set; export %s or add it to .env", env)}
	}
	return Check{Name: name, Pass: true, Message: "set"}
}

func checkEndpoint(name string, endpoint string) Check {
	if strings.TrimSpace(endpoint) == "" {
		return Check{Name: name, Pass: false, Message: "not set"}
	}
	return Check{Name: name, Pass: true, Message: endpoint}
}

// checkDescription validates azure credentials or asks the local ollama server for its models.
func checkDescription(ctx context.Context, cfg config.DescriptionConfig) Check {
	const name = "description"
	switch cfg.Backend {
	case describe.BackendOllama:
		return checkOllama(ctx, cfg.Endpoint)
	default:
		if strings.TrimSpace(cfg.Endpoint) == "" {
			return Check{Name: name, Pass: false, Message: "azure endpoint is not set"}
		}
		if strings.TrimSpace(cfg.Key) == "" {
			return Check{Name: name, Pass: false, Message: fmt.Sprintf("azure key is not set; export %s", config.EnvDescriptionKey)}
		}
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("azure deployment %q", cfg.Deployment)}
	}
}

func checkOllama(ctx context.Context, endpoint string) Check {
	const name = "description"
	base := strings.TrimSpace(endpoint)
	if base == "" {
		base = describe.DefaultOllamaURL
	}
	url := strings.TrimRight(base, "/") + "/api/tags"

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("ollama request failed: %v", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("ollama reachable at %s", base)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(cmd config.CommandConfig, name string) Check {
	if !cmd.Enabled() {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	check := checkBinary(cmd.Program(), fmt.Sprintf("%s command is available", name))
	check.Name = name
	return check
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkCamera(cfg config.CaptureConfig) Check {
	cam := camera.New(camera.Options{Device: cfg.Device, Argv: cfg.Command.Argv})
	if err := cam.Check(); err != nil {
		return Check{Name: "capture.device", Pass: false, Message: err.Error()}
	}
	return Check{Name: "capture.device", Pass: true, Message: fmt.Sprintf("%s is accessible", cam.Device())}
}

// checkMicrophone runs live device selection to surface selection issues.
func checkMicrophone(ctx context.Context, input string) Check {
	selection, err := audio.SelectMicrophone(ctx, input)
	if err != nil {
		return Check{Name: "speech.input", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %s", selection.Microphone)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "speech.input", Pass: true, Message: message}
}

// checkHaptics reports the backend only; a missing vibrator is not an error.
func checkHaptics(cfg config.FeedbackConfig) Check {
	h := feedback.DetectHaptics(cfg.Haptic, nil)
	if !h.Available() {
		return Check{Name: "feedback.haptic", Pass: true, Message: fmt.Sprintf("no haptic device (mode %s)", cfg.Haptic)}
	}
	return Check{Name: "feedback.haptic", Pass: true, Message: h.Name()}
}

func checkDaemon(ctx context.Context, addr string) Check {
	status, err := health.Query(ctx, addr, health.ServiceDaemon, 2*time.Second)
	if err != nil {
		return Check{Name: "daemon", Pass: false, Message: fmt.Sprintf("not reachable at %s: %v", addr, err)}
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "daemon", Pass: false, Message: fmt.Sprintf("%s reports %s", addr, status)}
	}
	return Check{Name: "daemon", Pass: true, Message: fmt.Sprintf("serving at %s", addr)}
}

