package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Secret environment variables. They override values from the config file.
const (
	EnvVisionKey      = "DRISHTI_VISION_KEY"
	EnvDescriptionKey = "DRISHTI_DESCRIPTION_KEY"
	EnvSpeechKey      = "DRISHTI_SPEECH_KEY"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	envWarnings := loadDotEnv(filepath.Dir(resolvedPath))

	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := base
			applyEnv(&cfg)
			warnings := append(envWarnings, Warning{
				Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
			})
			validated, verr := Validate(cfg)
			if verr != nil {
				return Loaded{}, verr
			}
			return Loaded{
				Path:     resolvedPath,
				Config:   cfg,
				Warnings: append(warnings, validated...),
				Exists:   false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: append(envWarnings, warnings...),
		Exists:   true,
	}, nil
}

// loadDotEnv reads .env from the working directory and the config directory.
// Variables already set in the environment win. A present but unreadable
// file is reported, not fatal.
func loadDotEnv(configDir string) []Warning {
	var warnings []Warning
	candidates := []string{".env", filepath.Join(configDir, ".env")}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("ignoring %s: %v", path, err)})
		}
	}
	return warnings
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvVisionKey)); v != "" {
		cfg.Vision.Key = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDescriptionKey)); v != "" {
		cfg.Description.Key = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSpeechKey)); v != "" {
		cfg.Speech.Key = v
	}
}
