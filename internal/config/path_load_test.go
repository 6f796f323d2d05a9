package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvVisionKey, "")
	t.Setenv(EnvDescriptionKey, "")
	t.Setenv(EnvSpeechKey, "")
}

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "drishti", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "drishti", "config.jsonc"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	clearKeyEnv(t)
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  // Azure resources
  "vision": {
    "endpoint": "https://drishti.cognitiveservices.azure.com",
  },
  "speech": {
    "region": "centralindia",
    "voice": "hi-IN-MadhurNeural"
  },
  "emergency": {"interval_ms": 15000}
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "https://drishti.cognitiveservices.azure.com", loaded.Config.Vision.Endpoint)
	require.Equal(t, "centralindia", loaded.Config.Speech.Region)
	require.Equal(t, "hi-IN-MadhurNeural", loaded.Config.Speech.Voice)
	require.Equal(t, 15000, loaded.Config.Emergency.IntervalMS)
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	clearKeyEnv(t)
	require.NoError(t, os.Unsetenv(EnvVisionKey))

	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"vision":{"endpoint":"https://v.example.com"}}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvVisionKey+"=dotenv-secret\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "dotenv-secret", loaded.Config.Vision.Key)
}

func TestLoadWarnsOnMalformedDotEnv(t *testing.T) {
	clearKeyEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(`{"vision":{"endpoint":"https://v.example.com"}}`), 0o600))
	require.NoError(t, os.WriteFile(envPath, []byte("DRISHTI-VISION-KEY=oops\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, loaded.Config.Vision.Key)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "ignoring "+envPath)
	require.Contains(t, loaded.Warnings[0].Message, "unexpected character")
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}
