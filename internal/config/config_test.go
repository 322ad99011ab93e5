package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME at an empty temp dir and clears the config overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CLAWDESK_CONFIG", "")
	t.Setenv("CLAWDESK_HOME", "")
	t.Setenv("CLAWDESK_ENV_FILE", "")
	return home
}

func writeConfig(t *testing.T, home, body string) string {
	t.Helper()
	dir := filepath.Join(home, ConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, ConfigFile)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Gateway.Host != "127.0.0.1" {
		t.Errorf("expected gateway host 127.0.0.1, got %s", cfg.Gateway.Host)
	}
	if cfg.Providers.OpenAI.DefaultModel != "gpt-4o-mini" {
		t.Errorf("unexpected openai default model %q", cfg.Providers.OpenAI.DefaultModel)
	}
	if cfg.Providers.Anthropic.DefaultModel != "claude-sonnet-4-5" {
		t.Errorf("unexpected anthropic default model %q", cfg.Providers.Anthropic.DefaultModel)
	}
	if cfg.Engine.RemoteTimeout != 30*time.Second {
		t.Errorf("expected remote timeout 30s, got %v", cfg.Engine.RemoteTimeout)
	}
	if cfg.Engine.SetupStepDelay != 1500*time.Millisecond {
		t.Errorf("expected setup step delay 1.5s, got %v", cfg.Engine.SetupStepDelay)
	}
	if cfg.Engine.HistoryWindow != 20 {
		t.Errorf("expected history window 20, got %d", cfg.Engine.HistoryWindow)
	}
	if !cfg.Engine.DemoSetup {
		t.Error("expected demo setup on by default")
	}
	if cfg.Audit.Enabled() || cfg.Notify.Enabled() {
		t.Error("expected audit mirroring and notifications off by default")
	}
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	wantDB := filepath.Join(home, ".clawdesk", "clawdesk.db")
	if cfg.Paths.DBPath != wantDB {
		t.Errorf("expected db path %s, got %s", wantDB, cfg.Paths.DBPath)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, `{
		"gateway": {"port": 9999},
		"engine": {"historyWindow": 8, "demoSetup": false},
		"providers": {"anthropic": {"defaultModel": "claude-haiku"}}
	}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gateway.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Gateway.Port)
	}
	if cfg.Engine.HistoryWindow != 8 || cfg.Engine.DemoSetup {
		t.Errorf("unexpected engine config %+v", cfg.Engine)
	}
	if cfg.Providers.Anthropic.DefaultModel != "claude-haiku" {
		t.Errorf("unexpected anthropic model %q", cfg.Providers.Anthropic.DefaultModel)
	}
	if cfg.Providers.OpenAI.DefaultModel != "gpt-4o-mini" {
		t.Errorf("expected untouched groups to keep defaults, got %q", cfg.Providers.OpenAI.DefaultModel)
	}
}

func TestLoadIncludeAndEnvSubstitution(t *testing.T) {
	home := isolate(t)
	t.Setenv("CLAWDESK_TEST_CHANNEL", "C123")
	dir := filepath.Join(home, ConfigDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notify.json"),
		[]byte(`{"notify": {"slackChannel": "${CLAWDESK_TEST_CHANNEL}", "slackToken": "xoxb-1"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, home, `{"$include": "notify.json", "gateway": {"port": 18801}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Notify.SlackChannel != "C123" || !cfg.Notify.Enabled() {
		t.Errorf("expected included notify config, got %+v", cfg.Notify)
	}
	if cfg.Gateway.Port != 18801 {
		t.Errorf("expected port 18801, got %d", cfg.Gateway.Port)
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, `{"$include": "config.json"}`)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected include cycle error for %s, got %v", path, err)
	}
}

func TestEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("CLAWDESK_GATEWAY_HOST", "0.0.0.0")
	t.Setenv("CLAWDESK_GATEWAY_PORT", "8080")
	t.Setenv("CLAWDESK_ENGINE_SETUP_STEP_DELAY", "0s")
	t.Setenv("CLAWDESK_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gateway.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0 from env, got %s", cfg.Gateway.Host)
	}
	if cfg.Gateway.Port != 8080 {
		t.Errorf("expected port 8080 from env, got %d", cfg.Gateway.Port)
	}
	if cfg.Engine.SetupStepDelay != 0 {
		t.Errorf("expected zero step delay, got %v", cfg.Engine.SetupStepDelay)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected normalized log level, got %q", cfg.Log.Level)
	}
}

func TestUnprefixedEnvIsIgnored(t *testing.T) {
	home := isolate(t)
	for k, v := range map[string]string{
		"HOST":       "0.0.0.0",
		"PORT":       "5432",
		"LEVEL":      "debug",
		"BINARY":     "/tmp/evil",
		"DB_PATH":    "/tmp/other.db",
		"DATA_DIR":   "/tmp/other",
		"API_BASE":   "http://attacker.invalid",
		"AUTH_TOKEN": "x",
	} {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := DefaultConfig()
	if cfg.Gateway.Host != want.Gateway.Host || cfg.Gateway.Port != want.Gateway.Port || cfg.Gateway.AuthToken != "" {
		t.Errorf("bare env changed gateway config: %+v", cfg.Gateway)
	}
	if cfg.Log.Level != want.Log.Level {
		t.Errorf("bare LEVEL changed log level to %q", cfg.Log.Level)
	}
	if cfg.OpenClaw.Binary != want.OpenClaw.Binary {
		t.Errorf("bare BINARY changed openclaw binary to %q", cfg.OpenClaw.Binary)
	}
	if cfg.Paths.DataDir != filepath.Join(home, ".clawdesk") || cfg.Paths.DBPath != filepath.Join(home, ".clawdesk", "clawdesk.db") {
		t.Errorf("bare path env changed paths: %+v", cfg.Paths)
	}
	if cfg.Providers.OpenAI.APIBase != want.Providers.OpenAI.APIBase {
		t.Errorf("bare API_BASE changed endpoint to %q", cfg.Providers.OpenAI.APIBase)
	}
}

func TestPrefixedMultiWordEnvKeys(t *testing.T) {
	isolate(t)
	t.Setenv("CLAWDESK_PATHS_DB_PATH", filepath.Join(t.TempDir(), "x.db"))
	t.Setenv("CLAWDESK_ANTHROPIC_MAX_TOKENS", "2048")
	t.Setenv("CLAWDESK_OPENCLAW_INSTALL_PACKAGE", "openclaw@1.2.3")
	t.Setenv("CLAWDESK_GATEWAY_AUTH_TOKEN", "tok")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !strings.HasSuffix(cfg.Paths.DBPath, "x.db") {
		t.Errorf("expected db path from env, got %q", cfg.Paths.DBPath)
	}
	if cfg.Providers.Anthropic.MaxTokens != 2048 {
		t.Errorf("expected anthropic max tokens 2048, got %d", cfg.Providers.Anthropic.MaxTokens)
	}
	if cfg.OpenClaw.InstallPackage != "openclaw@1.2.3" || cfg.Gateway.AuthToken != "tok" {
		t.Errorf("unexpected overrides: %+v %+v", cfg.OpenClaw, cfg.Gateway)
	}
}

func TestConfigPathOverrides(t *testing.T) {
	isolate(t)
	explicit := filepath.Join(t.TempDir(), "custom.json")
	t.Setenv("CLAWDESK_CONFIG", explicit)
	if got, _ := ConfigPath(); got != explicit {
		t.Fatalf("expected explicit config path, got %s", got)
	}

	t.Setenv("CLAWDESK_CONFIG", "")
	altHome := t.TempDir()
	t.Setenv("CLAWDESK_HOME", altHome)
	if got, _ := ConfigPath(); got != filepath.Join(altHome, ConfigDir, ConfigFile) {
		t.Fatalf("expected CLAWDESK_HOME to move config, got %s", got)
	}
}

func TestSaveRoundTripWithPrivatePermissions(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	cfg.Gateway.Port = 19000
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	path, _ := ConfigPath()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600, got %o", perm)
	}
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Gateway.Port != 19000 {
		t.Errorf("expected saved port, got %d", loaded.Gateway.Port)
	}
}
