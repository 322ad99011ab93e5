package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".clawdesk"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("CLAWDESK_CONFIG")); explicit != "" {
		return expandTilde(explicit)
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("CLAWDESK_HOME")); h != "" {
		return expandTilde(h)
	}
	return os.UserHomeDir()
}

func expandTilde(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	base, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, p[1:]), nil
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load process env vars from ~/.config/clawdesk/env (and fallbacks) first.
	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}

	data, err := loadResolvedConfig(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Override with environment variables for each group. Fields use
	// split_words instead of envconfig tags so only the prefixed name is read;
	// a tag would also make envconfig accept the bare name (HOST, PORT, ...).
	groups := []struct {
		prefix string
		spec   any
	}{
		{"CLAWDESK_PATHS", &cfg.Paths},
		{"CLAWDESK_GATEWAY", &cfg.Gateway},
		{"CLAWDESK_OPENAI", &cfg.Providers.OpenAI},
		{"CLAWDESK_ANTHROPIC", &cfg.Providers.Anthropic},
		{"CLAWDESK_ENGINE", &cfg.Engine},
		{"CLAWDESK_OPENCLAW", &cfg.OpenClaw},
		{"CLAWDESK_AUDIT", &cfg.Audit},
		{"CLAWDESK_NOTIFY", &cfg.Notify},
		{"CLAWDESK_LOG", &cfg.Log},
	}
	for _, g := range groups {
		if err := envconfig.Process(g.prefix, g.spec); err != nil {
			return nil, fmt.Errorf("env %s: %w", g.prefix, err)
		}
	}

	if cfg.Paths.DataDir == "" {
		cfg.Paths.DataDir = DefaultConfig().Paths.DataDir
	}
	cfg.Paths.DataDir, _ = expandTilde(cfg.Paths.DataDir)
	if cfg.Paths.DBPath == "" {
		cfg.Paths.DBPath = filepath.Join(cfg.Paths.DataDir, "clawdesk.db")
	}
	cfg.Paths.DBPath, _ = expandTilde(cfg.Paths.DBPath)

	if cfg.Engine.HistoryWindow <= 0 {
		cfg.Engine.HistoryWindow = 20
	}
	if cfg.Engine.RemoteTimeout <= 0 {
		cfg.Engine.RemoteTimeout = DefaultConfig().Engine.RemoteTimeout
	}
	if cfg.Engine.SetupStepDelay < 0 {
		cfg.Engine.SetupStepDelay = 0
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	return cfg, nil
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// EnsureDir ensures a directory exists with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// loadResolvedConfig returns the JSON of path with "$include" files merged
// underneath it and ${VAR} references expanded.
func loadResolvedConfig(path string) ([]byte, error) {
	obj, err := (&includeResolver{open: map[string]bool{}}).load(path)
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// includeResolver tracks the files on the current include chain.
type includeResolver struct {
	open map[string]bool
}

func (r *includeResolver) load(path string) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if r.open[abs] {
		return nil, fmt.Errorf("config include cycle detected at %s", abs)
	}
	r.open[abs] = true
	defer delete(r.open, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}

	includes, err := includeList(doc["$include"])
	if err != nil {
		return nil, err
	}
	delete(doc, "$include")

	out := map[string]any{}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		child, err := r.load(inc)
		if err != nil {
			return nil, err
		}
		mergeInto(out, child)
	}
	expandEnv(doc)
	mergeInto(out, doc)
	return out, nil
}

// includeList accepts a single path or a list of paths.
func includeList(v any) ([]string, error) {
	var raw []any
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []any{t}
	case []any:
		raw = t
	default:
		return nil, fmt.Errorf("$include must be a string or array of strings")
	}
	var paths []string
	for _, item := range raw {
		p, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("$include entries must be strings")
		}
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// mergeInto copies src over dst, descending into nested objects.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		sub, isObj := v.(map[string]any)
		if !isObj {
			dst[k] = v
			continue
		}
		target, ok := dst[k].(map[string]any)
		if !ok {
			target = map[string]any{}
			dst[k] = target
		}
		mergeInto(target, sub)
	}
}

// expandEnv replaces ${VAR} in every string value. Unset variables are left
// as written.
func expandEnv(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = expandEnv(item)
		}
	case []any:
		for i, item := range t {
			t[i] = expandEnv(item)
		}
	case string:
		return envRef.ReplaceAllStringFunc(t, func(ref string) string {
			if val, ok := os.LookupEnv(envRef.FindStringSubmatch(ref)[1]); ok {
				return val
			}
			return ref
		})
	}
	return v
}
