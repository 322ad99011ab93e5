package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFileCandidates loads KEY=VALUE pairs from CLAWDESK_ENV_FILE,
// ~/.config/clawdesk/env and ~/.clawdesk/env in that order.
// Variables already present in the process environment are never overridden.
func LoadEnvFileCandidates() {
	var candidates []string
	if explicit := strings.TrimSpace(os.Getenv("CLAWDESK_ENV_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".config", "clawdesk", "env"),
			filepath.Join(home, ConfigDir, "env"),
		)
	}
	seen := make(map[string]bool, len(candidates))
	for _, p := range candidates {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		_, _ = loadEnvFile(p)
	}
}

// loadEnvFile applies one env file and returns how many variables it set.
func loadEnvFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	set := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if os.Setenv(key, unquote(strings.TrimSpace(val))) == nil {
			set++
		}
	}
	return set, sc.Err()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
