package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFileParsesAndRespectsExistingValues(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "env")
	content := `
# comment
export CLAWDESK_TEST_FOO=bar
CLAWDESK_TEST_QUOTED="hello world"
CLAWDESK_TEST_SINGLE='x y'
INVALID_LINE
=nokey
`
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CLAWDESK_TEST_FOO", "existing")
	t.Setenv("CLAWDESK_TEST_QUOTED", "")
	os.Unsetenv("CLAWDESK_TEST_QUOTED")
	t.Setenv("CLAWDESK_TEST_SINGLE", "")
	os.Unsetenv("CLAWDESK_TEST_SINGLE")

	n, err := loadEnvFile(envPath)
	if err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 variables set, got %d", n)
	}
	if got := os.Getenv("CLAWDESK_TEST_FOO"); got != "existing" {
		t.Fatalf("expected existing value preserved, got %q", got)
	}
	if got := os.Getenv("CLAWDESK_TEST_QUOTED"); got != "hello world" {
		t.Fatalf("expected double quotes stripped, got %q", got)
	}
	if got := os.Getenv("CLAWDESK_TEST_SINGLE"); got != "x y" {
		t.Fatalf("expected single quotes stripped, got %q", got)
	}
}

func TestLoadEnvFileCandidatesFromExplicitPath(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "clawdesk.env")
	if err := os.WriteFile(envPath, []byte("CLAWDESK_EXPLICIT_KEY=42\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CLAWDESK_ENV_FILE", envPath)
	t.Setenv("CLAWDESK_EXPLICIT_KEY", "")
	os.Unsetenv("CLAWDESK_EXPLICIT_KEY")

	LoadEnvFileCandidates()

	if got := os.Getenv("CLAWDESK_EXPLICIT_KEY"); got != "42" {
		t.Fatalf("expected key loaded from explicit env file, got %q", got)
	}
}

func TestUnquote(t *testing.T) {
	cases := map[string]string{
		`"a"`:  "a",
		`'b'`:  "b",
		`"c'`:  `"c'`,
		`"`:    `"`,
		"":     "",
		"bare": "bare",
	}
	for in, want := range cases {
		if got := unquote(in); got != want {
			t.Errorf("unquote(%q) = %q, want %q", in, got, want)
		}
	}
}
