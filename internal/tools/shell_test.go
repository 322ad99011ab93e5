package tools

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunCommandCapturesOutput(t *testing.T) {
	r := NewRunner(5 * time.Second)

	res, err := r.RunCommand(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("RunCommand() error: %v", err)
	}
	if !res.Success || res.ExitCode != 0 {
		t.Fatalf("expected success, got %+v", res)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("expected 'hello', got %q", res.Stdout)
	}
}

func TestRunCommandNonZeroExit(t *testing.T) {
	r := NewRunner(5 * time.Second)

	res, err := r.RunCommand(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	if err != nil {
		t.Fatalf("RunCommand() error: %v", err)
	}
	if res.Success || res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %+v", res)
	}
	if !strings.Contains(res.Stderr, "boom") {
		t.Errorf("expected stderr to be kept, got %q", res.Stderr)
	}
}

func TestRunCommandMissingProgram(t *testing.T) {
	r := NewRunner(5 * time.Second)

	res, err := r.RunCommand(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("launch failures belong in the result, got error %v", err)
	}
	if res.Success || res.ExitCode != -1 || res.Stderr == "" {
		t.Fatalf("unexpected result for missing program: %+v", res)
	}
}

func TestRunCommandTimeout(t *testing.T) {
	r := NewRunner(100 * time.Millisecond)

	res, err := r.RunCommand(context.Background(), "sleep", "10")
	if err != nil {
		t.Fatalf("RunCommand() error: %v", err)
	}
	if res.Success || !strings.Contains(res.Stderr, "timed out") {
		t.Errorf("expected timeout, got %+v", res)
	}
}

func TestRunCommandDenyPatterns(t *testing.T) {
	r := NewRunner(time.Second)

	blocked := [][]string{
		{"rm", "-rf", "/"},
		{"mkfs", "/dev/sda1"},
		{"shutdown", "now"},
		{"npm", "install", "-g", "x;", "bash"},
	}
	for _, argv := range blocked {
		_, err := r.RunCommand(context.Background(), argv[0], argv[1:]...)
		if !errors.Is(err, ErrCommandBlocked) {
			t.Errorf("%v: expected ErrCommandBlocked, got %v", argv, err)
		}
	}
	if _, err := r.RunCommand(context.Background(), "  "); err == nil {
		t.Error("expected error for empty program")
	}
}

func TestRunCommandWorkingDir(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(time.Second)
	r.Dir = dir

	res, err := r.RunCommand(context.Background(), "pwd")
	if err != nil || !res.Success {
		t.Fatalf("pwd failed: %+v %v", res, err)
	}
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
