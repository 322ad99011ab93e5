package clinst

import (
	"context"
	"strings"
	"testing"

	"github.com/clawdesk/clawdesk/internal/tools"
	"github.com/google/go-cmp/cmp"
)

type recordingRunner struct {
	calls   [][]string
	results map[string]tools.Result
}

func (r *recordingRunner) RunCommand(_ context.Context, program string, args ...string) (tools.Result, error) {
	r.calls = append(r.calls, append([]string{program}, args...))
	if res, ok := r.results[program]; ok {
		return res, nil
	}
	return tools.Result{Success: true}, nil
}

func TestOpenClawCommands(t *testing.T) {
	runner := &recordingRunner{results: map[string]tools.Result{
		"openclaw": {Success: true, Stdout: "openclaw 1.4.2\n"},
	}}
	oc := New(runner, "", "")
	ctx := context.Background()

	v, err := oc.Version(ctx)
	if err != nil || v != "openclaw 1.4.2" {
		t.Fatalf("Version() = %q, %v", v, err)
	}
	if err := oc.Install(ctx); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := oc.Onboard(ctx); err != nil {
		t.Fatalf("Onboard: %v", err)
	}
	if err := oc.StartGateway(ctx); err != nil {
		t.Fatalf("StartGateway: %v", err)
	}

	want := [][]string{
		{"openclaw", "--version"},
		{"npm", "install", "-g", "openclaw@latest"},
		{"openclaw", "onboard", "--non-interactive"},
		{"openclaw", "gateway", "start"},
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenClawFailureCarriesStderr(t *testing.T) {
	runner := &recordingRunner{results: map[string]tools.Result{
		"npm": {Success: false, ExitCode: 243, Stderr: "EACCES: permission denied"},
		"oc":  {Success: false, ExitCode: 2},
	}}
	oc := New(runner, "oc", "")

	err := oc.Install(context.Background())
	if err == nil || !strings.Contains(err.Error(), "EACCES") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	err = oc.StartGateway(context.Background())
	if err == nil || !strings.Contains(err.Error(), "exit code 2") {
		t.Fatalf("expected exit code in error, got %v", err)
	}
}
