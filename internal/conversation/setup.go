package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clawdesk/clawdesk/internal/timeline"
)

// setupStep is one stage of the OpenClaw setup sequence.
type setupStep struct {
	title  string
	action string
	done   string // user text on success
	run    func(ctx context.Context, in Installer) (detail string, err error)
}

var setupSteps = []setupStep{
	{
		title:  "System check",
		action: "OpenClaw setup: system check",
		done:   "Node.js and npm are available",
		run: func(ctx context.Context, in Installer) (string, error) {
			v, err := in.Version(ctx)
			if err != nil {
				return "", err
			}
			return "found openclaw " + v, nil
		},
	},
	{
		title:  "Install",
		action: "OpenClaw setup: install",
		done:   "OpenClaw CLI installed",
		run: func(ctx context.Context, in Installer) (string, error) {
			return "", in.Install(ctx)
		},
	},
	{
		title:  "Onboarding",
		action: "OpenClaw setup: onboarding",
		done:   "Onboarding complete",
		run: func(ctx context.Context, in Installer) (string, error) {
			return "", in.Onboard(ctx)
		},
	},
	{
		title:  "Gateway",
		action: "OpenClaw setup: gateway start",
		done:   "Gateway started",
		run: func(ctx context.Context, in Installer) (string, error) {
			return "", in.StartGateway(ctx)
		},
	},
}

// runSetup performs every setup step and returns the user-facing report.
// With DemoSetup every step reads as successful; the execution log always
// records what really happened. The caller holds e.mu.
func (e *Engine) runSetup(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("Setting up OpenClaw...\n\n")

	failed := 0
	for i, step := range setupSteps {
		if i > 0 && e.setupStepDelay > 0 {
			sleep(ctx, e.setupStepDelay)
		}

		detail, err := step.run(ctx, e.installer)
		entry := &timeline.ExecutionLog{
			AgentID: timeline.SystemAgentID,
			Action:  step.action,
			Status:  timeline.LogSuccess,
			Output:  detail,
		}
		if err != nil {
			failed++
			entry.Status = timeline.LogInfo
			entry.Error = err.Error()
			slog.Warn("Setup step failed", "step", step.title, "error", err)
		}
		if _, lerr := e.store.AddLog(ctx, entry); lerr != nil {
			slog.Warn("Setup step not logged", "step", step.title, "error", lerr)
		}

		if err != nil && !e.demoSetup {
			fmt.Fprintf(&b, "%d. **%s** - failed: %v\n", i+1, step.title, err)
			continue
		}
		fmt.Fprintf(&b, "%d. **%s** - %s\n", i+1, step.title, step.done)
	}

	final := &timeline.ExecutionLog{
		AgentID: timeline.SystemAgentID,
		Action:  "OpenClaw setup completed",
		Status:  timeline.LogSuccess,
		Output:  fmt.Sprintf("%d of %d steps succeeded", len(setupSteps)-failed, len(setupSteps)),
	}
	if failed > 0 {
		final.Status = timeline.LogInfo
	}
	if _, err := e.store.AddLog(ctx, final); err != nil {
		slog.Warn("Setup completion not logged", "error", err)
	}
	slog.Info("OpenClaw setup finished", "failed_steps", failed, "demo", e.demoSetup)

	b.WriteString("\n")
	if failed > 0 && !e.demoSetup {
		b.WriteString(template(tmplSetupProblems))
	} else {
		b.WriteString(template(tmplSetupSummary))
	}
	return b.String()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
