// Package clinst drives the OpenClaw CLI: version check, install, onboarding
// and gateway start.
package clinst

import (
	"context"
	"fmt"
	"strings"

	"github.com/clawdesk/clawdesk/internal/tools"
)

// CommandRunner runs one external program.
type CommandRunner interface {
	RunCommand(ctx context.Context, program string, args ...string) (tools.Result, error)
}

// OpenClaw wraps the openclaw binary and its npm installer.
type OpenClaw struct {
	runner         CommandRunner
	binary         string
	installPackage string
}

// New creates an OpenClaw collaborator. Empty binary and package fall back to
// "openclaw" and "openclaw@latest".
func New(runner CommandRunner, binary, installPackage string) *OpenClaw {
	if binary == "" {
		binary = "openclaw"
	}
	if installPackage == "" {
		installPackage = "openclaw@latest"
	}
	return &OpenClaw{runner: runner, binary: binary, installPackage: installPackage}
}

// Version returns the installed version string.
func (o *OpenClaw) Version(ctx context.Context) (string, error) {
	res, err := o.run(ctx, "version check", o.binary, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Install installs the CLI globally via npm.
func (o *OpenClaw) Install(ctx context.Context) error {
	_, err := o.run(ctx, "install", "npm", "install", "-g", o.installPackage)
	return err
}

// Onboard runs the non-interactive onboarding flow.
func (o *OpenClaw) Onboard(ctx context.Context) error {
	_, err := o.run(ctx, "onboard", o.binary, "onboard", "--non-interactive")
	return err
}

// StartGateway starts the OpenClaw gateway daemon.
func (o *OpenClaw) StartGateway(ctx context.Context) error {
	_, err := o.run(ctx, "start gateway", o.binary, "gateway", "start")
	return err
}

func (o *OpenClaw) run(ctx context.Context, step, program string, args ...string) (tools.Result, error) {
	res, err := o.runner.RunCommand(ctx, program, args...)
	if err != nil {
		return res, fmt.Errorf("openclaw %s: %w", step, err)
	}
	if !res.Success {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		return res, fmt.Errorf("openclaw %s: %s", step, detail)
	}
	return res, nil
}
