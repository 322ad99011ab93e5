// Package tools runs external programs on behalf of the desk.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// DenyPatterns contains regex patterns for command lines that are never run.
var DenyPatterns = []string{
	`\brm\s+(-[rf]+\s+)*[/~]`, // rm with root or home
	`\brm\s+-rf\b`,            // rm -rf anywhere
	`\bdd\b.*\bof=/dev/`,      // dd to device
	`\bmkfs\b`,                // filesystem format
	`>\s*/dev/`,               // redirect to device
	`\bchmod\s+-R\s+777\b`,    // chmod 777 recursive
	`\bshutdown\b`,            // shutdown
	`\breboot\b`,              // reboot
	`[;&|]\s*(sh|bash|zsh)\b`, // chained shell
}

// ErrCommandBlocked is returned when a command line matches a deny pattern.
var ErrCommandBlocked = errors.New("command blocked by policy")

// Result is the outcome of one program run. The caller decides on Success
// only; Stdout and Stderr are kept for the audit trail.
type Result struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Runner executes programs directly, without a shell.
type Runner struct {
	Timeout     time.Duration
	Dir         string
	denyRegexes []*regexp.Regexp
}

// NewRunner creates a Runner. A zero timeout means 60s.
func NewRunner(timeout time.Duration) *Runner {
	denyRegexes := make([]*regexp.Regexp, 0, len(DenyPatterns))
	for _, pattern := range DenyPatterns {
		if re, err := regexp.Compile(`(?i)` + pattern); err == nil {
			denyRegexes = append(denyRegexes, re)
		}
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Runner{Timeout: timeout, denyRegexes: denyRegexes}
}

// RunCommand runs program with args and waits for it to exit. The returned
// error is non-nil only when the command was refused before it started;
// launch failures, non-zero exits and timeouts are reported in Result.
func (r *Runner) RunCommand(ctx context.Context, program string, args ...string) (Result, error) {
	if strings.TrimSpace(program) == "" {
		return Result{ExitCode: -1}, fmt.Errorf("program is required")
	}
	if err := r.guardCommand(program, args); err != nil {
		return Result{ExitCode: -1}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, program, args...)
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		res.Stderr = strings.TrimSpace(res.Stderr + fmt.Sprintf("\ncommand timed out after %v", r.Timeout))
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Stderr = strings.TrimSpace(res.Stderr + "\n" + err.Error())
		}
		return res, nil
	}
	res.Success = true
	return res, nil
}

func (r *Runner) guardCommand(program string, args []string) error {
	line := strings.Join(append([]string{program}, args...), " ")
	for _, re := range r.denyRegexes {
		if re.MatchString(line) {
			return fmt.Errorf("%w: %s", ErrCommandBlocked, program)
		}
	}
	return nil
}
