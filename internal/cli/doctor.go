package cli

import (
	"fmt"
	"os"

	"github.com/clawdesk/clawdesk/internal/config"
	"github.com/spf13/cobra"
)

type doctorCheck struct {
	name    string
	status  string
	message string
}

const (
	doctorPass = "PASS"
	doctorWarn = "WARN"
	doctorFail = "FAIL"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run config and setup diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var checks []doctorCheck

		path, err := config.ConfigPath()
		switch {
		case err != nil:
			checks = append(checks, doctorCheck{"config", doctorFail, err.Error()})
		default:
			if _, err := os.Stat(path); err != nil {
				checks = append(checks, doctorCheck{"config", doctorWarn, "no file at " + path + ", using defaults"})
			} else {
				checks = append(checks, doctorCheck{"config", doctorPass, path})
			}
		}

		a, err := openApp(ctx, nil)
		if err != nil {
			checks = append(checks, doctorCheck{"database", doctorFail, err.Error()})
		} else {
			defer a.Close()
			checks = append(checks, doctorCheck{"database", doctorPass, a.cfg.Paths.DBPath})
			if v, err := a.openclaw.Version(ctx); err != nil {
				checks = append(checks, doctorCheck{"openclaw", doctorWarn, "not installed (ask the desk to set it up): " + err.Error()})
			} else {
				checks = append(checks, doctorCheck{"openclaw", doctorPass, v})
			}
			if a.cfg.Gateway.AuthToken == "" && a.cfg.Gateway.Host != "127.0.0.1" && a.cfg.Gateway.Host != "localhost" {
				checks = append(checks, doctorCheck{"gateway", doctorWarn, "non-loopback host without auth token"})
			} else {
				checks = append(checks, doctorCheck{"gateway", doctorPass, fmt.Sprintf("%s:%d", a.cfg.Gateway.Host, a.cfg.Gateway.Port)})
			}
		}

		failures := 0
		for _, c := range checks {
			if c.status == doctorFail {
				failures++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", c.status, c.name, c.message)
		}
		if failures > 0 {
			return fmt.Errorf("doctor found %d failing check(s)", failures)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
