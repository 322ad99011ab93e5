package cli

import (
	"fmt"
	"os"

	"github.com/clawdesk/clawdesk/internal/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader(cmd.OutOrStdout(), "🏷️ ClawDesk Version")
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show desk status",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		printHeader(out, "📊 ClawDesk Status")
		fmt.Fprintf(out, "Version: %s\n", version)

		if path, err := config.ConfigPath(); err == nil {
			if _, err := os.Stat(path); err == nil {
				printCheck(out, true, "Config", path)
			} else {
				printCheck(out, false, "Config", "not found, using defaults ("+path+")")
			}
		}

		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			printCheck(out, false, "Database", err.Error())
			return nil
		}
		defer a.Close()
		printCheck(out, true, "Database", a.cfg.Paths.DBPath)

		ctx := cmd.Context()
		mode := string(a.engine.Mode())
		if m := a.engine.Model(); m != "" {
			mode += " (" + m + ")"
		}
		fmt.Fprintf(out, "Provider: %s\n", mode)

		agentList, err := a.store.ListAgents(ctx)
		if err != nil {
			return err
		}
		pending, err := a.approvals.ListPending(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Agents:   %d\n", len(agentList))
		fmt.Fprintf(out, "Pending:  %d approval(s)\n", len(pending))
		printCheck(out, a.cfg.Audit.Enabled(), "Audit", a.cfg.Audit.KafkaTopic)
		printCheck(out, a.cfg.Notify.Enabled(), "Slack", a.cfg.Notify.SlackChannel)
		return nil
	},
}
