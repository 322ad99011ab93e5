package cli

import (
	"fmt"

	"github.com/clawdesk/clawdesk/internal/timeline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the execution log, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.store.GetLogs(cmd.Context(), logsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(out, "%s %-7s %-8s %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				statusLabel(e.Status), truncate(e.AgentID, 8), e.Action)
			if e.Error != "" {
				fmt.Fprintf(out, "    %s\n", color.RedString(e.Error))
			}
		}
		return nil
	},
}

func statusLabel(s timeline.LogStatus) string {
	switch s {
	case timeline.LogSuccess:
		return color.GreenString(string(s))
	case timeline.LogError:
		return color.RedString(string(s))
	}
	return string(s)
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "Number of entries")
	rootCmd.AddCommand(logsCmd)
}
