package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/clawdesk/clawdesk/internal/presets"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Agent templates",
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in agent templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tNAME\tTOOLS\tSCHEDULE")
		for _, p := range presets.All() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Key, p.Name, strings.Join(p.Tools, ","), p.Schedule)
		}
		return tw.Flush()
	},
}

var presetCreateCmd = &cobra.Command{
	Use:   "create <key>",
	Short: "Create an agent from a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := presets.Get(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := a.agents.Create(cmd.Context(), p.Agent())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Created agent %s (%s)\n", color.GreenString("✓"), created.Name, created.ID)
		return nil
	},
}

func init() {
	presetCmd.AddCommand(presetListCmd, presetCreateCmd)
	rootCmd.AddCommand(presetCmd)
}
