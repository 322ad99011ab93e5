package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/clawdesk/clawdesk/internal/dispatch"
	"github.com/clawdesk/clawdesk/internal/timeline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	agentName     string
	agentRole     string
	agentGoal     string
	agentTools    []string
	agentSchedule string
	agentSandbox  bool
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage automation agents",
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.store.ListAgents(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "No agents yet. Try 'clawdesk preset create trending'.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTOOLS\tSCHEDULE\tSANDBOX")
		for _, ag := range list {
			schedule := ag.Schedule
			if schedule == "" {
				schedule = "manual"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", ag.ID, truncate(ag.Name, 32),
				strings.Join(ag.Tools, ","), schedule, ag.Sandbox)
		}
		return tw.Flush()
	},
}

var agentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := a.agents.Create(cmd.Context(), &timeline.Agent{
			Name:     agentName,
			Role:     agentRole,
			Goal:     agentGoal,
			Tools:    agentTools,
			Schedule: agentSchedule,
			Sandbox:  agentSandbox,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Created agent %s (%s)\n", color.GreenString("✓"), created.Name, created.ID)
		return nil
	},
}

var agentDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.agents.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted agent %s\n", args[0])
		return nil
	},
}

var agentRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Run an agent once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ag, err := a.store.GetAgent(ctx, args[0])
		if err != nil {
			return fmt.Errorf("agent %s: %w", args[0], err)
		}
		res := a.dispatcher.Dispatch(ctx, ag, dispatch.TriggerManual)
		out := cmd.OutOrStdout()
		if res.Failed {
			return fmt.Errorf("run %s: %s", ag.Name, res.Report)
		}
		fmt.Fprintf(out, "Path: %s\n", res.Path)
		if res.ApprovalID != "" {
			fmt.Fprintf(out, "Approval: %s\n", res.ApprovalID)
		}
		fmt.Fprintln(out, res.Report)
		return nil
	},
}

func init() {
	f := agentCreateCmd.Flags()
	f.StringVar(&agentName, "name", "", "Agent name")
	f.StringVar(&agentRole, "role", "", "What the agent is")
	f.StringVar(&agentGoal, "goal", "", "What the agent should achieve")
	f.StringSliceVar(&agentTools, "tools", nil, "Capability tags (browser, cron, ...)")
	f.StringVar(&agentSchedule, "schedule", "", "Cron expression (empty = manual)")
	f.BoolVar(&agentSandbox, "sandbox", false, "Dry-run only")
	_ = agentCreateCmd.MarkFlagRequired("name")

	agentCmd.AddCommand(agentListCmd, agentCreateCmd, agentDeleteCmd, agentRunCmd)
	rootCmd.AddCommand(agentCmd)
}
