package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/clawdesk/clawdesk/internal/approval"
	"github.com/clawdesk/clawdesk/internal/timeline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var approvalsAll bool

var approvalsCmd = &cobra.Command{
	Use:     "approvals",
	Aliases: []string{"approval"},
	Short:   "Review queued actions",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending approvals (--all for history)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		var items []timeline.ApprovalItem
		if approvalsAll {
			items, err = a.approvals.List(cmd.Context())
		} else {
			items, err = a.approvals.ListPending(cmd.Context())
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "Nothing waiting for approval.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tPREVIEW")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.ActionType, it.Status, truncate(it.ContentPreview, 60))
		}
		return tw.Flush()
	},
}

func resolveCommand(use, short string, approved bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.approvals.Resolve(cmd.Context(), args[0], approval.DecisionFor(approved))
			out := cmd.OutOrStdout()
			if errors.Is(err, approval.ErrLogWriteFailed) {
				fmt.Fprintln(out, color.YellowString("warning: %v", err))
				err = nil
			}
			if err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}
			fmt.Fprintf(out, "%s %s -> %s\n", color.GreenString("✓"), res.Item.ID, res.Item.Status)
			fmt.Fprintln(out, res.Report)
			return nil
		},
	}
}

func init() {
	approvalsListCmd.Flags().BoolVar(&approvalsAll, "all", false, "Include resolved items")
	approvalsCmd.AddCommand(
		approvalsListCmd,
		resolveCommand("approve", "Approve a queued action", true),
		resolveCommand("reject", "Reject a queued action", false),
	)
	rootCmd.AddCommand(approvalsCmd)
}
