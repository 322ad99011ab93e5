package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	providerKey   string
	providerModel string
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Show or switch the conversation backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()
		printProvider(cmd, a)
		return nil
	},
}

var providerSetCmd = &cobra.Command{
	Use:   "set <openai|anthropic>",
	Short: "Use a remote backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.engine.SwitchProvider(cmd.Context(), args[0], providerKey, providerModel); err != nil {
			return err
		}
		printProvider(cmd, a)
		return nil
	},
}

var providerLocalCmd = &cobra.Command{
	Use:   "local",
	Short: "Use the built-in rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer a.Close()
		a.engine.SwitchToLocal(cmd.Context())
		printProvider(cmd, a)
		return nil
	},
}

func printProvider(cmd *cobra.Command, a *app) {
	fmt.Fprintf(cmd.OutOrStdout(), "Provider: %s\n", a.engine.Mode())
	if m := a.engine.Model(); m != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Model:    %s\n", m)
	}
}

func init() {
	providerSetCmd.Flags().StringVar(&providerKey, "key", "", "API key")
	providerSetCmd.Flags().StringVar(&providerModel, "model", "", "Model (default from config)")
	providerCmd.AddCommand(providerSetCmd, providerLocalCmd)
	rootCmd.AddCommand(providerCmd)
}
