package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/clawdesk/clawdesk/internal/bus"
	"github.com/clawdesk/clawdesk/internal/gateway"
	"github.com/spf13/cobra"
)

var (
	gatewayHost string
	gatewayPort int
)

// gatewaySignalContext is replaced in tests.
var gatewaySignalContext = func(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve the desk API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := gatewaySignalContext(cmd.Context())
		defer stop()

		events := bus.New(256)
		a, err := openApp(ctx, events)
		if err != nil {
			return err
		}
		defer a.Close()

		host := a.cfg.Gateway.Host
		if gatewayHost != "" {
			host = gatewayHost
		}
		port := a.cfg.Gateway.Port
		if cmd.Flags().Changed("port") {
			port = gatewayPort
		}

		printHeader(cmd.OutOrStdout(), "🌐 ClawDesk Gateway")
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s:%d (Ctrl+C to stop)\n", host, port)
		if a.cfg.Gateway.AuthToken == "" && host != "127.0.0.1" && host != "localhost" {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: gateway exposed without an auth token")
		}

		h := gateway.New(gateway.Deps{
			Store:      a.store,
			Engine:     a.engine,
			Sessions:   a.sessions,
			Agents:     a.agents,
			Dispatcher: a.dispatcher,
			Approvals:  a.approvals,
			Events:     events,
			Version:    version,
			AuthToken:  a.cfg.Gateway.AuthToken,
		})
		return h.Run(ctx, host, port)
	},
}

func init() {
	gatewayCmd.Flags().StringVar(&gatewayHost, "host", "", "Listen host (default from config)")
	gatewayCmd.Flags().IntVar(&gatewayPort, "port", 0, "Listen port (default from config, 0 picks a free port)")
	rootCmd.AddCommand(gatewayCmd)
}
