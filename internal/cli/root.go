package cli

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/clawdesk/clawdesk/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"   ____ _                ____            _\n" +
		"  / ___| | __ ___      _|  _ \\  ___  ___| | __\n" +
		" | |   | |/ _` \\ \\ /\\ / / | | |/ _ \\/ __| |/ /\n" +
		" | |___| | (_| |\\ V  V /| |_| |  __/\\__ \\   <\n" +
		"  \\____|_|\\__,_| \\_/\\_/ |____/ \\___||___/_|\\_\\\n"
)

var rootCmd = &cobra.Command{
	Use:   "clawdesk",
	Short: "ClawDesk - OpenClaw automation desk",
	Long:  color.CyanString(logo) + "\nSet up OpenClaw, draft automation agents and approve what they do.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var logLevelFlag string

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
}

// setupLogging installs the default slog handler. The flag wins over config.
func setupLogging() {
	level := logLevelFlag
	if level == "" {
		if cfg, err := loadConfig(); err == nil {
			level = cfg.Log.Level
		}
	}
	var lv slog.Level
	switch level {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})))
}
