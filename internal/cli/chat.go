package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/clawdesk/clawdesk/internal/session"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	chatMessage string
	chatSession string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the desk (one-shot with -m, interactive otherwise)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := resumeSession(ctx, a, chatSession); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if chatMessage != "" {
			return chatTurn(ctx, a, out, chatMessage)
		}

		printHeader(out, "💬 ClawDesk Chat")
		fmt.Fprintln(out, session.WelcomeMessage)
		fmt.Fprintln(out, "Type 'exit' to quit.")
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, color.CyanString("> "))
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "exit", "quit":
				return nil
			}
			if err := chatTurn(ctx, a, out, line); err != nil {
				return err
			}
		}
	},
}

// resumeSession activates id, or the most recently updated session when id is
// empty, and hands its history to the engine. With no sessions at all the
// first turn creates one.
func resumeSession(ctx context.Context, a *app, id string) error {
	if id == "" {
		list, err := a.sessions.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return nil
		}
		id = list[0].ID
	}
	s, err := a.sessions.Activate(ctx, id)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	a.engine.Resume(s.Messages)
	return nil
}

// chatTurn sends one message and records both sides in the active session.
func chatTurn(ctx context.Context, a *app, out io.Writer, text string) error {
	s, _, err := a.sessions.EnsureActive(ctx)
	if err != nil {
		return err
	}
	reply, err := a.engine.SendMessage(ctx, text)
	if err != nil {
		return err
	}
	if _, err := a.sessions.Append(ctx, s.ID,
		session.Message{Role: session.RoleUser, Content: text},
		session.Message{Role: session.RoleAssistant, Content: reply.Content},
	); err != nil {
		return err
	}
	if reply.FellBack {
		fmt.Fprintln(out, color.YellowString("(remote backend unavailable, answered locally)"))
	}
	fmt.Fprintln(out, reply.Content)
	return nil
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "Session to continue (default: most recently updated)")
	rootCmd.AddCommand(chatCmd)
}
