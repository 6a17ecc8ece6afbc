package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ragcon/safety-assistant/internal/chat"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask the safety assistant free-text questions",
		Long: `Start an interactive conversation with the safety assistant, or ask a
single question with --question. In the conversation, /clear drops the history
and /exit (or EOF) quits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := opts.newClient()
			if err != nil {
				return err
			}
			session := chat.NewSession(client, nil)

			if cmd.Flags().Changed("question") {
				reply, err := session.Send(ctx, question)
				if err != nil {
					return fmt.Errorf("%s: %w", chat.ErrorMessage, err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
				return nil
			}
			return runChatLoop(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "Ask one question and exit")
	return cmd
}

func runChatLoop(ctx context.Context, session *chat.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			session.Clear()
			continue
		}

		reply, err := session.Send(ctx, line)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			_, _ = fmt.Fprintf(out, "오류: %s\n", chat.ErrorMessage)
		default:
			_, _ = fmt.Fprintf(out, "%s\n\n", reply.Content)
		}
	}
}
