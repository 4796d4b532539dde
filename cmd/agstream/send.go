package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/agstream/internal/format"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

func newSendCmd(root *rootOptions) *cobra.Command {
	var threadID string
	var resume bool
	cmd := &cobra.Command{
		Use:   "send <prompt...>",
		Short: "Send one prompt and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			chat, cfg, err := openChat(ctx, root.configPath)
			if err != nil {
				return err
			}
			state := openState(ctx, cfg)
			target, err := selectThread(threadID, resume, state)
			if err != nil {
				return err
			}
			session := chat.Session()
			if err := loadThread(ctx, session, target); err != nil {
				return err
			}

			printer := startPrinter(chat.Bus(), cmd.OutOrStdout(), format.LiveOptions{
				ShowThinking: cfg.Chat.ShowThinking,
				ShowTools:    cfg.Chat.ShowTools,
			})
			defer printer.Close()

			prompt := strings.Join(args, " ")
			if err := session.Send(ctx, prompt); err != nil {
				return err
			}
			state.remember(session.ThreadID(), prompt)
			if err := printer.waitIdle(ctx); err != nil {
				session.AbortSending()
				return err
			}
			if msg := session.LastRunError(); msg != "" {
				return errors.New(msg)
			}
			pslog.Ctx(ctx).Debug("send completed", "thread", string(session.ThreadID()), "run", string(session.RunID()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "continue an existing thread")
	cmd.Flags().BoolVarP(&resume, "resume", "r", false, "continue the last thread used with this server")
	return cmd
}

func newHistoriesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "histories",
		Aliases: []string{"ls"},
		Short:   "List saved conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, _, err := openChat(cmd.Context(), root.configPath)
			if err != nil {
				return err
			}
			items, err := chat.Session().LoadHistories(cmd.Context())
			if err != nil {
				return err
			}
			return writeLines(cmd, format.NewPlainRenderer().FormatHistories(items))
		},
	}
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <thread_id>",
		Short: "Print the transcript of a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chat, _, err := openChat(cmd.Context(), root.configPath)
			if err != nil {
				return err
			}
			session := chat.Session()
			if err := session.LoadHistoryChat(cmd.Context(), schema.ThreadID(args[0])); err != nil {
				return err
			}
			return writeLines(cmd, format.NewPlainRenderer().FormatTranscript(session.Transcript()))
		},
	}
}

func writeLines(cmd *cobra.Command, lines []string) error {
	out := cmd.OutOrStdout()
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
