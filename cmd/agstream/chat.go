package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/agstream/core"
	"pkt.systems/agstream/internal/command"
	"pkt.systems/agstream/internal/format"
	"pkt.systems/agstream/schema"
	"pkt.systems/pslog"
)

const chatPrompt = "> "

func newChatCmd(root *rootOptions) *cobra.Command {
	var threadID string
	var resume bool
	var showThinking bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			chat, cfg, err := openChat(ctx, root.configPath)
			if err != nil {
				return err
			}
			interactive := isTerminal(cmd.InOrStdin())
			out := &lockedWriter{w: cmd.OutOrStdout()}
			printer := startPrinter(chat.Bus(), out, format.LiveOptions{
				ShowThinking: cfg.Chat.ShowThinking || showThinking,
				ShowTools:    cfg.Chat.ShowTools,
			})
			defer printer.Close()

			state := openState(ctx, cfg)
			target, err := selectThread(threadID, resume, state)
			if err != nil {
				return err
			}
			session := chat.Session()
			if err := loadThread(ctx, session, target); err != nil {
				return err
			}
			repl := &chatREPL{
				session:     session,
				commands:    command.NewHandler(session, out),
				printer:     printer,
				state:       state,
				out:         out,
				interactive: interactive,
			}
			err = repl.run(ctx, cmd.InOrStdin())
			session.AbortSending()
			return err
		},
	}
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "open an existing thread")
	cmd.Flags().BoolVarP(&resume, "resume", "r", false, "open the last thread used with this server")
	cmd.Flags().BoolVar(&showThinking, "thinking", false, "show agent reasoning")
	return cmd
}

// chatREPL reads lines from the user and routes them to slash commands or
// the session. Non-interactive input waits for each reply before reading on.
type chatREPL struct {
	session     *core.Session
	commands    *command.Handler
	printer     *updatePrinter
	state       *chatState
	out         io.Writer
	interactive bool
}

func (r *chatREPL) run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	log := pslog.Ctx(ctx)
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	if r.interactive {
		_, _ = fmt.Fprintf(r.out, "thread: %s (type /help for commands)\n", r.session.ThreadID())
	}
	for {
		r.prompt()
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			select {
			case err := <-readErr:
				return err
			case <-ctx.Done():
				return nil
			}
		}

		handled, err := r.commands.Handle(ctx, line)
		if errors.Is(err, command.ErrQuit) {
			return nil
		}
		if err != nil {
			_, _ = fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		if handled {
			continue
		}
		prompt := command.Unescape(line)
		if strings.TrimSpace(prompt) == "" {
			continue
		}
		r.printer.reset()
		if err := r.session.Send(ctx, prompt); err != nil {
			if errors.Is(err, schema.ErrSendInProgress) {
				_, _ = fmt.Fprintln(r.out, "busy: wait for the reply or /abort")
				continue
			}
			log.Debug("chat send rejected", "err", err)
			_, _ = fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		r.state.remember(r.session.ThreadID(), prompt)
		if !r.interactive {
			if err := r.printer.waitIdle(ctx); err != nil {
				return nil
			}
		}
	}
}

func (r *chatREPL) prompt() {
	if r.interactive && !r.session.Sending() {
		_, _ = fmt.Fprint(r.out, chatPrompt)
	}
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
