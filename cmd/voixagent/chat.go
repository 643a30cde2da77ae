package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/media"
	"github.com/voixagent/voixagent/metrics"
	"github.com/voixagent/voixagent/plugin/builtin"
	"github.com/voixagent/voixagent/resolver"
	"github.com/voixagent/voixagent/session"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	var (
		room    string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the agent over stdin and stdout",
		Long: `chat runs one session locally with a loopback transport: every line read
from stdin is a text turn and each reply is printed. The session uses the same
agent configuration as the server. End the conversation with EOF (Ctrl-D).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			log := logger.Nop()
			if verbose {
				cfg.Logging.Output = "stderr"
				log = logger.New(&cfg.Logging, serviceName)
			}
			return chat(cmd.Context(), flags, cfg, room, cmd.InOrStdin(), cmd.OutOrStdout(), log)
		},
	}
	cmd.Flags().StringVar(&room, "room", "local", "Room name recorded on the session")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Log to stderr")
	return cmd
}

func chat(ctx context.Context, flags *globalFlags, cfg *AppConfig, room string, in io.Reader, out io.Writer, log *logger.Logger) error {
	_, agent, err := agentFiles(flags)
	if err != nil {
		return err
	}
	plugins, err := builtin.NewRegistry(builtin.Options{})
	if err != nil {
		return err
	}

	agg := metrics.NewAggregator(metrics.Config{Capacity: cfg.Metrics.Capacity}, metrics.WithLogger(log))
	loopback := media.NewLoopback(1)
	sessions := session.NewRegistry(cfg.Session, agent,
		resolver.New(resolver.DefaultCatalog(), resolver.WithLogger(log)),
		plugins,
		session.WithAttacher(loopback),
		session.WithRecorder(agg),
		session.WithLogger(log),
	)
	defer func() { _ = sessions.Stop(context.Background()) }()

	rec, err := sessions.CreateSession(ctx, "", room)
	if err != nil {
		return err
	}
	conn, _ := loopback.Conn(rec.SessionID)
	s, _ := sessions.Session(rec.SessionID)

	for _, p := range rec.Providers {
		fmt.Fprintf(out, "[%s] %s", p.Capability.ConfigKey(), p.Provider)
		if p.Fallback {
			fmt.Fprintf(out, " (fallback for %s)", p.Requested)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "session %s ready, type a message (Ctrl-D to quit)\n", rec.SessionID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := conn.Say(ctx, text); err != nil {
			return err
		}
		if !awaitReply(ctx, out, conn, s) {
			break
		}
	}
	fmt.Fprintln(out)

	conn.Hangup()
	select {
	case <-s.Terminated():
	case <-time.After(cfg.Session.GracePeriod + time.Second):
	}
	final := s.Record()
	fmt.Fprintf(out, "session %s %s after %d turns\n", final.SessionID, final.State, final.Turns)
	if final.LastError != "" {
		fmt.Fprintf(out, "last error: %s\n", final.LastError)
	}
	return scanner.Err()
}

// awaitReply prints the next response. A turn that fails produces no
// output; the session record then carries the error. It returns false once
// the session has ended.
func awaitReply(ctx context.Context, out io.Writer, conn *media.LoopbackConn, s *session.Session) bool {
	failures := s.Record().ConsecutiveFailures
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case reply := <-conn.Outputs():
			prefix := "agent> "
			if reply.Filtered {
				prefix = "agent (filtered)> "
			}
			fmt.Fprintln(out, prefix+reply.Text)
			return true
		case <-s.Terminated():
			return false
		case <-ctx.Done():
			return false
		case <-ticker.C:
			rec := s.Record()
			if rec.ConsecutiveFailures > failures {
				fmt.Fprintf(out, "agent! %s\n", rec.LastError)
				return true
			}
		}
	}
}
