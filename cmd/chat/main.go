// Command chat runs the booking conversation in a terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wolfman30/medical-appointment-scheduler/cmd/mainconfig"
	appconfig "github.com/wolfman30/medical-appointment-scheduler/internal/config"
	"github.com/wolfman30/medical-appointment-scheduler/internal/conversation"
	"github.com/wolfman30/medical-appointment-scheduler/pkg/logging"
)

func main() {
	liveNotify := flag.Bool("live-notify", false, "send confirmations through the configured email and SMS providers")
	flag.Parse()

	cfg := appconfig.Load()
	// Logs go to stderr so they do not interleave with the conversation.
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := mainconfig.Build(ctx, cfg, logger, mainconfig.Options{StubNotifications: !*liveNotify})
	if err != nil {
		logger.Error("failed to initialize booking stack", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := run(ctx, app.Conversations, os.Stdin, os.Stdout); err != nil {
		logger.Error("chat ended with error", "error", err)
		os.Exit(1)
	}
}

// run drives one session from in until EOF or a quit command. "reset" or
// "new" restarts the conversation.
func run(ctx context.Context, svc conversation.Service, in io.Reader, out io.Writer) error {
	resp, err := svc.Start(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	sessionID := resp.SessionID
	printReply(out, resp)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "reset", "new":
			resp, err = svc.Reset(ctx, sessionID)
		default:
			resp, err = svc.Message(ctx, sessionID, line)
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printReply(out, resp)
		if resp.Completed {
			fmt.Fprintln(out, "(type \"new\" to book another appointment or \"quit\" to exit)")
		}
	}
}

func printReply(out io.Writer, resp conversation.Response) {
	fmt.Fprintf(out, "\n%s\n\n", resp.Text())
}
