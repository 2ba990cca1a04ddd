package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/app"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/chat"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
)

type askResult struct {
	Message string `json:"message"`
	Reply   string `json:"reply"`
}

func newAskCmd() *cobra.Command {
	var (
		userID  string
		admin   bool
		file    string
		workers int
		timeout time.Duration
		remote  string
		token   string
		vehicle nlu.Vehicle
	)

	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send a message to the assistant",
		Long: `Send one message, or a file of messages (one per line), through the
full pipeline against the configured database. Rate limiting is skipped.

With --remote the messages go to a running API server instead; --user is then
sent as the body userId (ignored by servers that enforce bearer tokens) and
--admin has no effect.

--model, --engine and --year describe the shopper's vehicle and narrow
product searches the same way the API's "vehicle" field does.`,
		Example: `  assistant-cli ask "¿Tenés aceite 5W40?"
  assistant-cli ask --user 22222222-2222-4222-8222-222222222222 "mis últimas compras"
  assistant-cli ask --model gol --engine 1.6 "filtro de aceite"
  assistant-cli ask --file questions.txt --json
  assistant-cli ask --remote http://localhost:8090 --token $TOKEN "mis compras"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := collectMessages(args, file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			caller := orders.Caller{UserID: userID, IsAdmin: admin}
			ctx = chat.WithVehicle(ctx, vehicle)

			var responder chat.Responder
			if remote != "" {
				responder = newRemoteResponder(remote, token)
			} else {
				a, err := app.Build(ctx, cfg, logger, app.Options{SkipRateLimit: true})
				if err != nil {
					return err
				}
				defer a.Close()
				responder = a.Assistant
			}

			bp := chat.NewBatchProcessor(responder, workers, timeout)
			return runAsk(ctx, cmd.OutOrStdout(), bp, caller, messages)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "caller user id")
	cmd.Flags().BoolVar(&admin, "admin", false, "treat the caller as an admin")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read messages from file, one per line (- for stdin)")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent messages in batch mode")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline for the batch")
	cmd.Flags().StringVar(&remote, "remote", "", "API base URL; skips the local pipeline")
	cmd.Flags().StringVar(&token, "token", os.Getenv("ASSISTANT_TOKEN"), "bearer token for --remote")
	addVehicleFlags(cmd, &vehicle)
	return cmd
}

func runAsk(ctx context.Context, out io.Writer, bp *chat.BatchProcessor, caller orders.Caller, messages []string) error {
	var bar *Progress
	if len(messages) > 1 {
		bar = ui.ProgressBar("asking", int64(len(messages)))
	}
	replies, err := bp.Process(ctx, messages, caller, bar.Increment)
	bar.Done()
	if err != nil {
		ui.Error("%v", err)
	}

	results := make([]askResult, 0, len(messages))
	for i, msg := range messages {
		if replies[i] == "" {
			continue
		}
		results = append(results, askResult{Message: msg, Reply: replies[i]})
	}

	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		var encErr error
		if len(results) == 1 {
			encErr = enc.Encode(results[0])
		} else {
			encErr = enc.Encode(results)
		}
		if encErr != nil {
			return encErr
		}
		return err
	}

	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			ui.Step("%s", r.Message)
		}
		fmt.Fprintln(out, r.Reply)
	}
	return err
}

func collectMessages(args []string, file string) ([]string, error) {
	if file == "" {
		msg := strings.TrimSpace(strings.Join(args, " "))
		if msg == "" {
			return nil, fmt.Errorf("message is required")
		}
		return []string{msg}, nil
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("pass either a message or --file, not both")
	}

	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open messages: %w", err)
		}
		defer f.Close()
		r = f
	}
	return readMessages(r)
}

// readMessages returns the non-blank lines of r. Lines starting with # are
// skipped.
func readMessages(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no messages found")
	}
	return out, nil
}
