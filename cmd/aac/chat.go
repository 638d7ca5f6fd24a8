package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/aac/internal/contextual"
	"github.com/ent0n29/aac/internal/pipeline"
)

func newChatCommand() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive suggestion loop on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			built, _, err := buildFromEnv(true)
			if err != nil {
				return err
			}
			defer built.Close(context.Background())
			return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), built.Pipeline, location)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "initial location, e.g. office")
	return cmd
}

const chatHelp = `commands:
  /context work|social|general|auto   pin or clear the context
  /location NAME                      set the location (empty clears it)
  /history                            show recent context labels
  /quit                               exit`

// runChat reads one utterance per line and prints numbered suggestions.
func runChat(ctx context.Context, in io.Reader, out io.Writer, pipe *pipeline.Pipeline, location string) error {
	var override contextual.Label
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "type an utterance, or /help")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			cmd, arg, _ := strings.Cut(line, " ")
			arg = strings.TrimSpace(arg)
			switch cmd {
			case "/quit", "/exit":
				return nil
			case "/help":
				fmt.Fprintln(out, chatHelp)
			case "/context":
				if arg == "" || strings.EqualFold(arg, "auto") {
					override = ""
					fmt.Fprintln(out, "context: auto")
					continue
				}
				label, err := contextual.ParseLabel(arg)
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}
				override = label
				fmt.Fprintf(out, "context: %s\n", label)
			case "/location":
				location = arg
				fmt.Fprintf(out, "location: %q\n", location)
			case "/history":
				c := pipe.Classifier()
				fmt.Fprintf(out, "history: %v (recent: %s)\n", c.History().Snapshot(), c.RecentContext())
			default:
				fmt.Fprintf(out, "unknown command %s\n", cmd)
			}
			continue
		}

		res, err := pipe.Process(ctx, pipeline.Request{Text: line, Location: location, Override: override})
		if err != nil {
			var inputErr *pipeline.InputError
			if errors.As(err, &inputErr) {
				fmt.Fprintf(out, "error: %s\n", inputErr.Message)
				continue
			}
			return err
		}
		fmt.Fprintf(out, "[%s via %s, %.2f] intent=%s urgency=%s\n",
			res.Context, res.Source, res.Confidence, res.Analysis.Intent, res.Analysis.Urgency)
		if len(res.Suggestions) == 0 {
			fmt.Fprintln(out, "  (no suggestions)")
		}
		for i, s := range res.Suggestions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, s)
		}
	}
}
