package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/ent0n29/aac/internal/pipeline"
)

func newSuggestCommand() *cobra.Command {
	var (
		location string
		hour     int
		memory   bool
	)
	cmd := &cobra.Command{
		Use:   "suggest TEXT...",
		Short: "Print suggestions for one utterance as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			built, _, err := buildFromEnv(true)
			if err != nil {
				return err
			}
			defer built.Close(context.Background())

			req := pipeline.Request{
				Text:          strings.Join(args, " "),
				Location:      location,
				IncludeMemory: memory,
			}
			if cmd.Flags().Changed("hour") {
				if hour < 0 || hour > 23 {
					return fmt.Errorf("--hour must be within 0-23")
				}
				req.Hour = &hour
			}
			return runSuggest(cmd.Context(), cmd.OutOrStdout(), built.Pipeline, req)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "where the user is, e.g. office")
	cmd.Flags().IntVar(&hour, "hour", 0, "hour of day (0-23) instead of the current time")
	cmd.Flags().BoolVar(&memory, "memory", false, "include memory insight in the output")
	return cmd
}

func runSuggest(ctx context.Context, out io.Writer, pipe *pipeline.Pipeline, req pipeline.Request) error {
	res, err := pipe.Process(ctx, req)
	if err != nil {
		return err
	}
	raw, err := sonic.ConfigStd.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(out, string(raw))
	return err
}
