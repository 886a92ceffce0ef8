package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"podcastforge/internal/api"
)

func newHighlightsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "highlights",
		Short: "Cut and manage short clips from finished episodes",
	}
	cmd.AddCommand(newHighlightsGenerateCommand(ctx))
	cmd.AddCommand(newHighlightsListCommand(ctx))
	cmd.AddCommand(newHighlightsDeleteCommand(ctx))
	return cmd
}

func newHighlightsGenerateCommand(ctx *commandContext) *cobra.Command {
	var durations []int
	cmd := &cobra.Command{
		Use:   "generate <task-id>",
		Short: "Generate one highlight per target duration",
		Long: "Generate highlights for a completed task. Repeat --duration for several clips;\n" +
			"without it the daemon's highlights.default_durations are used.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				list, err := client.GenerateHighlights(cmd.Context(), args[0], durations)
				if err != nil {
					return err
				}
				return printHighlights(cmd, ctx, list)
			})
		},
	}
	cmd.Flags().IntSliceVarP(&durations, "duration", "d", nil, "Target clip length in seconds (repeatable)")
	return cmd
}

func newHighlightsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's highlights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				list, err := client.Highlights(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printHighlights(cmd, ctx, list)
			})
		},
	}
}

func newHighlightsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <highlight-id>",
		Short: "Delete a highlight and its clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.DeleteHighlight(cmd.Context(), args[0]); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"deleted": args[0]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted highlight %s\n", args[0])
				return nil
			})
		},
	}
}

func printHighlights(cmd *cobra.Command, ctx *commandContext, list []api.Highlight) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, list)
	}
	renderHighlights(cmd.OutOrStdout(), list)
	return nil
}

func renderHighlights(out io.Writer, list []api.Highlight) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No highlights")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, h := range list {
		rows = append(rows, []string{
			h.ID,
			truncate(h.Title, 40),
			strconv.Itoa(h.TargetDuration) + "s",
			formatSeconds(h.StartTime) + "-" + formatSeconds(h.EndTime),
			h.AudioURL,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Target", "Window", "Audio"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
}
