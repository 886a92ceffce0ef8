package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podcastforge/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var mode, style, host1, host2, file string
	var wait bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "submit <video|article|text> [reference]",
		Short: "Submit a video link, article link or text for podcast generation",
		Long: "Submit a source for podcast generation. The reference is a link for video and\n" +
			"article input and the content itself for text input. Use --file to read text\n" +
			"from a file, or --file - for stdin.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reference, err := submitReference(cmd, args, file)
			if err != nil {
				return err
			}
			req := api.SubmitTaskRequest{
				InputType:       strings.ToLower(strings.TrimSpace(args[0])),
				SourceReference: reference,
				Mode:            mode,
				Style:           style,
				Host1VoiceID:    host1,
				Host2VoiceID:    host2,
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Submit(cmd.Context(), req)
				if err != nil {
					var apiErr *api.Error
					if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict && apiErr.TaskID != "" {
						return fmt.Errorf("task %s is already in progress for this source", apiErr.TaskID)
					}
					return err
				}
				if !wait {
					if ctx.jsonOutput() {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Submitted task %s (%s)\n", resp.TaskID, resp.Status)
					return nil
				}
				if !ctx.jsonOutput() {
					fmt.Fprintf(cmd.OutOrStdout(), "Submitted task %s\n", resp.TaskID)
				}
				task, err := followTask(cmd.Context(), client, resp.TaskID, interval, progressPrinter(cmd, ctx.jsonOutput()))
				if err != nil {
					return err
				}
				return printTaskOutcome(cmd, ctx, task)
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Summary length: short, medium or long")
	cmd.Flags().StringVar(&style, "style", "", "Conversation style: casual, professional, educational, entertaining or news")
	cmd.Flags().StringVar(&host1, "host1", "", "Voice id for host 1")
	cmd.Flags().StringVar(&host2, "host2", "", "Voice id for host 2")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text input from a file (- for stdin)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the task to finish, printing progress")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval with --wait")
	return cmd
}

func submitReference(cmd *cobra.Command, args []string, file string) (string, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
			return "", errors.New("a reference is required (or --file for text input)")
		}
		return args[1], nil
	}
	if len(args) > 1 {
		return "", errors.New("pass either a reference argument or --file, not both")
	}
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// followTask polls progress until the task is terminal, calling onChange
// whenever stage, percent or message change.
func followTask(ctx context.Context, client *api.Client, id string, interval time.Duration, onChange func(api.TaskProgress)) (api.Task, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	var last api.TaskProgress
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		progress, err := client.Progress(ctx, id)
		if err != nil {
			return api.Task{}, err
		}
		if progress.Stage != last.Stage || progress.Percent != last.Percent || progress.Message != last.Message {
			last = progress
			if onChange != nil {
				onChange(progress)
			}
		}
		if progress.Stage == "completed" || progress.Stage == "failed" {
			return client.Task(ctx, id)
		}
		select {
		case <-ctx.Done():
			return api.Task{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func progressPrinter(cmd *cobra.Command, quiet bool) func(api.TaskProgress) {
	if quiet {
		return nil
	}
	out := cmd.OutOrStdout()
	return func(p api.TaskProgress) {
		line := fmt.Sprintf("  %-12s %4s", p.Stage, formatPercent(p.Percent))
		if p.Message != "" {
			line += "  " + p.Message
		}
		if p.ETASeconds != nil && *p.ETASeconds > 0 {
			line += fmt.Sprintf(" (about %s left)", formatSeconds(float64(*p.ETASeconds)))
		}
		fmt.Fprintln(out, line)
	}
}

func printTaskOutcome(cmd *cobra.Command, ctx *commandContext, task api.Task) error {
	if ctx.jsonOutput() {
		if err := writeJSON(cmd, task); err != nil {
			return err
		}
	} else if task.Status == "completed" {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Episode ready: %s\n", task.Title)
		if task.Episode != nil {
			fmt.Fprintf(out, "Audio: %s (%s)\n", task.Episode.AudioURL, formatSeconds(task.Episode.DurationSeconds))
		}
	}
	if task.Status == "failed" {
		return fmt.Errorf("task %s failed: %s", task.ID, task.ErrorMessage)
	}
	return nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				tasks, err := client.Tasks(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, tasks)
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Type", "Title", "Status", "Stage", "Progress", "Created"},
					buildTaskRows(tasks),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of tasks to show (0 for all)")
	return cmd
}

func buildTaskRows(tasks []api.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		title := task.Title
		if title == "" {
			title = truncate(task.SourceReference, 40)
		}
		rows = append(rows, []string{
			task.ID,
			task.InputType,
			truncate(title, 48),
			task.Status,
			task.Progress.Stage,
			formatPercent(task.Progress.Percent),
			formatTimestamp(task.CreatedAt),
		})
	}
	return rows
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var showTranscript, showScript bool
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				task, err := client.Task(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, task)
				}
				renderTaskDetail(cmd.OutOrStdout(), task, showTranscript, showScript)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&showTranscript, "transcript", false, "Include the source transcript")
	cmd.Flags().BoolVar(&showScript, "script", false, "Include the podcast script")
	return cmd
}

func renderTaskDetail(out io.Writer, task api.Task, showTranscript, showScript bool) {
	pairs := [][2]string{
		{"ID", task.ID},
		{"Title", task.Title},
		{"Type", task.InputType},
		{"Source", truncate(task.SourceReference, 100)},
		{"Mode", task.Mode},
		{"Style", task.Style},
		{"Status", task.Status},
		{"Stage", fmt.Sprintf("%s (%s)", task.Progress.Stage, formatPercent(task.Progress.Percent))},
		{"Message", task.Progress.Message},
		{"Voices", strings.Trim(task.Host1VoiceID+" / "+task.Host2VoiceID, " /")},
		{"Error", strings.TrimSpace(task.ErrorKind + " " + task.ErrorMessage)},
		{"Created", formatTimestamp(task.CreatedAt)},
		{"Updated", formatTimestamp(task.UpdatedAt)},
	}
	if task.Episode != nil {
		pairs = append(pairs,
			[2]string{"Audio", task.Episode.AudioURL},
			[2]string{"Duration", formatSeconds(task.Episode.DurationSeconds)},
		)
	}
	renderKeyValues(out, pairs)
	if task.Summary != "" {
		fmt.Fprintf(out, "\nSummary:\n%s\n", task.Summary)
	}
	if showScript && task.Script != "" {
		fmt.Fprintf(out, "\nScript:\n%s\n", task.Script)
	}
	if showTranscript && task.Transcript != "" {
		fmt.Fprintf(out, "\nTranscript:\n%s\n", task.Transcript)
	}
}

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "progress <task-id>",
		Short: "Show a task's current stage and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if follow {
					task, err := followTask(cmd.Context(), client, args[0], interval, progressPrinter(cmd, ctx.jsonOutput()))
					if err != nil {
						return err
					}
					return printTaskOutcome(cmd, ctx, task)
				}
				progress, err := client.Progress(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, progress)
				}
				progressPrinter(cmd, false)(progress)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep polling until the task finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval with --follow")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task with its highlights and stored audio",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				if err := client.DeleteTask(cmd.Context(), args[0]); err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"deleted": args[0]})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
				return nil
			})
		},
	}
}
