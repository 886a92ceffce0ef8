package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"podcastforge/internal/api"
)

// queueStatusOrder is the display order for queue counts.
var queueStatusOrder = []string{"pending", "processing", "completed", "failed"}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, workflow and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				renderStatus(cmd.OutOrStdout(), status, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
}

func renderStatus(out io.Writer, status api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	wf := status.Workflow
	renderKeyValues(out, [][2]string{
		{"Running", yesNo(status.Running)},
		{"PID", strconv.Itoa(status.PID)},
		{"Database", status.DatabasePath},
		{"Lock file", status.LockFilePath},
		{"Log file", status.LogPath},
		{"Workflow", yesNo(wf.Running)},
		{"Workers", fmt.Sprintf("%d (%d active, %d queued)", wf.Workers, wf.Active, wf.Queued)},
		{"Last error", wf.LastError},
	})
	if wf.LastTask != nil {
		title := wf.LastTask.Title
		if title == "" {
			title = truncate(wf.LastTask.SourceReference, 40)
		}
		renderKeyValues(out, [][2]string{{"Last task", fmt.Sprintf("%s %s (%s)", wf.LastTask.ID, title, wf.LastTask.Status)}})
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Queue", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := buildQueueStatusRows(wf.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(stats))
	seen := make(map[string]bool, len(queueStatusOrder))
	for _, key := range queueStatusOrder {
		seen[key] = true
		rows = append(rows, []string{key, strconv.Itoa(stats[key])})
	}
	for key, count := range stats {
		if !seen[key] {
			rows = append(rows, []string{key, strconv.Itoa(count)})
		}
	}
	return rows
}

// errUnhealthy makes `health` exit non-zero after printing the report.
var errUnhealthy = errors.New("daemon reported failed health checks")

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run the daemon's dependency checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				health, err := client.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, health); err != nil {
						return err
					}
				} else {
					renderHealth(cmd.OutOrStdout(), health, shouldColorize(cmd.OutOrStdout()))
				}
				if !health.Healthy {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}

func renderHealth(out io.Writer, health api.HealthResponse, colorize bool) {
	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range health.Checks {
		kind := checkOK
		switch {
		case !check.Passed && check.Optional:
			kind = checkWarn
		case !check.Passed:
			kind = checkError
		}
		fmt.Fprintln(out, renderCheckLine(check.Name, kind, check.Detail, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Temporary files", colorize) {
		fmt.Fprintln(out, line)
	}
	renderKeyValues(out, [][2]string{
		{"Directories", strconv.Itoa(health.Temp.Directories)},
		{"Size", formatBytes(health.Temp.Bytes)},
		{"Oldest", formatTimestamp(health.Temp.Oldest)},
	})
}
