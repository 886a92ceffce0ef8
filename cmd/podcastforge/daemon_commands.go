package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podcastforge/internal/daemonctl"
	"podcastforge/internal/daemonrun"
)

const (
	startTimeout = 10 * time.Second
	stopGrace    = 10 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var runLogLevel string
	var runDevelopment bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the podcastforge daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    runLogLevel,
				Development: runDevelopment,
			})
		},
	}
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "Override logging.level")
	runCmd.Flags().BoolVar(&runDevelopment, "development", false, "Use development logging")

	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the podcastforge daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), ctx.client(), exe, daemonctl.LaunchOptions{
				ConfigPath: launchConfigPath(ctx),
				LogLevel:   startLogLevel,
			}, startTimeout)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"state": result.State, "pid": result.Status.PID})
			}
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.Status.PID)
			default:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.Status.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the podcastforge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cmd.Context(), ctx.client(), daemonrun.PIDPath(cfg), stopGrace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	return []*cobra.Command{runCmd, startCmd, stopCmd}
}

// launchConfigPath is the config the background daemon should load: the
// file this invocation resolved, or whatever --config named.
func launchConfigPath(ctx *commandContext) string {
	if ctx.configPath != "" {
		if _, err := os.Stat(ctx.configPath); err == nil {
			return ctx.configPath
		}
	}
	return strings.TrimSpace(ctx.configPathFlag())
}
