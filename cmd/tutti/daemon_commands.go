package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"tutti/internal/daemonctl"
	"tutti/internal/deps"
)

const (
	daemonStartTimeout = 10 * time.Second
	daemonStopGrace    = 8 * time.Second
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the tutti background daemon",
	}
	cmd.AddCommand(newDaemonStartCommand(ctx))
	cmd.AddCommand(newDaemonStopCommand(ctx))
	cmd.AddCommand(newDaemonStatusCommand(ctx))
	return cmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Launch the daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			socket := ctx.socketPath()
			if running, _, err := daemonctl.ProcessInfo(socket); err == nil && running {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is already running")
				return nil
			}

			executable, err := daemonExecutablePath()
			if err != nil {
				return err
			}
			if err := daemonctl.Launch(executable, daemonctl.LaunchOptions{
				ConfigPath: ctx.configFlagValue(),
			}); err != nil {
				return err
			}

			client, err := daemonctl.WaitForClient(socket, daemonStartTimeout)
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return fmt.Errorf("daemon started but status query failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon started (pid %d)\n", status.PID)
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), cfg, daemonStopGrace)
			if err != nil {
				if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
					return nil
				}
				return err
			}
			switch {
			case result.ForcedKill:
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon did not exit gracefully; killed pid %d\n", result.PID)
			case result.StopAcknowledged:
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "Stop requested")
			}
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and dependency status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(os.Stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			if snapshot.Status.Running {
				fmt.Fprintln(out, renderStatusLine("State", statusOK, fmt.Sprintf("running (pid %d)", snapshot.Status.PID), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("State", statusWarn, "not running", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Queue database", statusInfo, snapshot.Status.QueueDBPath, colorize))
			fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, snapshot.Status.LockPath, colorize))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(out, line)
			}
			printQueueStats(out, snapshot.Status.QueueStats, colorize)

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			printDependencies(out, snapshot.Dependencies, colorize)
			return nil
		},
	}
}

func printQueueStats(out io.Writer, stats map[string]int, colorize bool) {
	if len(stats) == 0 {
		fmt.Fprintln(out, renderStatusLine("Items", statusInfo, "queue is empty", colorize))
		return
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintln(out, renderStatusLine(key, statusInfo, fmt.Sprintf("%d", stats[key]), colorize))
	}
}

func printDependencies(out io.Writer, statuses []deps.Status, colorize bool) {
	for _, dep := range statuses {
		kind := statusOK
		message := "available"
		if !dep.Available {
			message = dep.Detail
			if dep.Optional {
				kind = statusWarn
			} else {
				kind = statusError
			}
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
	}
}

// daemonExecutablePath resolves tuttid, preferring a sibling of the current
// binary over PATH lookup.
func daemonExecutablePath() (string, error) {
	self, err := os.Executable()
	if err == nil {
		sibling := filepath.Join(filepath.Dir(self), "tuttid")
		if info, statErr := os.Stat(sibling); statErr == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, lookErr := exec.LookPath("tuttid")
	if lookErr != nil {
		return "", fmt.Errorf("locate tuttid executable: %w", lookErr)
	}
	return path, nil
}
