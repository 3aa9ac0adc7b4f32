package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"platen/internal/daemonctl"
	"platen/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the platen daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath()},
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.AlreadyRunning {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			fmt.Fprintln(stdout, "Daemon not running, launching...")
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the platen daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.socketPath(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the platen daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			_, err = daemonctl.Stop(ctx.socketPath(), 5*time.Second)
			if err != nil && !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				return err
			}
			if err == nil {
				fmt.Fprintln(stdout, "Daemon stopped")
			}

			if _, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath()},
				10*time.Second,
			); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, status)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				runningKind := statusError
				runningText := "stopped"
				if status.Running {
					runningKind = statusOK
					runningText = fmt.Sprintf("pid %d", status.PID)
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, runningText, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Job database", statusInfo, status.JobDBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, status.LockPath, colorize))
				if status.APIAddress != "" {
					fmt.Fprintln(stdout, renderStatusLine("HTTP API", statusInfo, status.APIAddress, colorize))
				}
				if status.LastJobID > 0 {
					fmt.Fprintln(stdout, renderStatusLine("Last job", statusInfo, strconv.FormatInt(status.LastJobID, 10), colorize))
				}
				if status.LastError != "" {
					fmt.Fprintln(stdout, renderStatusLine("Last error", statusWarn, status.LastError, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Jobs", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := buildJobStatsRows(status.JobStats)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "No jobs recorded")
					return nil
				}
				fmt.Fprintln(stdout, renderTable([]tableColumn{col("Status"), numericCol("Count")}, rows))
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

// buildJobStatsRows orders lifecycle statuses before any stragglers.
func buildJobStatsRows(stats map[string]int) [][]string {
	order := []string{"queued", "processing", "sliced", "failed"}
	seen := make(map[string]bool, len(order))
	rows := make([][]string, 0, len(stats))
	for _, status := range order {
		seen[status] = true
		if count, ok := stats[status]; ok && count > 0 {
			rows = append(rows, []string{status, strconv.Itoa(count)})
		}
	}
	extras := make([]string, 0)
	for status, count := range stats {
		if !seen[status] && count > 0 {
			extras = append(extras, status)
		}
	}
	sort.Strings(extras)
	for _, status := range extras {
		rows = append(rows, []string{status, strconv.Itoa(stats[status])})
	}
	return rows
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}
