package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platen/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the dispatch queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs still moving through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobList("")
				if err != nil {
					return err
				}
				active := resp.Jobs[:0]
				for _, job := range resp.Jobs {
					switch job.Status {
					case "sliced", "failed":
					default:
						active = append(active, job)
					}
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, ipc.JobListResponse{Jobs: active})
				}
				if len(active) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(jobListColumns(), buildJobListRows(active)))
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueHealth()
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				health := resp.Health
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nQueued: %d\nProcessing: %d\nSliced: %d\nFailed: %d\nPending dispatch: %d\n",
					health.Total,
					health.Queued,
					health.Processing,
					health.Sliced,
					health.Failed,
					health.Pending,
				)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Retry failed jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parsePositiveID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRetry(ids)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d failed jobs\n", resp.Updated)
				return nil
			})
		},
	}
}
