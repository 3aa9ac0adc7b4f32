package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"platen/internal/ipc"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Submit and inspect slicing jobs",
	}

	jobCmd.AddCommand(newJobAddCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobRequeueCommand(ctx))

	return jobCmd
}

func newJobAddCommand(ctx *commandContext) *cobra.Command {
	var modelID, materialID, processID, machineID int64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a slicing job for a model, material, process and machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobAdd(ipc.JobAddRequest{
					ModelID:    modelID,
					MaterialID: materialID,
					ProcessID:  processID,
					MachineID:  machineID,
				})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Created {
					fmt.Fprintf(out, "Job %d queued\n", resp.Job.ID)
				} else {
					fmt.Fprintf(out, "Job %d already exists (status %s)\n", resp.Job.ID, resp.Job.Status)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&modelID, "model", 0, "Model ID")
	cmd.Flags().Int64Var(&materialID, "material", 0, "Material ID")
	cmd.Flags().Int64Var(&processID, "process", 0, "Process ID")
	cmd.Flags().Int64Var(&machineID, "machine", 0, "Machine ID")
	for _, flag := range []string{"model", "material", "process", "machine"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List slicing jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobList(strings.TrimSpace(statusFilter))
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(jobListColumns(), buildJobListRows(resp.Jobs)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Filter by job status")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show details for a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobDescribe(id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				printJobDetails(cmd, resp.Job)
				return nil
			})
		},
	}
}

func newJobRequeueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <jobID>",
		Short: "Re-run a job from scratch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobRequeue(id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d requeued\n", resp.Job.ID)
				return nil
			})
		},
	}
}

func jobListColumns() []tableColumn {
	return []tableColumn{
		numericCol("ID"),
		numericCol("Model"),
		numericCol("Material"),
		numericCol("Process"),
		numericCol("Machine"),
		col("Status"),
		numericCol("Price"),
		col("Updated"),
	}
}

func buildJobListRows(jobs []ipc.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			strconv.FormatInt(job.ModelID, 10),
			strconv.FormatInt(job.MaterialID, 10),
			strconv.FormatInt(job.ProcessID, 10),
			strconv.FormatInt(job.MachineID, 10),
			job.Status,
			formatOptionalFloat(job.EffectivePrice),
			job.UpdatedAt,
		})
	}
	return rows
}

func printJobDetails(cmd *cobra.Command, job ipc.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %d\n", job.ID)
	fmt.Fprintf(out, "  Status:    %s\n", job.Status)
	fmt.Fprintf(out, "  Model:     %d\n", job.ModelID)
	fmt.Fprintf(out, "  Material:  %d\n", job.MaterialID)
	fmt.Fprintf(out, "  Process:   %d\n", job.ProcessID)
	fmt.Fprintf(out, "  Machine:   %d\n", job.MachineID)
	fmt.Fprintf(out, "  Weight:    %s g\n", formatOptionalFloat(job.EstimatedWeight))
	fmt.Fprintf(out, "  Duration:  %s s\n", formatOptionalFloat(job.EstimatedDuration))
	fmt.Fprintf(out, "  Price:     %s\n", formatOptionalFloat(job.EstimatedPrice))
	if job.PriceOverride != nil {
		fmt.Fprintf(out, "  Override:  %s\n", formatOptionalFloat(job.PriceOverride))
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:     %s\n", job.ErrorMessage)
	}
	if job.SlicingCommand != "" {
		fmt.Fprintf(out, "  Command:   %s\n", job.SlicingCommand)
	}
	if len(job.Plates) > 0 {
		fmt.Fprintf(out, "  Plates:\n")
		for i, plate := range job.Plates {
			fmt.Fprintf(out, "    %d: weight %s g, duration %s s\n",
				i+1,
				formatOptionalFloat(plate.EstimatedWeight),
				formatOptionalFloat(plate.EstimatedDuration),
			)
		}
	}
}

func formatOptionalFloat(value *float64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatFloat(*value, 'f', 2, 64)
}

func parsePositiveID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
