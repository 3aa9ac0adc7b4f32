package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"platen/internal/ipc"
)

func newQuoteCommand(ctx *commandContext) *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Resolve and inspect quotes",
	}

	quoteCmd.AddCommand(newQuoteResolveCommand(ctx))
	quoteCmd.AddCommand(newQuoteShowCommand(ctx))

	return quoteCmd
}

func newQuoteResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <quoteID>",
		Short: "Resolve quote items into slicing jobs and recompute the subtotal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QuoteResolve(id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				printQuoteDetails(cmd, resp.Quote)
				return nil
			})
		},
	}
}

func newQuoteShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <quoteID>",
		Short: "Show details for a single quote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QuoteDescribe(id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				printQuoteDetails(cmd, resp.Quote)
				return nil
			})
		},
	}
}

func printQuoteDetails(cmd *cobra.Command, quote ipc.Quote) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Quote %d\n", quote.ID)
	if quote.Customer != "" {
		fmt.Fprintf(out, "  Customer: %s\n", quote.Customer)
	}
	fmt.Fprintf(out, "  Subtotal: %.2f\n", quote.Subtotal)
	if len(quote.Items) == 0 {
		fmt.Fprintln(out, "  No items")
		return
	}

	rows := make([][]string, 0, len(quote.Items))
	for _, item := range quote.Items {
		rows = append(rows, []string{
			strconv.Itoa(item.Position),
			formatOptionalID(item.ModelID),
			formatOptionalID(item.MaterialID),
			formatOptionalID(item.ProcessID),
			formatOptionalID(item.MachineID),
			strconv.Itoa(item.Quantity),
			formatOptionalID(item.JobID),
		})
	}
	columns := []tableColumn{
		numericCol("#"),
		numericCol("Model"),
		numericCol("Material"),
		numericCol("Process"),
		numericCol("Machine"),
		numericCol("Qty"),
		numericCol("Job"),
	}
	fmt.Fprintln(out, renderTable(columns, rows))
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}
