package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/livefire2015/ez-rent/src/models"
	"github.com/livefire2015/ez-rent/src/services"
	"github.com/spf13/cobra"
)

func billsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bills",
		Short: "Generate, export and assess late fees on bills",
	}
	cmd.AddCommand(
		generateCmd(configPath),
		exportCmd(configPath),
		lateFeesCmd(configPath),
	)
	return cmd
}

func generateCmd(configPath *string) *cobra.Command {
	var tenant string
	cmd := &cobra.Command{
		Use:   "generate YYYY-MM",
		Short: "Generate bills for a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := models.ParsePeriod(args[0])
			if err != nil {
				return err
			}
			req := services.GenerateRequest{Period: period}
			if tenant != "" {
				id, err := uuid.Parse(tenant)
				if err != nil {
					return fmt.Errorf("invalid tenant id: %w", err)
				}
				req.TenantID = &id
			}

			a, err := bootstrap(cmd.Context(), *configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.billing.GenerateBills(cmd.Context(), req)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TENANT\tROOM\tTOTAL DUE\tCARRY FORWARD\tSTATUS")
			for _, res := range result.Results {
				if res.OK() {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", res.TenantID, res.RoomID,
						res.Bill.TotalDue.StringFixed(2), res.Bill.CarryForward.StringFixed(2), res.Bill.Status)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t-\t-\tfailed (%s): %s\n", res.TenantID, res.RoomID, res.Kind, res.Error)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if failed := len(result.Failures()); failed > 0 {
				return fmt.Errorf("%d of %d bills failed for %s", failed, len(result.Results), period)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "generate only this tenant's bill")
	return cmd
}

func exportCmd(configPath *string) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export YYYY-MM",
		Short: "Export a period's bills as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := models.ParsePeriod(args[0])
			if err != nil {
				return err
			}
			f, err := services.ParseExportFormat(format)
			if err != nil {
				return err
			}
			if out == "" {
				out = f.FileName(period)
			}

			a, err := bootstrap(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := a.export.ExportBills(cmd.Context(), file, period, f); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default bills_YYYY-MM.<format>)")
	return cmd
}

func lateFeesCmd(configPath *string) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "late-fees YYYY-MM",
		Short: "Charge late fees on overdue bills of a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := models.ParsePeriod(args[0])
			if err != nil {
				return err
			}
			at := time.Now().UTC()
			if asOf != "" {
				at, err = time.Parse(time.DateOnly, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of date: %w", err)
				}
			}

			a, err := bootstrap(cmd.Context(), *configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.fees.AssessLateFees(cmd.Context(), period, at)
			if err != nil {
				return err
			}
			for _, fee := range run.Assessed {
				fmt.Fprintf(cmd.OutOrStdout(), "tenant %s: %d days overdue on %s, fee %s\n",
					fee.TenantID, fee.DaysOverdue, fee.Overdue.StringFixed(2), fee.Charge.Amount.StringFixed(2))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d late fees totalling %s charged to %s\n",
				len(run.Assessed), run.Total.StringFixed(2), period.Next())
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "assessment date YYYY-MM-DD (default today)")
	return cmd
}
