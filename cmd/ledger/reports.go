package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/report"
	"github.com/spf13/cobra"
)

func summaryCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Income, spending and budgets by category, month and account",
		Long: `Summarize a period. Confirmed transfers are left out of income and
spending but still count toward account flows.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			fromDate, err := parseDate(from)
			if err != nil {
				return err
			}
			toDate, err := parseDate(to)
			if err != nil {
				return err
			}
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			s, err := e.Summary(ctx, fromDate, toDate)
			if err != nil {
				return err
			}
			if s.TransactionCount == 0 && s.TransfersExcluded == 0 {
				printLine(cmd, cli.InfoStyle.Render("No transactions in this period."))
				return nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Income:     %s\n", cli.FormatAmount(s.IncomeCents))
			fmt.Fprintf(&b, "Spending:   %s\n", cli.FormatAmount(s.ExpenseCents))
			fmt.Fprintf(&b, "Net:        %s\n", cli.FormatAmount(s.NetCents))
			fmt.Fprintf(&b, "Rows:       %d (%d transfer legs left out)", s.TransactionCount, s.TransfersExcluded)
			printLine(cmd, cli.RenderBox(cli.ChartIcon+" "+e.Profile(), b.String()))

			tbl := cli.NewTable(cmd.OutOrStdout(), "Category", "Count", "Total", "Budget", "Remaining")
			for _, c := range s.ByCategory {
				budget, remaining := cli.SubtleStyle.Render("-"), ""
				if c.BudgetCents != nil {
					budget = model.FormatCents(*c.BudgetCents)
					remaining = model.FormatCents(*c.RemainingCents)
					if c.OverBudget {
						remaining = cli.ErrorStyle.Render(remaining)
					}
				}
				tbl.Row(cli.Truncate(c.Name, 30), c.Count, cli.FormatAmount(c.TotalCents), budget, remaining)
			}
			if err := tbl.Flush(); err != nil {
				return err
			}

			printLine(cmd, "")
			tbl = cli.NewTable(cmd.OutOrStdout(), "Month", "Income", "Spending", "Net")
			for _, m := range s.ByMonth {
				tbl.Row(m.Month, cli.FormatAmount(m.IncomeCents), cli.FormatAmount(m.ExpenseCents), cli.FormatAmount(m.NetCents))
			}
			if err := tbl.Flush(); err != nil {
				return err
			}

			printLine(cmd, "")
			tbl = cli.NewTable(cmd.OutOrStdout(), "Account", "Type", "Rows", "Net flow")
			for _, acct := range s.ByAccount {
				tbl.Row(acct.Label, acct.Type, acct.Count, cli.FormatAmount(acct.NetCents))
			}
			return tbl.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first posted date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last posted date (YYYY-MM-DD)")
	return cmd
}

func taxExportCmd(a *app) *cobra.Command {
	var (
		year   int
		output string
	)

	cmd := &cobra.Command{
		Use:   "tax-export",
		Short: "Write a CSV of the year's tax-deductible transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			r, err := e.TaxExport(ctx, year)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return report.WriteTaxCSV(cmd.OutOrStdout(), r)
			}
			f, err := os.Create(output) // #nosec G304 -- user supplied export path
			if err != nil {
				return common.Internal("failed to create "+output, err)
			}
			if err := report.WriteTaxCSV(f, r); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return common.Internal("failed to write "+output, err)
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Wrote %d transactions totalling %s to %s",
				len(r.Rows), model.FormatCents(r.TotalCents), output)))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year()-1, "tax year")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}
