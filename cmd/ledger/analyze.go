package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/spf13/cobra"
)

func auditCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Flag possible duplicates, bank fees, unusually large charges and new merchants",
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
			flags, err := e.AuditFlags(ctx, fromDate, toDate)
			if err != nil {
				return err
			}
			if len(flags) == 0 {
				printLine(cmd, cli.FormatSuccess("Nothing to review"))
				return nil
			}
			tbl := cli.NewTable(cmd.OutOrStdout(), "Severity", "Flag", "ID", "Date", "Amount", "Merchant", "Why")
			for i := range flags {
				f := &flags[i]
				tbl.Row(cli.FormatSeverity(f.Severity), f.Type, f.Transaction.ID, cli.FormatDate(f.Transaction.PostedDate),
					cli.FormatAmount(f.Transaction.AmountCents), merchantOf(&f.Transaction), f.Explanation)
			}
			return tbl.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first posted date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last posted date (YYYY-MM-DD)")
	return cmd
}

func recurringCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recurring",
		Short: "Find subscriptions and other regular charges",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			groups, err := e.Recurring(ctx)
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No recurring charges found."))
				return nil
			}
			tbl := cli.NewTable(cmd.OutOrStdout(), "Merchant", "Pattern", "Count", "Average", "Last")
			for _, g := range groups {
				tbl.Row(cli.Truncate(g.Merchant, 30), g.Pattern, g.Count, cli.FormatAmount(g.AvgAmountCents), cli.FormatDate(g.LastDate))
			}
			return tbl.Flush()
		},
	}
}

func suggestionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Rules mined from how you categorize",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rule suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			suggestions, err := e.RuleSuggestions(ctx)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No suggestions right now."))
				return nil
			}
			names, err := categoryNames(ctx, e)
			if err != nil {
				return err
			}
			tbl := cli.NewTable(cmd.OutOrStdout(), "Merchant", "Category", "Count", "Average", "Confidence", "Source")
			for _, s := range suggestions {
				tbl.Row(cli.Truncate(s.Merchant, 30), cli.FormatCategory(s.CategoryID, names), s.Count,
					cli.FormatAmount(s.AvgCents), cli.FormatConfidence(s.Confidence), s.Source)
			}
			return tbl.Flush()
		},
	})

	var (
		category, pattern, matchType string
		priority                     int
	)
	apply := &cobra.Command{
		Use:   "apply <merchant>",
		Short: "Create the suggested rule and recategorize the ledger",
		Long: `Create an exact-match rule for a merchant and apply it. Manual
categories of that merchant that the rule matches are replaced too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			c, err := resolveCategory(ctx, e, category)
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, fmt.Sprintf("Categorize every %s transaction as %s?", args[0], c.Name))
			if err != nil || !ok {
				return err
			}

			in := engine.SuggestionInput{
				Merchant:   args[0],
				Pattern:    pattern,
				MatchType:  model.MatchType(strings.ToLower(matchType)),
				CategoryID: c.ID,
			}
			if cmd.Flags().Changed("priority") {
				in.Priority = &priority
			}
			res, err := e.ApplySuggestion(ctx, in)
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Created rule %d and updated %d transactions", res.CreatedRuleID, res.UpdatedTransactions)))
			return nil
		},
	}
	apply.Flags().StringVar(&category, "category", "", "category id or name")
	apply.Flags().StringVar(&pattern, "pattern", "", "pattern (defaults to the merchant)")
	apply.Flags().StringVar(&matchType, "match-type", "", "contains, exact or regex (defaults to exact)")
	apply.Flags().IntVar(&priority, "priority", 0, "rule priority")
	apply.Flags().BoolP("yes", "y", false, "skip confirmation")
	_ = apply.MarkFlagRequired("category")
	cmd.AddCommand(apply)

	return cmd
}

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize data quality with recommendations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			r, err := e.Health(ctx)
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Transactions:         %d\n", r.TotalTransactions)
			fmt.Fprintf(&b, "Uncategorized:        %d\n", r.Uncategorized)
			fmt.Fprintf(&b, "Unmapped merchants:   %d\n", r.UnmappedMerchants)
			fmt.Fprintf(&b, "Unlabeled imports:    %d\n", r.ImportsMissingLabel)
			fmt.Fprintf(&b, "Possible duplicates:  %d\n", r.PossibleDuplicateGroups)
			fmt.Fprintf(&b, "Transfer candidates:  %d\n", r.TransferCandidates)
			fmt.Fprintf(&b, "Active rules:         %d", r.ActiveRules)
			if r.LastImport != nil {
				fmt.Fprintf(&b, "\nLast import:          %s", cli.FormatDate(*r.LastImport))
			}
			printLine(cmd, cli.RenderBox(cli.ChartIcon+" "+e.Profile(), b.String()))

			if len(r.TopUnmappedMerchants) > 0 {
				printLine(cmd, cli.BoldStyle.Render("Top unmapped merchants"))
				for _, m := range r.TopUnmappedMerchants {
					printf(cmd, "  %-30s %d\n", cli.Truncate(m.Merchant, 30), m.Count)
				}
			}
			for _, rec := range r.Recommendations {
				printLine(cmd, cli.FormatInfo(rec))
			}
			return nil
		},
	}
}
