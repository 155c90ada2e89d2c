package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/spf13/cobra"
)

func transactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List and edit transactions",
	}

	cmd.AddCommand(listTransactionsCmd(a))
	cmd.AddCommand(showTransactionCmd(a))
	cmd.AddCommand(categorizeTransactionCmd(a))
	cmd.AddCommand(noteTransactionCmd(a))
	cmd.AddCommand(tagTransactionCmd(a))
	cmd.AddCommand(deleteTransactionCmd(a))

	return cmd
}

func listTransactionsCmd(a *app) *cobra.Command {
	var (
		from, to, category, source, merchant string
		importID                             int64
		limit, offset                        int
		uncategorized, normalOnly            bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}

			filter := service.TransactionFilter{
				Merchant:      merchant,
				Limit:         limit,
				Offset:        offset,
				Uncategorized: uncategorized,
				NormalOnly:    normalOnly,
			}
			if filter.From, err = parseDate(from); err != nil {
				return err
			}
			if filter.To, err = parseDate(to); err != nil {
				return err
			}
			if importID > 0 {
				filter.ImportID = &importID
			}
			if category != "" {
				c, err := resolveCategory(ctx, e, category)
				if err != nil {
					return err
				}
				filter.CategoryID = &c.ID
			}
			if source != "" {
				src := model.CategorySource(strings.ToLower(source))
				if src == "none" {
					src = model.SourceNone
				}
				if !src.Valid() {
					return common.Validationf("invalid source %q: use rule, manual or none", source)
				}
				filter.Source = &src
			}

			page, err := e.ListTransactions(ctx, filter)
			if err != nil {
				return err
			}
			names, err := categoryNames(ctx, e)
			if err != nil {
				return err
			}

			tbl := cli.NewTable(cmd.OutOrStdout(), "ID", "Date", "Amount", "Merchant", "Category", "Source", "Account")
			for i := range page.Transactions {
				t := &page.Transactions[i]
				src := string(t.CategorySource)
				if t.IsTransfer() {
					src = "transfer"
				}
				tbl.Row(t.ID, cli.FormatDate(t.PostedDate), cli.FormatAmount(t.AmountCents), merchantOf(t),
					cli.FormatCategory(t.CategoryID, names), src, t.AccountLabel)
			}
			if err := tbl.Flush(); err != nil {
				return err
			}
			printLine(cmd, cli.SubtleStyle.Render(fmt.Sprintf("Showing %d of %d", len(page.Transactions), page.Total)))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&from, "from", "", "first posted date (YYYY-MM-DD)")
	f.StringVar(&to, "to", "", "last posted date (YYYY-MM-DD)")
	f.StringVar(&category, "category", "", "category id or name")
	f.StringVar(&source, "source", "", "category source (rule, manual, none)")
	f.StringVar(&merchant, "merchant", "", "merchant substring")
	f.Int64Var(&importID, "import", 0, "import id")
	f.IntVar(&limit, "limit", 50, "maximum rows")
	f.IntVar(&offset, "offset", 0, "rows to skip")
	f.BoolVar(&uncategorized, "uncategorized", false, "only uncategorized rows")
	f.BoolVar(&normalOnly, "normal-only", false, "exclude confirmed transfers")

	return cmd
}

func showTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			t, err := e.GetTransaction(ctx, id)
			if err != nil {
				return err
			}
			names, err := categoryNames(ctx, e)
			if err != nil {
				return err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Date:        %s\n", cli.FormatDate(t.PostedDate))
			fmt.Fprintf(&b, "Amount:      %s %s\n", cli.FormatAmount(t.AmountCents), t.Currency)
			fmt.Fprintf(&b, "Description: %s\n", t.DescriptionRaw)
			fmt.Fprintf(&b, "Merchant:    %s\n", t.DisplayMerchant())
			fmt.Fprintf(&b, "Category:    %s (%s)\n", cli.FormatCategory(t.CategoryID, names), t.CategorySource)
			if t.Provenance != nil {
				fmt.Fprintf(&b, "Rule:        #%d %s %q\n", t.Provenance.RuleID, t.Provenance.MatchType, t.Provenance.Pattern)
			}
			fmt.Fprintf(&b, "Type:        %s\n", t.Type)
			if t.AccountLabel != "" {
				fmt.Fprintf(&b, "Account:     %s\n", t.AccountLabel)
			}
			if len(t.Tags) > 0 {
				fmt.Fprintf(&b, "Tags:        %s\n", strings.Join(t.Tags, ", "))
			}
			if t.Note != "" {
				fmt.Fprintf(&b, "Note:        %s\n", t.Note)
			}
			printLine(cmd, cli.RenderBox(fmt.Sprintf("Transaction #%d", t.ID), strings.TrimRight(b.String(), "\n")))
			return nil
		},
	}
}

func categorizeTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <id> <category|none>",
		Short: "Set a transaction's category by hand",
		Long: `Set a transaction's category manually. Manual categories are never
overwritten by rules. Pass "none" to clear the category.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}

			var categoryID *int64
			label := "none"
			if !strings.EqualFold(args[1], "none") {
				c, err := resolveCategory(ctx, e, args[1])
				if err != nil {
					return err
				}
				categoryID, label = &c.ID, c.Name
			}

			if _, err := e.SetManualCategory(ctx, id, categoryID); err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Transaction %d categorized as %s", id, label)))
			return nil
		},
	}
}

func noteTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> [text]",
		Short: "Set or clear a transaction note",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			note := ""
			if len(args) == 2 {
				note = args[1]
			}
			if err := e.SetNote(ctx, id, note); err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Note updated on transaction %d", id)))
			return nil
		},
	}
}

func tagTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <id> [tags...]",
		Short: "Replace a transaction's tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			tags, err := e.SetTags(ctx, id, args[1:])
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Transaction %d tags: %s", id, strings.Join(tags, ", "))))
			return nil
		},
	}
}

func deleteTransactionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			if err := e.DeleteTransaction(ctx, id); err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted transaction %d", id)))
			return nil
		},
	}
}

func importsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imports",
		Short: "List or delete import batches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			imports, err := e.ListImports(ctx)
			if err != nil {
				return err
			}
			if len(imports) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No imports yet. Use 'ledger import' to add a statement."))
				return nil
			}
			printLine(cmd, cli.FormatTitle("Imports in "+e.Profile()))
			tbl := cli.NewTable(cmd.OutOrStdout(), "ID", "Created", "File", "Source", "Account", "Type", "Batch")
			for _, imp := range imports {
				tbl.Row(imp.ID, cli.FormatDate(imp.CreatedAt), imp.Filename, imp.SourceType, imp.AccountLabel, imp.AccountType, imp.BatchID)
			}
			return tbl.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an import and every transaction it admitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, fmt.Sprintf("Delete import %d and its transactions?", id))
			if err != nil || !ok {
				return err
			}
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			n, err := e.DeleteImport(ctx, id)
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted import %d and %d transactions", id, n)))
			return nil
		},
	}
	del.Flags().BoolP("yes", "y", false, "skip confirmation")
	cmd.AddCommand(del)

	return cmd
}

func tagsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			tags, err := e.ListTags(ctx)
			if err != nil {
				return err
			}
			for _, t := range tags {
				printLine(cmd, t)
			}
			return nil
		},
	}
}
