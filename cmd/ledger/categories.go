package main

import (
	"fmt"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func categoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List, add, update, and delete the categories transactions are assigned to.`,
	}

	cmd.AddCommand(listCategoriesCmd(a))
	cmd.AddCommand(createCategoryCmd(a))
	cmd.AddCommand(updateCategoryCmd(a))
	cmd.AddCommand(deleteCategoryCmd(a))
	cmd.AddCommand(seedCategoriesCmd(a))

	return cmd
}

func listCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			cats, err := e.ListCategories(ctx)
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No categories found. Use 'ledger categories seed' for the defaults."))
				return nil
			}

			tbl := cli.NewTable(cmd.OutOrStdout(), "ID", "Name", "Budget", "Color", "Tax")
			for _, c := range cats {
				budget := cli.SubtleStyle.Render("-")
				if c.MonthlyBudget != nil {
					budget = model.FormatCents(*c.MonthlyBudget)
				}
				tax := ""
				if c.TaxDeductible {
					tax = cli.SuccessIcon
				}
				name := c.Name
				if c.Icon != "" {
					name = c.Icon + " " + name
				}
				tbl.Row(c.ID, name, budget, c.Color, tax)
			}
			return tbl.Flush()
		},
	}
}

type categoryFlags struct {
	color  string
	icon   string
	budget string
	tax    bool
}

func (f *categoryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.color, "color", "", "hex color, e.g. #22C55E")
	cmd.Flags().StringVar(&f.icon, "icon", "", "icon shown next to the name")
	cmd.Flags().StringVar(&f.budget, "budget", "", "monthly budget, e.g. 400.00")
	cmd.Flags().BoolVar(&f.tax, "tax-deductible", false, "mark as tax deductible")
}

func parseBudget(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, common.Validationf("invalid budget %q", s)
	}
	cents := d.Shift(2).Round(0).IntPart()
	return &cents, nil
}

func createCategoryCmd(a *app) *cobra.Command {
	var f categoryFlags

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			budget, err := parseBudget(f.budget)
			if err != nil {
				return err
			}
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			c, err := e.CreateCategory(ctx, engine.CategoryInput{
				Name:          args[0],
				Color:         f.color,
				Icon:          f.icon,
				MonthlyBudget: budget,
				TaxDeductible: f.tax,
			})
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Created category %d: %s", c.ID, c.Name)))
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func updateCategoryCmd(a *app) *cobra.Command {
	var (
		f    categoryFlags
		name string
	)

	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Change a category; flags left unset keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			c, err := resolveCategory(ctx, e, args[0])
			if err != nil {
				return err
			}

			in := engine.CategoryInput{
				Name:          c.Name,
				Color:         c.Color,
				Icon:          c.Icon,
				MonthlyBudget: c.MonthlyBudget,
				IsDefault:     c.IsDefault,
				TaxDeductible: c.TaxDeductible,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = name
			}
			if flags.Changed("color") {
				in.Color = f.color
			}
			if flags.Changed("icon") {
				in.Icon = f.icon
			}
			if flags.Changed("budget") {
				if in.MonthlyBudget, err = parseBudget(f.budget); err != nil {
					return err
				}
			}
			if flags.Changed("tax-deductible") {
				in.TaxDeductible = f.tax
			}

			updated, err := e.UpdateCategory(ctx, c.ID, in)
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Updated category %d: %s", updated.ID, updated.Name)))
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "new name")
	return cmd
}

func deleteCategoryCmd(a *app) *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete a category",
		Long: `Delete a category. With --policy block (the default) a category still
used by transactions or rules cannot be deleted. With --policy cascade those
transactions become uncategorized and the rules are deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			c, err := resolveCategory(ctx, e, args[0])
			if err != nil {
				return err
			}

			p := model.DeletePolicy(policy)
			if p == model.DeleteCascade {
				ok, err := confirm(cmd, fmt.Sprintf("Delete %s, uncategorize its transactions and delete its rules?", c.Name))
				if err != nil || !ok {
					return err
				}
			}

			res, err := e.DeleteCategory(ctx, c.ID, p)
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted category %s (%d transactions cleared, %d rules deleted)",
				c.Name, res.ClearedTransactions, res.DeletedRules)))
			return nil
		},
	}

	cmd.Flags().StringVar(&policy, "policy", string(model.DeleteBlock), "block or cascade")
	cmd.Flags().BoolP("yes", "y", false, "skip confirmation")
	return cmd
}

func seedCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the default categories that are missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			n, err := e.SeedDefaults(ctx)
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Added %d default categories", n)))
			return nil
		},
	}
}
