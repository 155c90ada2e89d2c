package main

import (
	"fmt"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/spf13/cobra"
)

func rulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long: `Rules assign categories to transactions whose description matches a
pattern. Higher priority wins; ties go to the older rule.`,
	}

	cmd.AddCommand(listRulesCmd(a))
	cmd.AddCommand(createRuleCmd(a))
	cmd.AddCommand(updateRuleCmd(a))
	cmd.AddCommand(deleteRuleCmd(a))
	cmd.AddCommand(applyRulesCmd(a))

	return cmd
}

func listRulesCmd(a *app) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			rules, err := e.ListRules(ctx, activeOnly)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No rules found. Use 'ledger rules create' to add one."))
				return nil
			}
			names, err := categoryNames(ctx, e)
			if err != nil {
				return err
			}

			tbl := cli.NewTable(cmd.OutOrStdout(), "ID", "Priority", "Type", "Pattern", "Category", "Active")
			for _, r := range rules {
				active := cli.SuccessIcon
				if !r.IsActive {
					active = cli.SubtleStyle.Render("-")
				}
				tbl.Row(r.ID, r.Priority, r.MatchType, r.Pattern, cli.FormatCategory(&r.CategoryID, names), active)
			}
			return tbl.Flush()
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active rules")
	return cmd
}

type ruleFlags struct {
	pattern   string
	matchType string
	category  string
	priority  int
	inactive  bool
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pattern, "pattern", "", "text or regular expression to match")
	cmd.Flags().StringVar(&f.matchType, "match-type", string(model.MatchContains), "contains, exact or regex")
	cmd.Flags().StringVar(&f.category, "category", "", "category id or name")
	cmd.Flags().IntVar(&f.priority, "priority", model.DefaultRulePriority, "priority, higher wins (0-1000)")
	cmd.Flags().BoolVar(&f.inactive, "inactive", false, "create the rule disabled")
}

func createRuleCmd(a *app) *cobra.Command {
	var f ruleFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a rule",
		Example: `  ledger rules create --pattern "TRADER JOE" --category Groceries
  ledger rules create --pattern "^UBER\s" --match-type regex --category Transport --priority 80`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			c, err := resolveCategory(ctx, e, f.category)
			if err != nil {
				return err
			}
			active := !f.inactive
			rule, err := e.CreateRule(ctx, engine.RuleInput{
				Pattern:    f.pattern,
				MatchType:  model.MatchType(f.matchType),
				CategoryID: c.ID,
				Priority:   &f.priority,
				IsActive:   &active,
			})
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Created rule %d: %s %q → %s", rule.ID, rule.MatchType, rule.Pattern, c.Name)))
			printLine(cmd, cli.SubtleStyle.Render("Run 'ledger rules apply' to recategorize existing transactions."))
			return nil
		},
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("pattern")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func updateRuleCmd(a *app) *cobra.Command {
	var f ruleFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a rule; flags left unset keep their value",
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
			current, err := e.GetRule(ctx, id)
			if err != nil {
				return err
			}

			in := engine.RuleInput{
				Pattern:    current.Pattern,
				MatchType:  current.MatchType,
				CategoryID: current.CategoryID,
				Priority:   &current.Priority,
				IsActive:   &current.IsActive,
			}
			flags := cmd.Flags()
			if flags.Changed("pattern") {
				in.Pattern = f.pattern
			}
			if flags.Changed("match-type") {
				in.MatchType = model.MatchType(f.matchType)
			}
			if flags.Changed("category") {
				c, err := resolveCategory(ctx, e, f.category)
				if err != nil {
					return err
				}
				in.CategoryID = c.ID
			}
			if flags.Changed("priority") {
				in.Priority = &f.priority
			}
			if flags.Changed("inactive") {
				active := !f.inactive
				in.IsActive = &active
			}

			rule, err := e.UpdateRule(ctx, id, in)
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Updated rule %d", rule.ID)))
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

func deleteRuleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
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
			if err := e.DeleteRule(ctx, id); err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted rule %d", id)))
			return nil
		},
	}
}

func applyRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Recategorize every rule-managed or uncategorized transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			res, err := e.ApplyRules(ctx)
			if err != nil {
				return err
			}
			for _, d := range res.DisabledRules {
				printLine(cmd, cli.FormatWarning(fmt.Sprintf("Rule %d skipped: %s", d.RuleID, d.Reason)))
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Updated %d of %d transactions (%d unchanged)",
				res.Updated, res.Total, res.Unchanged)))
			if res.Skipped > 0 {
				printLine(cmd, cli.FormatWarning(fmt.Sprintf("%d transactions could not be updated; see the log", res.Skipped)))
			}
			return nil
		},
	}
}
