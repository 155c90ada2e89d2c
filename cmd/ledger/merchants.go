package main

import (
	"fmt"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/spf13/cobra"
)

func merchantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merchants",
		Short: "Manage merchant aliases",
		Long: `Aliases map the raw merchant names banks print to one canonical name,
e.g. "SQ *RITUAL COFFEE" to "Ritual". Changing aliases only affects existing
transactions after 'ledger merchants rebuild'.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "aliases",
		Short: "List merchant aliases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			aliases, err := e.ListAliases(ctx)
			if err != nil {
				return err
			}
			if len(aliases) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No aliases yet. Use 'ledger merchants alias-add' to create one."))
				return nil
			}
			tbl := cli.NewTable(cmd.OutOrStdout(), "ID", "Alias", "Canonical")
			for _, al := range aliases {
				tbl.Row(al.ID, al.Alias, al.Canonical)
			}
			return tbl.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "alias-add <alias> <canonical>",
		Short: "Map a raw merchant name to a canonical one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			al, err := e.CreateAlias(ctx, engine.AliasInput{Alias: args[0], Canonical: args[1]})
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Created alias %d: %s → %s", al.ID, al.Alias, al.Canonical)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "alias-update <id> <alias> <canonical>",
		Short: "Replace an alias",
		Args:  cobra.ExactArgs(3),
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
			al, err := e.UpdateAlias(ctx, id, engine.AliasInput{Alias: args[1], Canonical: args[2]})
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Updated alias %d: %s → %s", al.ID, al.Alias, al.Canonical)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "alias-delete <id>",
		Short: "Delete an alias",
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
			if err := e.DeleteAlias(ctx, id); err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted alias %d", id)))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Recompute canonical merchants from the alias table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			res, err := e.RebuildCanonicalMerchants(ctx)
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Updated %d of %d transactions", res.Updated, res.Total)))
			return nil
		},
	})

	return cmd
}
