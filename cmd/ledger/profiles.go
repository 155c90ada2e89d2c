package main

import (
	"fmt"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/profile"
	"github.com/spf13/cobra"
)

func profilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage profiles, each an isolated ledger",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := a.manager.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No profiles yet. Use 'ledger profiles create' to add one."))
				return nil
			}
			current := profile.SanitizeName(a.v.GetString("profile"))
			for _, n := range names {
				if n == current {
					printLine(cmd, cli.SuccessStyle.Render("* "+n))
					continue
				}
				printLine(cmd, "  "+n)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile with the default categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := a.manager.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Created profile %s", name)))
			return nil
		},
	})

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile and its database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, fmt.Sprintf("Delete profile %s and all its data?", args[0]))
			if err != nil || !ok {
				return err
			}
			if err := a.manager.Delete(args[0]); err != nil {
				return err
			}
			printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Deleted profile %s", profile.SanitizeName(args[0]))))
			return nil
		},
	}
	del.Flags().BoolP("yes", "y", false, "skip confirmation")
	cmd.AddCommand(del)

	return cmd
}
