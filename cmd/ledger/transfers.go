package main

import (
	"fmt"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/spf13/cobra"
)

func transfersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "Find and confirm transfers between your accounts",
		Long: `Transfers are a debit in one account matched by a credit of the same
amount in another. Confirmed transfers are excluded from spending reports.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List transfer candidates, most confident first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			candidates, err := e.TransferCandidates(ctx)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No transfer candidates."))
				return nil
			}
			tbl := cli.NewTable(cmd.OutOrStdout(), "Confidence", "Debit", "Credit", "Amount", "Days", "Reason")
			for _, c := range candidates {
				tbl.Row(cli.FormatConfidence(c.ConfidencePct), leg(c.Debit), leg(c.Credit),
					model.FormatCents(model.AbsCents(c.Debit.AmountCents)), c.DayDiff, c.Reason)
			}
			return tbl.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "confirm <id1> <id2>",
		Short: "Mark two transactions as the legs of one transfer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransferPair(cmd, a, args, true)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unconfirm <id1> <id2>",
		Short: "Turn a confirmed transfer back into normal transactions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransferPair(cmd, a, args, false)
		},
	})

	return cmd
}

func leg(t model.Transaction) string {
	label := t.AccountLabel
	if label == "" {
		label = "?"
	}
	return fmt.Sprintf("#%d %s %s", t.ID, cli.FormatDate(t.PostedDate), label)
}

func runTransferPair(cmd *cobra.Command, a *app, args []string, confirmPair bool) error {
	ctx := cmd.Context()
	id1, err := parseID(args[0])
	if err != nil {
		return err
	}
	id2, err := parseID(args[1])
	if err != nil {
		return err
	}
	e, err := a.engine(ctx)
	if err != nil {
		return err
	}

	if !confirmPair {
		if err := e.UnconfirmTransfer(ctx, id1, id2); err != nil {
			return err
		}
		printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Transactions %d and %d are normal again", id1, id2)))
		return nil
	}

	outcome, err := e.ConfirmTransfer(ctx, id1, id2)
	if err != nil {
		return err
	}
	if outcome == model.AlreadyConfirmed {
		printLine(cmd, cli.FormatInfo(fmt.Sprintf("Transactions %d and %d were already a transfer", id1, id2)))
		return nil
	}
	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Confirmed transfer %d ↔ %d", id1, id2)))
	return nil
}
