package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.Validationf("invalid id %q", s)
	}
	return id, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, common.Validationf("invalid date %q: use YYYY-MM-DD", s)
	}
	return &t, nil
}

// resolveCategory accepts a category id or a case-insensitive name.
func resolveCategory(ctx context.Context, e *engine.Engine, s string) (*model.Category, error) {
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return e.GetCategory(ctx, id)
	}
	return e.FindCategory(ctx, strings.TrimSpace(s))
}

func categoryNames(ctx context.Context, e *engine.Engine) (map[int64]string, error) {
	cats, err := e.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

// confirm asks before a destructive action unless --yes was given.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	return cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(cmd.Context(), question, false)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func printLine(cmd *cobra.Command, s string) {
	fmt.Fprintln(cmd.OutOrStdout(), s)
}

func merchantOf(t *model.Transaction) string {
	return cli.Truncate(t.DisplayMerchant(), 30)
}
