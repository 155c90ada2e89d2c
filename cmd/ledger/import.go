package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/the-ledger-must-balance/internal/cli"
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/engine"
	"github.com/Veraticus/the-ledger-must-balance/internal/ingest"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/ofx"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type importOptions struct {
	sourceType   string
	accountLabel string
	accountType  string
	batchID      string
	verbose      bool
}

type fileResult struct {
	file   string
	result engine.AdmitResult
}

func importCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import CSV or OFX/QFX statements",
		Long: `Import bank statements into the selected profile.

Files ending in .ofx or .qfx are parsed as OFX; everything else is read as
CSV using the column preset named by --source-type. Rows already in the
ledger are skipped, so re-running an import is safe.

Examples:
  ledger import ~/Downloads/chase_*.csv --source-type chase --account-label "Chase Checking"
  ledger import ~/Downloads/ally.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.sourceType, "source-type", "generic", "CSV preset ("+strings.Join(ingest.SourceTypes(), ", ")+")")
	cmd.Flags().StringVar(&opts.accountLabel, "account-label", "", "account name shown on imported rows")
	cmd.Flags().StringVar(&opts.accountType, "account-type", "", "account type (checking, savings, credit)")
	cmd.Flags().StringVar(&opts.batchID, "batch-id", "", "batch UUID (single file only; generated when empty)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "list rows that could not be parsed")

	return cmd
}

func runImport(cmd *cobra.Command, a *app, opts importOptions, args []string) error {
	if opts.batchID != "" && len(args) > 1 {
		return common.Validationf("--batch-id can only be used with a single file")
	}

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Re-run the same import; rows already admitted are skipped.")
	ctx, stop := interrupts.HandleInterrupts(cmd.Context())
	defer stop()

	e, err := a.engine(ctx)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Importing statements"),
		progressbar.OptionClearOnFinish(),
	)

	var results []fileResult
	for _, file := range files {
		res, err := importFile(ctx, e, opts, file)
		if err != nil {
			if interrupts.WasInterrupted() {
				return ctx.Err()
			}
			return fmt.Errorf("failed to import %s: %w", file, err)
		}
		results = append(results, res...)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	tbl := cli.NewTable(cmd.OutOrStdout(), "File", "Batch", "Inserted", "Skipped", "Invalid")
	var inserted int
	for _, r := range results {
		tbl.Row(filepath.Base(r.file), r.result.BatchID, r.result.Inserted, r.result.Skipped, r.result.Invalid)
		inserted += r.result.Inserted
	}
	if err := tbl.Flush(); err != nil {
		return err
	}

	if opts.verbose {
		for _, r := range results {
			for _, bad := range r.result.InvalidRows {
				printLine(cmd, cli.FormatWarning(fmt.Sprintf("%s row %d: %s", filepath.Base(r.file), bad.Index, bad.Reason)))
			}
		}
	}

	printLine(cmd, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions into %s", inserted, e.Profile())))
	return nil
}

func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, common.Validationf("invalid pattern %s: %v", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err != nil {
				return nil, common.NotFoundf("no files match %s", pattern)
			}
			matches = []string{pattern}
		}
		files = append(files, matches...)
	}
	return files, nil
}

func importFile(ctx context.Context, e *engine.Engine, opts importOptions, file string) ([]fileResult, error) {
	f, err := os.Open(file) // #nosec G304 -- user supplied statement path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	req := engine.ImportRequest{
		BatchID:      opts.batchID,
		Filename:     filepath.Base(file),
		AccountLabel: opts.accountLabel,
		AccountType:  model.AccountType(opts.accountType),
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".ofx", ".qfx":
		statements, err := ofx.Parse(ctx, f)
		if err != nil {
			return nil, err
		}
		var out []fileResult
		for i, st := range statements {
			r := req
			r.Mapping = ofx.Mapping
			r.SourceType = "ofx"
			if r.AccountLabel == "" {
				r.AccountLabel = st.AccountID
			}
			if r.AccountType == model.AccountUnknown {
				r.AccountType = st.AccountType
			}
			if r.BatchID == "" || i > 0 {
				r.BatchID = uuid.NewString()
			}
			res, err := e.Admit(ctx, r, st.Rows)
			if err != nil {
				return nil, err
			}
			out = append(out, fileResult{file: file, result: res})
		}
		return out, nil

	default:
		headers, rows, err := ingest.ReadCSV(f)
		if err != nil {
			return nil, common.Validationf("%v", err)
		}
		mapping, err := ingest.DetectMapping(opts.sourceType, headers)
		if err != nil {
			return nil, common.Validationf("%v", err)
		}
		req.Mapping = mapping
		req.SourceType = strings.ToLower(opts.sourceType)
		if req.BatchID == "" {
			req.BatchID = uuid.NewString()
		}
		res, err := e.Admit(ctx, req, rows)
		if err != nil {
			return nil, err
		}
		return []fileResult{{file: file, result: res}}, nil
	}
}
