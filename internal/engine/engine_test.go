package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/the-ledger-must-balance/internal/ingest"
	"github.com/Veraticus/the-ledger-must-balance/internal/metrics"
	"github.com/Veraticus/the-ledger-must-balance/internal/metrics/mocks"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/Veraticus/the-ledger-must-balance/internal/service"
	"github.com/Veraticus/the-ledger-must-balance/internal/storage"
	"github.com/Veraticus/the-ledger-must-balance/internal/testutil"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, categories ...string) (*Engine, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t, categories...)
	return New(db.Storage, "test"), db
}

func jan(d int) time.Time {
	return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func admitRows(t *testing.T, e *Engine, label string, acct model.AccountType, rows ...ingest.Row) AdmitResult {
	t.Helper()
	res, err := e.Admit(context.Background(), ImportRequest{
		Mapping:      testutil.Mapping,
		Filename:     label + ".csv",
		AccountLabel: label,
		AccountType:  acct,
	}, rows)
	require.NoError(t, err)
	return res
}

func allTransactions(t *testing.T, e *Engine) []model.Transaction {
	t.Helper()
	page, err := e.ListTransactions(context.Background(), service.TransactionFilter{})
	require.NoError(t, err)
	return page.Transactions
}

func findByDescription(t *testing.T, e *Engine, desc string) model.Transaction {
	t.Helper()
	for _, txn := range allTransactions(t, e) {
		if txn.DescriptionRaw == desc {
			return txn
		}
	}
	t.Fatalf("no transaction with description %q", desc)
	return model.Transaction{}
}

func TestEngine_RecordsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().ObserveOperation("test", "seed_defaults", metrics.StatusOK, gomock.Any())
	rec.EXPECT().CountRows("test", "seed_defaults", "created", len(DefaultCategories))

	db := testutil.SetupTestDB(t)
	e := New(db.Storage, "test", WithMetrics(rec))

	created, err := e.SeedDefaults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCategories), created)
}

func TestEngine_RecordsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().ObserveOperation("test", "confirm_transfer", metrics.StatusError, gomock.Any())

	db := testutil.SetupTestDB(t)
	e := New(db.Storage, "test", WithMetrics(rec))

	_, err := e.ConfirmTransfer(context.Background(), 1, 2)
	assert.Error(t, err)
}

func TestEngine_ConcurrentApplyRules(t *testing.T) {
	e, db := newTestEngine(t, "Dining")
	ctx := context.Background()

	_, err := e.CreateRule(ctx, RuleInput{Pattern: "coffee", MatchType: model.MatchContains, CategoryID: db.MustCategory("Dining")})
	require.NoError(t, err)
	admitRows(t, e, "Checking", model.AccountChecking, testutil.Series("COFFEE SHOP", -450, jan(1), 1, 20)...)

	var wg sync.WaitGroup
	results := make([]ApplyResult, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.ApplyRules(ctx)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += r.Updated
		assert.Equal(t, 20, r.Total)
	}
	assert.Zero(t, total, "rows were categorized on admission")
}

func TestEngine_ReadsDoNotBlockWrites(t *testing.T) {
	s, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	e := New(s, "test")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = e.read(ctx, func(q service.Store) error {
		if _, err := q.ListCategories(ctx); err != nil {
			return err
		}
		_, err := e.CreateCategory(ctx, CategoryInput{Name: "Groceries"})
		return err
	})
	require.NoError(t, err, "a write completes while an analytics read is open")

	cats, err := e.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}
