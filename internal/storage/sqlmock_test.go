package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Veraticus/the-ledger-must-balance/internal/common"
	"github.com/Veraticus/the-ledger-must-balance/internal/model"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*SQLiteStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestTransaction_BusyWriteRollsBack(t *testing.T) {
	s, mock := newMockStorage(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO categories").
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrBusy})
	mock.ExpectRollback()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)

	err = tx.CreateCategory(ctx, &model.Category{Name: "Dining"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrBusy))
	assert.True(t, common.IsRetryable(err))

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_CommitLockedIsBusy(t *testing.T) {
	s, mock := newMockStorage(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE transactions SET note").
		WithArgs("hello", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(sqlite3.Error{Code: sqlite3.ErrLocked})

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SetNote(ctx, 7, "hello"))

	err = tx.Commit()
	assert.ErrorIs(t, err, common.ErrBusy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAlias_UniqueViolation(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec("INSERT INTO merchant_aliases").
		WithArgs("amzn mktp", "Amazon").
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})

	err := s.CreateAlias(context.Background(), &model.MerchantAlias{Alias: "  AMZN Mktp ", Canonical: " Amazon "})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRule_NoRowsIsNotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec("DELETE FROM rules").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteRule(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidation_RejectsBeforeQuery(t *testing.T) {
	s, mock := newMockStorage(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.CreateRule(ctx, &model.Rule{Pattern: "x", MatchType: "fuzzy", CategoryID: 1}), ErrInvalidRule)
	assert.ErrorIs(t, s.CreateCategory(ctx, &model.Category{Name: "  "}), ErrInvalidCategory)
	assert.ErrorIs(t, s.CreateAlias(ctx, &model.MerchantAlias{Alias: "x"}), ErrInvalidAlias)
	assert.ErrorIs(t, s.CreateImport(ctx, &model.Import{}), ErrInvalidImport)
	assert.ErrorIs(t, s.InsertTransaction(ctx, nil), ErrNilParameter)
	//nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, s.SetNote(nil, 1, "x"), ErrNilContext)

	assert.NoError(t, mock.ExpectationsWereMet())
}
