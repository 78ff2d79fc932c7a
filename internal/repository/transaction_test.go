package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/kobofi/kobopay/internal/apperror"
	"github.com/kobofi/kobopay/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionFindByReference(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	rows := sqlmock.NewRows(transactionColumns()).
		AddRow("txn-1", "TXN-AABBCCDD0011", "wallet-a", "wallet-b", "transfer", "150.25", "NGN", "rent", "completed", time.Now(), time.Now())

	mock.ExpectQuery(`SELECT (.+) FROM transactions WHERE reference=\$1`).
		WithArgs("TXN-AABBCCDD0011").
		WillReturnRows(rows)

	record, found, err := repo.FindByReference("TXN-AABBCCDD0011")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "txn-1", record.ID)
	assert.True(t, record.Amount.Equal(decimal.NewFromFloat(150.25)))
	assert.Equal(t, models.TransactionStatusCompleted, record.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionFindByReferenceNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM transactions WHERE reference=\$1`).
		WithArgs("TXN-MISSING00000").
		WillReturnError(sql.ErrNoRows)

	record, found, err := repo.FindByReference("TXN-MISSING00000")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, record)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionInsertDuplicateReference(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	record, err := models.NewTransaction(models.NewTransactionInput{
		SenderWalletID:   "wallet-a",
		ReceiverWalletID: "wallet-b",
		Type:             models.TransactionTypeTransfer,
		Amount:           decimal.NewFromInt(10),
		Currency:         models.SupportedCurrency,
	})
	require.NoError(t, err)

	mock.ExpectQuery(`INSERT INTO transactions`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "transactions_reference_key"})

	_, err = repo.Insert(record)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionHistory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	rows := sqlmock.NewRows(transactionColumns()).
		AddRow("txn-2", "TXN-000000000002", "wallet-a", "wallet-b", "transfer", "20", "NGN", nil, "completed", time.Now(), nil).
		AddRow("txn-1", "TXN-000000000001", "wallet-b", "wallet-a", "transfer", "10", "NGN", nil, "completed", time.Now().Add(-time.Hour), nil)

	mock.ExpectQuery(`SELECT (.+) FROM transactions WHERE sender_wallet_id=\$1 OR receiver_wallet_id=\$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("wallet-a", 20, 0).
		WillReturnRows(rows)

	records, err := repo.History("wallet-a", 20, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "txn-2", records[0].ID)
	assert.Equal(t, "txn-1", records[1].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionUpdateStatusNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	mock.ExpectExec(`UPDATE transactions SET status=\$1, updated_at=now\(\) WHERE id=\$2`).
		WithArgs(models.TransactionStatusCancelled, "txn-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus("txn-missing", models.TransactionStatusCancelled)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}
