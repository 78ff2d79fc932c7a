package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kobofi/kobopay/internal/apperror"
	"github.com/kobofi/kobopay/internal/models"

	"github.com/jmoiron/sqlx"
)

type TransactionRepository interface {
	Insert(record *models.Transaction) (*models.Transaction, error)
	GetOne(id string) (*models.Transaction, bool, error)
	FindByReference(reference string) (*models.Transaction, bool, error)
	// History returns the transactions a wallet took part in, newest
	// first.
	History(walletID string, limit, offset int) ([]models.Transaction, error)
	UpdateStatus(id, status string) error
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

func (repo *TransactionRepositoryImpl) Insert(record *models.Transaction) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var inserted models.Transaction

	query := `
		INSERT INTO transactions (id, reference, sender_wallet_id, receiver_wallet_id, type, amount, currency, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, reference, sender_wallet_id, receiver_wallet_id, type, amount, currency, description, status, created_at, updated_at`

	err := repo.db.GetContext(ctx, &inserted, query,
		record.ID,
		record.Reference,
		record.SenderWalletID,
		record.ReceiverWalletID,
		record.Type,
		record.Amount,
		record.Currency,
		record.Description,
		record.Status,
		record.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("a transaction with this reference already exists")
		}
		return nil, err
	}

	return &inserted, nil
}

func (repo *TransactionRepositoryImpl) GetOne(id string) (*models.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var record models.Transaction

	query := `
        SELECT id, reference, sender_wallet_id, receiver_wallet_id, type, amount, currency, description, status, created_at, updated_at
        FROM transactions WHERE id=$1`

	err := repo.db.GetContext(ctx, &record, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &record, true, nil
}

func (repo *TransactionRepositoryImpl) FindByReference(reference string) (*models.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var record models.Transaction

	query := `
        SELECT id, reference, sender_wallet_id, receiver_wallet_id, type, amount, currency, description, status, created_at, updated_at
        FROM transactions WHERE reference=$1`

	err := repo.db.GetContext(ctx, &record, query, reference)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &record, true, nil
}

func (repo *TransactionRepositoryImpl) History(walletID string, limit, offset int) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	records := []models.Transaction{}

	query := `
        SELECT id, reference, sender_wallet_id, receiver_wallet_id, type, amount, currency, description, status, created_at, updated_at
        FROM transactions
        WHERE sender_wallet_id=$1 OR receiver_wallet_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	err := repo.db.SelectContext(ctx, &records, query, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (repo *TransactionRepositoryImpl) UpdateStatus(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE transactions SET status=$1, updated_at=now() WHERE id=$2`

	result, err := repo.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperror.NotFound("transaction not found")
	}

	return nil
}
