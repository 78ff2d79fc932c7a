package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kobofi/kobopay/internal/apperror"
	"github.com/kobofi/kobopay/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type WalletRepository interface {
	Insert(wallet *models.Wallet) error
	GetOne(id string) (*models.Wallet, bool, error)
	GetByUserID(userID string) (*models.Wallet, bool, error)
	SetPin(id, pinHash string) error
	UpdateStatus(id, status string) error

	// Transfer executes the atomic unit of work for a pending transfer
	// record: lock both wallet rows in canonical order, re-validate
	// live state, debit, credit, and persist the record as completed.
	// Any failure aborts the whole unit of work.
	Transfer(ctx context.Context, record *models.Transaction) (*models.Transaction, error)

	// Deposit and Withdraw are the single-wallet units of work.
	Deposit(ctx context.Context, record *models.Transaction) (*models.Transaction, error)
	Withdraw(ctx context.Context, record *models.Transaction) (*models.Transaction, error)
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

func (repo *WalletRepositoryImpl) Insert(wallet *models.Wallet) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO wallets (id, user_id, balance, currency, status, pin_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := repo.db.QueryRowContext(ctx, query,
		wallet.ID,
		wallet.UserID,
		wallet.Balance,
		wallet.Currency,
		wallet.Status,
		wallet.PinHash,
	).Scan(&wallet.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user already has a wallet for this currency")
		}
		return err
	}

	return nil
}

func (repo *WalletRepositoryImpl) GetOne(id string) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
        SELECT id, user_id, balance, currency, status, pin_hash, created_at, updated_at
        FROM wallets WHERE id=$1`

	err := repo.db.GetContext(ctx, &wallet, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

func (repo *WalletRepositoryImpl) GetByUserID(userID string) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
        SELECT id, user_id, balance, currency, status, pin_hash, created_at, updated_at
        FROM wallets WHERE user_id=$1 AND currency=$2`

	err := repo.db.GetContext(ctx, &wallet, query, userID, models.SupportedCurrency)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

func (repo *WalletRepositoryImpl) SetPin(id, pinHash string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE wallets SET pin_hash=$1, updated_at=now() WHERE id=$2`

	result, err := repo.db.ExecContext(ctx, query, pinHash, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperror.NotFound("wallet not found")
	}

	return nil
}

func (repo *WalletRepositoryImpl) UpdateStatus(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE wallets SET status=$1, updated_at=now() WHERE id=$2`

	_, err := repo.db.ExecContext(ctx, query, status, id)
	return err
}

func (repo *WalletRepositoryImpl) Transfer(ctx context.Context, record *models.Transaction) (*models.Transaction, error) {
	senderID := record.SenderWalletID.String
	receiverID := record.ReceiverWalletID.String
	amount := record.Amount

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	// Both rows are locked smallest-id-first, regardless of which one
	// is the sender. Locking in caller order would deadlock against a
	// concurrent opposite-direction transfer.
	firstID, secondID := senderID, receiverID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	locked := make(map[string]*models.Wallet, 2)
	for _, id := range []string{firstID, secondID} {
		wallet, err := lockWallet(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = wallet
	}

	sender := locked[senderID]
	receiver := locked[receiverID]

	// The pre-lock checks may be stale by now; validate the live rows.
	if !sender.IsActive() {
		return nil, apperror.Payment("sender wallet is not active")
	}
	if !receiver.IsActive() {
		return nil, apperror.Payment("receiver wallet is not active")
	}
	if sender.Balance.LessThan(amount) {
		return nil, apperror.InsufficientFunds()
	}

	if err := adjustBalance(ctx, tx, senderID, amount.Neg()); err != nil {
		return nil, err
	}
	if err := adjustBalance(ctx, tx, receiverID, amount); err != nil {
		return nil, err
	}

	completed, err := insertCompletedTransaction(ctx, tx, record)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return completed, nil
}

func (repo *WalletRepositoryImpl) Deposit(ctx context.Context, record *models.Transaction) (*models.Transaction, error) {
	receiverID := record.ReceiverWalletID.String

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	receiver, err := lockWallet(ctx, tx, receiverID)
	if err != nil {
		return nil, err
	}

	if !receiver.IsActive() {
		return nil, apperror.Payment("wallet is not active")
	}

	if err := adjustBalance(ctx, tx, receiverID, record.Amount); err != nil {
		return nil, err
	}

	completed, err := insertCompletedTransaction(ctx, tx, record)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return completed, nil
}

func (repo *WalletRepositoryImpl) Withdraw(ctx context.Context, record *models.Transaction) (*models.Transaction, error) {
	senderID := record.SenderWalletID.String

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	sender, err := lockWallet(ctx, tx, senderID)
	if err != nil {
		return nil, err
	}

	if !sender.IsActive() {
		return nil, apperror.Payment("wallet is not active")
	}
	if sender.Balance.LessThan(record.Amount) {
		return nil, apperror.InsufficientFunds()
	}

	if err := adjustBalance(ctx, tx, senderID, record.Amount.Neg()); err != nil {
		return nil, err
	}

	completed, err := insertCompletedTransaction(ctx, tx, record)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return completed, nil
}

func lockWallet(ctx context.Context, tx *sqlx.Tx, id string) (*models.Wallet, error) {
	var wallet models.Wallet

	query := `
		SELECT id, user_id, balance, currency, status, created_at
		FROM wallets WHERE id=$1 FOR UPDATE`

	err := tx.GetContext(ctx, &wallet, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("wallet not found")
		}
		return nil, err
	}

	return &wallet, nil
}

func adjustBalance(ctx context.Context, tx *sqlx.Tx, id string, delta decimal.Decimal) error {
	query := `UPDATE wallets SET balance=balance+$1, updated_at=now() WHERE id=$2`

	_, err := tx.ExecContext(ctx, query, delta, id)
	return err
}

func insertCompletedTransaction(ctx context.Context, tx *sqlx.Tx, record *models.Transaction) (*models.Transaction, error) {
	var completed models.Transaction

	query := `
		INSERT INTO transactions (id, reference, sender_wallet_id, receiver_wallet_id, type, amount, currency, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		RETURNING id, reference, sender_wallet_id, receiver_wallet_id, type, amount, currency, description, status, created_at, updated_at`

	err := tx.GetContext(ctx, &completed, query,
		record.ID,
		record.Reference,
		record.SenderWalletID,
		record.ReceiverWalletID,
		record.Type,
		record.Amount,
		record.Currency,
		record.Description,
		models.TransactionStatusCompleted,
		record.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("a transaction with this reference already exists")
		}
		return nil, err
	}

	return &completed, nil
}
