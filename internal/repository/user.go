package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kobofi/kobopay/internal/apperror"
	"github.com/kobofi/kobopay/internal/models"

	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	// CreateWithWallet inserts a user and their zero-balance wallet in
	// one unit of work. A user never exists without a wallet.
	CreateWithWallet(ctx context.Context, user *models.User, wallet *models.Wallet) error
	GetOne(id string) (*models.User, bool, error)
	GetByEmail(email string) (*models.User, bool, error)
	CheckIfPhoneNumberExist(phoneNumber string) (bool, error)
	Lock(id string) error
}

type UserRepositoryImpl struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (repo *UserRepositoryImpl) CreateWithWallet(ctx context.Context, user *models.User, wallet *models.Wallet) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	query := `
		INSERT INTO users (id, first_name, last_name, phone_number, email, status, hashed_password)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err = tx.QueryRowContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.PhoneNumber,
		user.Email,
		models.UserStatusActive,
		user.HashedPassword,
	).Scan(&user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("an account already exists for this email or phone number")
		}
		return err
	}

	wallet.UserID = user.ID

	query = `
		INSERT INTO wallets (id, user_id, balance, currency, status, pin_hash)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.ExecContext(ctx, query,
		wallet.ID,
		wallet.UserID,
		wallet.Balance,
		wallet.Currency,
		wallet.Status,
		wallet.PinHash,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user already has a wallet for this currency")
		}
		return err
	}

	return tx.Commit()
}

func (repo *UserRepositoryImpl) GetOne(id string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user models.User

	query := `
        SELECT id, first_name, last_name, phone_number, email, status, hashed_password, created_at
        FROM users WHERE id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &user, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) GetByEmail(email string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user models.User

	query := `
        SELECT id, first_name, last_name, phone_number, email, status, hashed_password, created_at
        FROM users WHERE email=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &user, query, email)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) CheckIfPhoneNumberExist(phoneNumber string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM users WHERE phone_number=$1)`

	err := repo.db.GetContext(ctx, &exists, query, phoneNumber)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (repo *UserRepositoryImpl) Lock(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET status=$1 WHERE id=$2`

	_, err := repo.db.ExecContext(ctx, query, models.UserStatusLocked, id)
	return err
}
