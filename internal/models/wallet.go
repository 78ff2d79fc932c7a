package models

import (
	"database/sql"
	"time"

	"github.com/kobofi/kobopay/internal/apperror"
	"github.com/kobofi/kobopay/internal/pin"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupportedCurrency is the only currency this deployment moves.
const SupportedCurrency = "NGN"

const (
	WalletStatusActive    = "active"
	WalletStatusSuspended = "suspended"
	WalletStatusLocked    = "locked"
)

type Wallet struct {
	ID        string          `db:"id"`
	UserID    string          `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	Currency  string          `db:"currency"`
	Status    string          `db:"status"`
	PinHash   sql.NullString  `db:"pin_hash"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt sql.NullTime    `db:"updated_at"`
}

// NewWallet creates an active, zero-balance wallet. A PIN is optional
// at creation time; when given it is validated and hashed before it
// ever touches the struct.
func NewWallet(userID, currency, plainPin string) (*Wallet, error) {
	if currency != SupportedCurrency {
		return nil, apperror.Validation("only " + SupportedCurrency + " currency is supported")
	}

	wallet := &Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  currency,
		Status:    WalletStatusActive,
		CreatedAt: time.Now(),
	}

	if plainPin != "" {
		hash, err := pin.Hash(plainPin)
		if err != nil {
			return nil, err
		}
		wallet.PinHash = sql.NullString{String: hash, Valid: true}
	}

	return wallet, nil
}

func (w *Wallet) SetPin(plainPin string) error {
	hash, err := pin.Hash(plainPin)
	if err != nil {
		return err
	}

	w.PinHash = sql.NullString{String: hash, Valid: true}
	w.touch()
	return nil
}

// VerifyPin reports whether the candidate matches the stored PIN hash.
// Having no PIN configured is a validation failure, distinct from a
// wrong PIN, which returns (false, nil) so callers can treat it as an
// authentication failure.
func (w *Wallet) VerifyPin(candidate string) (bool, error) {
	if !w.PinHash.Valid {
		return false, apperror.Validation("no PIN set for this wallet")
	}

	return pin.Matches(candidate, w.PinHash.String)
}

func (w *Wallet) HasPin() bool {
	return w.PinHash.Valid
}

// Credit and Debit are the only operations allowed to change Balance.

func (w *Wallet) Credit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.Validation("credit amount must be positive")
	}

	if !w.IsActive() {
		return apperror.Payment("wallet is not active")
	}

	w.Balance = w.Balance.Add(amount)
	w.touch()
	return nil
}

func (w *Wallet) Debit(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return apperror.Validation("debit amount must be positive")
	}

	if !w.IsActive() {
		return apperror.Payment("wallet is not active")
	}

	if w.Balance.LessThan(amount) {
		return apperror.InsufficientFunds()
	}

	w.Balance = w.Balance.Sub(amount)
	w.touch()
	return nil
}

func (w *Wallet) Activate() {
	w.Status = WalletStatusActive
	w.touch()
}

func (w *Wallet) Suspend() {
	w.Status = WalletStatusSuspended
	w.touch()
}

func (w *Wallet) Lock() {
	w.Status = WalletStatusLocked
	w.touch()
}

func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// HasSufficientBalance is a read-only pre-check. The balance is
// re-validated under the row lock before any debit; this is only for
// cheap rejection before locks are taken.
func (w *Wallet) HasSufficientBalance(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

func (w *Wallet) touch() {
	w.UpdatedAt = sql.NullTime{Time: time.Now(), Valid: true}
}
