package models

import (
	"database/sql"
	"strings"
	"time"

	"github.com/kobofi/kobopay/internal/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

const (
	TransactionTypeTransfer   = "transfer"
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
)

const maxDescriptionLength = 500

type Transaction struct {
	ID               string          `db:"id"`
	Reference        string          `db:"reference"`
	SenderWalletID   sql.NullString  `db:"sender_wallet_id"`
	ReceiverWalletID sql.NullString  `db:"receiver_wallet_id"`
	Type             string          `db:"type"`
	Amount           decimal.Decimal `db:"amount"`
	Currency         string          `db:"currency"`
	Description      sql.NullString  `db:"description"`
	Status           string          `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        sql.NullTime    `db:"updated_at"`
}

type NewTransactionInput struct {
	SenderWalletID   string
	ReceiverWalletID string
	Type             string
	Amount           decimal.Decimal
	Currency         string
	Description      string
	Reference        string
}

// NewTransaction builds a pending transaction and enforces the
// per-type wallet constraints. The reference is assigned exactly once
// here; callers that pass their own (idempotent retries) keep it,
// everyone else gets a generated one.
func NewTransaction(input NewTransactionInput) (*Transaction, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.Validation("transaction amount must be positive")
	}

	if input.Currency != SupportedCurrency {
		return nil, apperror.Validation("only " + SupportedCurrency + " currency is supported")
	}

	switch input.Type {
	case TransactionTypeTransfer:
		if input.SenderWalletID == "" || input.ReceiverWalletID == "" {
			return nil, apperror.Validation("transfer transactions require both sender and receiver wallets")
		}
		if input.SenderWalletID == input.ReceiverWalletID {
			return nil, apperror.Validation("cannot transfer to the same wallet")
		}
	case TransactionTypeDeposit:
		if input.ReceiverWalletID == "" {
			return nil, apperror.Validation("deposit transactions require a receiver wallet")
		}
		if input.SenderWalletID != "" {
			return nil, apperror.Validation("deposit transactions should not have a sender wallet")
		}
	case TransactionTypeWithdrawal:
		if input.SenderWalletID == "" {
			return nil, apperror.Validation("withdrawal transactions require a sender wallet")
		}
		if input.ReceiverWalletID != "" {
			return nil, apperror.Validation("withdrawal transactions should not have a receiver wallet")
		}
	default:
		return nil, apperror.Validation("unknown transaction type")
	}

	if len(input.Description) > maxDescriptionLength {
		return nil, apperror.Validation("transaction description cannot exceed 500 characters")
	}

	reference := input.Reference
	if reference == "" {
		reference = GenerateReference()
	}

	transaction := &Transaction{
		ID:        uuid.NewString(),
		Reference: reference,
		Type:      input.Type,
		Amount:    input.Amount,
		Currency:  input.Currency,
		Status:    TransactionStatusPending,
		CreatedAt: time.Now(),
	}

	if input.SenderWalletID != "" {
		transaction.SenderWalletID = sql.NullString{String: input.SenderWalletID, Valid: true}
	}
	if input.ReceiverWalletID != "" {
		transaction.ReceiverWalletID = sql.NullString{String: input.ReceiverWalletID, Valid: true}
	}
	if input.Description != "" {
		transaction.Description = sql.NullString{String: input.Description, Valid: true}
	}

	return transaction, nil
}

// GenerateReference produces a client-facing idempotency key.
func GenerateReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "TXN-" + raw[:12]
}

// Complete moves a pending transaction to its happy terminal state.
func (t *Transaction) Complete() error {
	if t.Status != TransactionStatusPending {
		return apperror.Payment("only pending transactions can be completed")
	}

	t.Status = TransactionStatusCompleted
	t.touch()
	return nil
}

// Fail marks the transaction failed. A completed transaction is
// permanently terminal and can never be failed afterwards.
func (t *Transaction) Fail(reason string) error {
	if t.Status == TransactionStatusCompleted {
		return apperror.Payment("cannot fail a completed transaction")
	}

	t.Status = TransactionStatusFailed
	if reason != "" {
		t.Description = sql.NullString{
			String: strings.TrimSpace(t.Description.String + " - Failed: " + reason),
			Valid:  true,
		}
	}
	t.touch()
	return nil
}

func (t *Transaction) Cancel() error {
	if t.Status != TransactionStatusPending {
		return apperror.Payment("only pending transactions can be cancelled")
	}

	t.Status = TransactionStatusCancelled
	t.touch()
	return nil
}

func (t *Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusCompleted
}

func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

func (t *Transaction) touch() {
	t.UpdatedAt = sql.NullTime{Time: time.Now(), Valid: true}
}
