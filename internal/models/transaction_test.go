package models

import (
	"regexp"
	"strings"
	"testing"

	"github.com/kobofi/kobopay/internal/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTransferInput() NewTransactionInput {
	return NewTransactionInput{
		SenderWalletID:   "wallet-a",
		ReceiverWalletID: "wallet-b",
		Type:             TransactionTypeTransfer,
		Amount:           decimal.NewFromInt(250),
		Currency:         SupportedCurrency,
		Description:      "rent split",
	}
}

func TestNewTransaction(t *testing.T) {
	record, err := NewTransaction(validTransferInput())
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, TransactionStatusPending, record.Status)
	assert.Equal(t, "wallet-a", record.SenderWalletID.String)
	assert.Equal(t, "wallet-b", record.ReceiverWalletID.String)
	assert.True(t, record.Amount.Equal(decimal.NewFromInt(250)))
	assert.Regexp(t, regexp.MustCompile(`^TXN-[0-9A-F]{12}$`), record.Reference)
}

func TestNewTransactionKeepsCallerReference(t *testing.T) {
	input := validTransferInput()
	input.Reference = "TXN-DEADBEEF0001"

	record, err := NewTransaction(input)
	require.NoError(t, err)
	assert.Equal(t, "TXN-DEADBEEF0001", record.Reference)
}

func TestNewTransactionTypeConstraints(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NewTransactionInput)
	}{
		{"transfer missing sender", func(in *NewTransactionInput) { in.SenderWalletID = "" }},
		{"transfer missing receiver", func(in *NewTransactionInput) { in.ReceiverWalletID = "" }},
		{"transfer to self", func(in *NewTransactionInput) { in.ReceiverWalletID = in.SenderWalletID }},
		{"deposit with sender", func(in *NewTransactionInput) { in.Type = TransactionTypeDeposit }},
		{"deposit missing receiver", func(in *NewTransactionInput) {
			in.Type = TransactionTypeDeposit
			in.SenderWalletID = ""
			in.ReceiverWalletID = ""
		}},
		{"withdrawal with receiver", func(in *NewTransactionInput) { in.Type = TransactionTypeWithdrawal }},
		{"withdrawal missing sender", func(in *NewTransactionInput) {
			in.Type = TransactionTypeWithdrawal
			in.SenderWalletID = ""
		}},
		{"unknown type", func(in *NewTransactionInput) { in.Type = "refund" }},
		{"zero amount", func(in *NewTransactionInput) { in.Amount = decimal.Zero }},
		{"negative amount", func(in *NewTransactionInput) { in.Amount = decimal.NewFromInt(-5) }},
		{"unsupported currency", func(in *NewTransactionInput) { in.Currency = "GBP" }},
		{"description too long", func(in *NewTransactionInput) { in.Description = strings.Repeat("x", 501) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validTransferInput()
			tt.mutate(&input)

			_, err := NewTransaction(input)
			require.Error(t, err)
			assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		})
	}
}

func TestNewTransactionDepositAndWithdrawal(t *testing.T) {
	deposit, err := NewTransaction(NewTransactionInput{
		ReceiverWalletID: "wallet-b",
		Type:             TransactionTypeDeposit,
		Amount:           decimal.NewFromInt(100),
		Currency:         SupportedCurrency,
	})
	require.NoError(t, err)
	assert.False(t, deposit.SenderWalletID.Valid)
	assert.True(t, deposit.ReceiverWalletID.Valid)

	withdrawal, err := NewTransaction(NewTransactionInput{
		SenderWalletID: "wallet-a",
		Type:           TransactionTypeWithdrawal,
		Amount:         decimal.NewFromInt(100),
		Currency:       SupportedCurrency,
	})
	require.NoError(t, err)
	assert.True(t, withdrawal.SenderWalletID.Valid)
	assert.False(t, withdrawal.ReceiverWalletID.Valid)
}

func TestGenerateReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := GenerateReference()
		assert.Regexp(t, regexp.MustCompile(`^TXN-[0-9A-F]{12}$`), ref)
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestCompleteOnlyFromPending(t *testing.T) {
	record, err := NewTransaction(validTransferInput())
	require.NoError(t, err)

	require.NoError(t, record.Complete())
	assert.Equal(t, TransactionStatusCompleted, record.Status)
	assert.True(t, record.IsCompleted())

	err = record.Complete()
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindPayment))
}

func TestFailAppendsReasonToDescription(t *testing.T) {
	record, err := NewTransaction(validTransferInput())
	require.NoError(t, err)

	require.NoError(t, record.Fail("insufficient funds"))
	assert.Equal(t, TransactionStatusFailed, record.Status)
	assert.Equal(t, "rent split - Failed: insufficient funds", record.Description.String)
}

func TestFailWithoutDescription(t *testing.T) {
	input := validTransferInput()
	input.Description = ""

	record, err := NewTransaction(input)
	require.NoError(t, err)

	require.NoError(t, record.Fail("receiver wallet not active"))
	assert.Equal(t, "- Failed: receiver wallet not active", record.Description.String)
}

func TestCompletedTransactionCannotFail(t *testing.T) {
	record, err := NewTransaction(validTransferInput())
	require.NoError(t, err)
	require.NoError(t, record.Complete())

	err = record.Fail("too late")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindPayment))
	assert.Equal(t, TransactionStatusCompleted, record.Status)
}

func TestCancelOnlyFromPending(t *testing.T) {
	record, err := NewTransaction(validTransferInput())
	require.NoError(t, err)

	require.NoError(t, record.Cancel())
	assert.Equal(t, TransactionStatusCancelled, record.Status)

	err = record.Cancel()
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindPayment))

	// a failed transaction is terminal as well
	other, err := NewTransaction(validTransferInput())
	require.NoError(t, err)
	require.NoError(t, other.Fail("boom"))
	require.Error(t, other.Cancel())
	require.Error(t, other.Complete())
}
