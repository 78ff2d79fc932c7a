package models

import (
	"testing"

	"github.com/kobofi/kobopay/internal/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	wallet, err := NewWallet("user-1", SupportedCurrency, "")
	require.NoError(t, err)

	assert.NotEmpty(t, wallet.ID)
	assert.Equal(t, "user-1", wallet.UserID)
	assert.True(t, wallet.Balance.IsZero())
	assert.Equal(t, WalletStatusActive, wallet.Status)
	assert.False(t, wallet.HasPin())
}

func TestNewWalletRejectsUnsupportedCurrency(t *testing.T) {
	_, err := NewWallet("user-1", "USD", "")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestNewWalletWithPin(t *testing.T) {
	wallet, err := NewWallet("user-1", SupportedCurrency, "1234")
	require.NoError(t, err)
	assert.True(t, wallet.HasPin())

	ok, err := wallet.VerifyPin("1234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = wallet.VerifyPin("9999")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPinWithoutPinSet(t *testing.T) {
	wallet, err := NewWallet("user-1", SupportedCurrency, "")
	require.NoError(t, err)

	_, err = wallet.VerifyPin("1234")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestSetPinReplacesExisting(t *testing.T) {
	wallet, err := NewWallet("user-1", SupportedCurrency, "1234")
	require.NoError(t, err)

	require.NoError(t, wallet.SetPin("5678"))

	ok, err := wallet.VerifyPin("1234")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = wallet.VerifyPin("5678")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreditAndDebit(t *testing.T) {
	wallet, err := NewWallet("user-1", SupportedCurrency, "")
	require.NoError(t, err)

	require.NoError(t, wallet.Credit(decimal.NewFromFloat(150.25)))
	assert.True(t, wallet.Balance.Equal(decimal.NewFromFloat(150.25)))

	require.NoError(t, wallet.Debit(decimal.NewFromFloat(50.25)))
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100)))
}

func TestDebitCannotOverdraw(t *testing.T) {
	wallet, err := NewWallet("user-1", SupportedCurrency, "")
	require.NoError(t, err)
	require.NoError(t, wallet.Credit(decimal.NewFromInt(100)))

	err = wallet.Debit(decimal.NewFromFloat(100.01))
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInsufficientFunds))

	// balance untouched after the failed debit
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100)))

	// exact balance can still be drained to zero
	require.NoError(t, wallet.Debit(decimal.NewFromInt(100)))
	assert.True(t, wallet.Balance.IsZero())
}

func TestCreditAndDebitRejectNonPositiveAmounts(t *testing.T) {
	wallet, err := NewWallet("user-1", SupportedCurrency, "")
	require.NoError(t, err)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		err = wallet.Credit(amount)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))

		err = wallet.Debit(amount)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	}
}

func TestInactiveWalletRefusesBalanceChanges(t *testing.T) {
	wallet, err := NewWallet("user-1", SupportedCurrency, "")
	require.NoError(t, err)
	require.NoError(t, wallet.Credit(decimal.NewFromInt(100)))

	for _, transition := range []func(){wallet.Suspend, wallet.Lock} {
		transition()
		assert.False(t, wallet.IsActive())

		err = wallet.Credit(decimal.NewFromInt(10))
		assert.True(t, apperror.IsKind(err, apperror.KindPayment))

		err = wallet.Debit(decimal.NewFromInt(10))
		assert.True(t, apperror.IsKind(err, apperror.KindPayment))
	}

	wallet.Activate()
	require.NoError(t, wallet.Debit(decimal.NewFromInt(10)))
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(90)))
}

func TestHasSufficientBalance(t *testing.T) {
	wallet, err := NewWallet("user-1", SupportedCurrency, "")
	require.NoError(t, err)
	require.NoError(t, wallet.Credit(decimal.NewFromInt(100)))

	assert.True(t, wallet.HasSufficientBalance(decimal.NewFromInt(100)))
	assert.True(t, wallet.HasSufficientBalance(decimal.NewFromInt(1)))
	assert.False(t, wallet.HasSufficientBalance(decimal.NewFromFloat(100.01)))
}
