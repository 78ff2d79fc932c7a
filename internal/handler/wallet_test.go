package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestHandleGetWallet(t *testing.T) {
	harness := newTestHarness(t)

	user := harness.seedUser(t, "owner@example.com", 1250)

	walletHandler := NewWalletHandler(&WalletHandler{
		Payments:   harness.payments,
		ErrHandler: harness.errHandler,
	})

	req := authenticatedRequest(t, user, "GET", "/wallet", nil)

	rr := httptest.NewRecorder()
	walletHandler.HandleGetWallet(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	response := decodeResponse(t, rr)
	data, ok := response["data"].(map[string]any)
	require.True(t, ok, "expected response['data'] to be a map")

	require.Equal(t, "1250", data["balance"])
	require.Equal(t, "NGN", data["currency"])
	require.Equal(t, "active", data["status"])
	require.Equal(t, true, data["has_pin"])
}

func TestHandleSetPin(t *testing.T) {
	harness := newTestHarness(t)

	user := harness.seedUser(t, "owner@example.com", 0)

	walletHandler := NewWalletHandler(&WalletHandler{
		Payments:   harness.payments,
		ErrHandler: harness.errHandler,
	})

	t.Run("mismatched confirmation", func(t *testing.T) {
		req := authenticatedRequest(t, user, "POST", "/wallet/pin", map[string]string{
			"pin":         "5678",
			"confirm_pin": "8765",
		})

		rr := httptest.NewRecorder()
		walletHandler.HandleSetPin(rr, req)

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("non-numeric pin", func(t *testing.T) {
		req := authenticatedRequest(t, user, "POST", "/wallet/pin", map[string]string{
			"pin":         "abcd",
			"confirm_pin": "abcd",
		})

		rr := httptest.NewRecorder()
		walletHandler.HandleSetPin(rr, req)

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("valid pin", func(t *testing.T) {
		req := authenticatedRequest(t, user, "POST", "/wallet/pin", map[string]string{
			"pin":         "5678",
			"confirm_pin": "5678",
		})

		rr := httptest.NewRecorder()
		walletHandler.HandleSetPin(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		wallet, found, err := harness.db.Wallet().GetByUserID(user.ID)
		require.NoError(t, err)
		require.True(t, found)

		ok, err := wallet.VerifyPin("5678")
		require.NoError(t, err)
		require.True(t, ok)
	})
}

func TestHandleDeposit(t *testing.T) {
	harness := newTestHarness(t)

	user := harness.seedUser(t, "saver@example.com", 0)

	walletHandler := NewWalletHandler(&WalletHandler{
		Payments:   harness.payments,
		ErrHandler: harness.errHandler,
	})

	req := authenticatedRequest(t, user, "POST", "/wallet/deposit", map[string]string{
		"amount": "500.50",
	})

	rr := httptest.NewRecorder()
	walletHandler.HandleDeposit(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	response := decodeResponse(t, rr)
	data, ok := response["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "deposit", data["type"])
	require.Equal(t, "500.5", data["amount"])

	wallet, found, err := harness.db.Wallet().GetByUserID(user.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, wallet.Balance.Equal(decimal.NewFromFloat(500.50)))
}

func TestHandleWithdraw(t *testing.T) {
	harness := newTestHarness(t)

	user := harness.seedUser(t, "saver@example.com", 500)

	walletHandler := NewWalletHandler(&WalletHandler{
		Payments:   harness.payments,
		ErrHandler: harness.errHandler,
	})

	req := authenticatedRequest(t, user, "POST", "/wallet/withdraw", map[string]string{
		"amount": "200",
		"pin":    testPin,
	})

	rr := httptest.NewRecorder()
	walletHandler.HandleWithdraw(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	wallet, found, err := harness.db.Wallet().GetByUserID(user.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, wallet.Balance.Equal(decimal.NewFromInt(300)))

	t.Run("missing pin", func(t *testing.T) {
		req := authenticatedRequest(t, user, "POST", "/wallet/withdraw", map[string]string{
			"amount": "50",
		})

		rr := httptest.NewRecorder()
		walletHandler.HandleWithdraw(rr, req)

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}
