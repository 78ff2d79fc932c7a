package app

import (
	"net/http"

	"github.com/kobofi/kobopay/internal/handler"
	"github.com/kobofi/kobopay/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.errorHandler, app.Logger, app.DB.User(), &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.errorHandler)
	authHandler := handler.NewAuthHandler(&handler.AuthHandler{
		DB:         app.DB,
		ErrHandler: app.errorHandler,
		Helper:     app.helper,
		Mailer:     app.Mailer,
		Config:     &app.Config,
	})
	walletHandler := handler.NewWalletHandler(&handler.WalletHandler{
		Payments:   app.Payments,
		ErrHandler: app.errorHandler,
	})
	transactionHandler := handler.NewTransactionHandler(&handler.TransactionHandler{
		DB:         app.DB,
		Payments:   app.Payments,
		ErrHandler: app.errorHandler,
	})

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /auth/register", authHandler.HandleAuthRegister)
	mux.HandleFunc("POST /auth/login", authHandler.HandleAuthLogin)

	authenticated := func(h http.HandlerFunc) http.Handler {
		return middlewareRepo.RequireAuthenticatedUser(h)
	}

	mux.Handle("GET /wallet", authenticated(walletHandler.HandleGetWallet))
	mux.Handle("POST /wallet/pin", authenticated(walletHandler.HandleSetPin))
	mux.Handle("POST /wallet/deposit", authenticated(walletHandler.HandleDeposit))
	mux.Handle("POST /wallet/withdraw", authenticated(walletHandler.HandleWithdraw))

	mux.Handle("POST /transfers", authenticated(transactionHandler.HandleTransferMoney))
	mux.Handle("GET /transactions", authenticated(transactionHandler.HandleTransactionHistory))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
