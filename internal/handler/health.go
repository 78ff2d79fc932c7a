package handler

import (
	"net/http"

	"github.com/kobofi/kobopay/internal/errHandler"
	"github.com/kobofi/kobopay/internal/response"
	"github.com/kobofi/kobopay/internal/version"
)

type HealthCheckHandler struct {
	ErrHandler *errHandler.ErrorHandler
}

func NewHealthCheckHandler(errHandler *errHandler.ErrorHandler) *HealthCheckHandler {
	return &HealthCheckHandler{ErrHandler: errHandler}
}

func (h *HealthCheckHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status":  "OK",
		"version": version.Get(),
	}

	err := response.JSONOkResponse(w, data, "", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
