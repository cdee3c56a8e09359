// Package handler exposes merchant registration over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	merchantservice "cdcvoucher/internal/merchant/service"
	"cdcvoucher/internal/platform/middleware"
	"cdcvoucher/internal/transport/http/shared"
)

// Service defines the merchant operations the handler needs.
type Service interface {
	Register(ctx context.Context, name, bankName, accountNumber, accountHolder string) (merchantservice.Registration, error)
}

// Handler handles merchant endpoints.
type Handler struct {
	logger    *slog.Logger
	merchants Service
}

// New creates a merchant Handler.
func New(merchants Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, merchants: merchants}
}

// Register registers the merchant routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/merchants", h.handleRegister)
}

// RegisterRequest is the merchant registration request body.
type RegisterRequest struct {
	Name          string `json:"merchant_name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder_name"`
}

// RegisterResponse echoes the registered merchant.
type RegisterResponse struct {
	MerchantID        string `json:"merchant_id"`
	Name              string `json:"merchant_name"`
	BankName          string `json:"bank_name"`
	AccountNumber     string `json:"account_number"`
	AccountHolder     string `json:"account_holder_name"`
	AlreadyRegistered bool   `json:"already_registered"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.merchants.Register(ctx, req.Name, req.BankName, req.AccountNumber, req.AccountHolder)
	if err != nil {
		h.logger.WarnContext(ctx, "merchant registration failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if reg.AlreadyRegistered {
		status = http.StatusOK
	}
	shared.WriteJSON(w, status, RegisterResponse{
		MerchantID:        reg.Merchant.ID,
		Name:              reg.Merchant.Name,
		BankName:          reg.Merchant.BankName,
		AccountNumber:     reg.Merchant.AccountNumber,
		AccountHolder:     reg.Merchant.AccountHolder,
		AlreadyRegistered: reg.AlreadyRegistered,
	})
}
