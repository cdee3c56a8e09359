// Package handler exposes voucher redemption over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	merchantmodels "cdcvoucher/internal/merchant/models"
	"cdcvoucher/internal/platform/middleware"
	redemptionservice "cdcvoucher/internal/redemption/service"
	"cdcvoucher/internal/transport/http/shared"
	dErrors "cdcvoucher/pkg/domain-errors"
)

// Service defines the redemption operations the handler needs.
type Service interface {
	Redeem(ctx context.Context, barcode, merchantID string) (redemptionservice.Receipt, error)
	RedeemCodes(ctx context.Context, codes []string, merchantID string) (redemptionservice.Receipt, error)
}

// MerchantLookup resolves a merchant id before any voucher state is touched.
type MerchantLookup interface {
	Find(ctx context.Context, merchantID string) (*merchantmodels.Merchant, error)
}

// Handler handles redemption endpoints.
type Handler struct {
	logger      *slog.Logger
	redemptions Service
	merchants   MerchantLookup
}

// New creates a redemption Handler.
func New(redemptions Service, merchants MerchantLookup, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, redemptions: redemptions, merchants: merchants}
}

// Register registers the redemption routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/redemptions", h.handleRedeem)
}

// RedeemRequest redeems either an activation barcode or an explicit code
// bundle. Exactly one of Barcode and VoucherCodes must be set.
type RedeemRequest struct {
	MerchantID   string   `json:"merchant_id"`
	Barcode      string   `json:"barcode,omitempty"`
	VoucherCodes []string `json:"voucher_codes,omitempty"`
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RedeemRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if (req.Barcode == "") == (len(req.VoucherCodes) == 0) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"exactly one of barcode and voucher_codes must be set"))
		return
	}

	if _, err := h.merchants.Find(ctx, req.MerchantID); err != nil {
		shared.WriteError(w, err)
		return
	}

	var (
		receipt redemptionservice.Receipt
		err     error
	)
	if req.Barcode != "" {
		receipt, err = h.redemptions.Redeem(ctx, req.Barcode, req.MerchantID)
	} else {
		receipt, err = h.redemptions.RedeemCodes(ctx, req.VoucherCodes, req.MerchantID)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "redemption failed",
			"request_id", middleware.GetRequestID(ctx),
			"merchant_id", req.MerchantID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, receipt)
}
