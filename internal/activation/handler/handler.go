// Package handler exposes voucher bundle activation over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cdcvoucher/internal/activation/models"
	"cdcvoucher/internal/platform/middleware"
	"cdcvoucher/internal/transport/http/shared"
)

// Service defines the activation operations the handler needs.
type Service interface {
	Activate(ctx context.Context, householdID string, codes []string) (models.Record, error)
	Find(ctx context.Context, barcode string) (models.Record, error)
}

// Handler handles activation endpoints.
type Handler struct {
	logger      *slog.Logger
	activations Service
}

// New creates an activation Handler.
func New(activations Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, activations: activations}
}

// Register registers the activation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/activations", h.handleActivate)
	r.Get("/activations/{barcode}", h.handleFind)
}

// ActivateRequest is the activation request body.
type ActivateRequest struct {
	HouseholdID  string   `json:"household_id"`
	VoucherCodes []string `json:"voucher_codes"`
}

// ActivateResponse returns the barcode bound to the bundle.
type ActivateResponse struct {
	Barcode      string    `json:"barcode"`
	HouseholdID  string    `json:"household_id"`
	VoucherCodes []string  `json:"voucher_codes"`
	ActivatedAt  time.Time `json:"activated_at"`
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ActivateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.activations.Activate(ctx, req.HouseholdID, req.VoucherCodes)
	if err != nil {
		h.logger.WarnContext(ctx, "activation failed",
			"request_id", middleware.GetRequestID(ctx),
			"household_id", req.HouseholdID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, ActivateResponse{
		Barcode:      record.Barcode,
		HouseholdID:  req.HouseholdID,
		VoucherCodes: record.VoucherCodes,
		ActivatedAt:  record.ActivatedAt,
	})
}

func (h *Handler) handleFind(w http.ResponseWriter, r *http.Request) {
	record, err := h.activations.Find(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, record)
}
