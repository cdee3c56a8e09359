// Package handler exposes household registration and balance lookup over
// HTTP. It delegates to the household service and holds no business logic.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cdcvoucher/internal/household/models"
	"cdcvoucher/internal/platform/middleware"
	"cdcvoucher/internal/transport/http/shared"
	dErrors "cdcvoucher/pkg/domain-errors"
)

// Service defines the household operations the handler needs.
type Service interface {
	Register(ctx context.Context, rawNationalID string) (models.Registration, error)
	Balance(ctx context.Context, householdID string) (models.Pool, error)
}

// Handler handles household endpoints.
type Handler struct {
	logger     *slog.Logger
	households Service
}

// New creates a household Handler.
func New(households Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, households: households}
}

// Register registers the household routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/households", h.handleRegister)
	r.Get("/households/{householdID}/balance", h.handleBalance)
}

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	NationalID string `json:"national_id"`
}

// RegisterResponse echoes the allocated (or existing) household.
type RegisterResponse struct {
	NationalID        string `json:"national_id"`
	HouseholdID       string `json:"household_id"`
	AlreadyRegistered bool   `json:"already_registered"`
}

// BalanceResponse reports unused voucher value per denomination.
type BalanceResponse struct {
	HouseholdID string      `json:"household_id"`
	Total       int         `json:"total"`
	Remaining   map[int]int `json:"remaining"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.households.Register(ctx, req.NationalID)
	if err != nil {
		h.logger.WarnContext(ctx, "household registration failed",
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
		NationalID:        reg.NationalID,
		HouseholdID:       reg.HouseholdID,
		AlreadyRegistered: reg.AlreadyRegistered,
	})
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	householdID := chi.URLParam(r, "householdID")
	if householdID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "household id is required"))
		return
	}

	pool, err := h.households.Balance(ctx, householdID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, BalanceResponse{
		HouseholdID: householdID,
		Total:       pool.Balance(),
		Remaining:   pool.Remaining(),
	})
}
