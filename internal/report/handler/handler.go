// Package handler exposes merchant statements and the master redemption
// report over HTTP. CSV downloads carry the same filename convention the
// scheme's back office already expects.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cdcvoucher/internal/platform/middleware"
	reportservice "cdcvoucher/internal/report/service"
	"cdcvoucher/internal/transport/http/shared"
	dErrors "cdcvoucher/pkg/domain-errors"
	"cdcvoucher/pkg/requestcontext"
)

// Service defines the reporting operations the handler needs.
type Service interface {
	MerchantStatement(ctx context.Context, merchantID string) (reportservice.Statement, error)
	MasterReport(ctx context.Context) ([]reportservice.MasterRow, error)
}

// Handler handles reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	reports Service
}

// New creates a reporting Handler.
func New(reports Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, reports: reports}
}

// Register registers the reporting routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/merchants/{merchantID}/transactions", h.handleStatement)
	r.Get("/merchants/{merchantID}/transactions.csv", h.handleStatementCSV)
	r.Get("/reports/master.csv", h.handleMasterCSV)
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	statement, err := h.statement(w, r)
	if err != nil {
		return
	}
	shared.WriteJSON(w, http.StatusOK, statement)
}

func (h *Handler) handleStatementCSV(w http.ResponseWriter, r *http.Request) {
	statement, err := h.statement(w, r)
	if err != nil {
		return
	}
	filename := fmt.Sprintf("Redemption_History_%s.csv", statement.MerchantID)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := reportservice.WriteStatementCSV(w, statement); err != nil {
		h.logger.ErrorContext(r.Context(), "write statement csv",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
	}
}

func (h *Handler) handleMasterCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rows, err := h.reports.MasterReport(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	stamp := requestcontext.Now(ctx).Format("20060102_150405")
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=Master_Redemption_Report_%s.csv", stamp))
	if err := reportservice.WriteMasterCSV(w, rows); err != nil {
		h.logger.ErrorContext(ctx, "write master csv",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
}

// statement resolves the merchant id and loads its lines; on failure the
// error response is already written.
func (h *Handler) statement(w http.ResponseWriter, r *http.Request) (reportservice.Statement, error) {
	merchantID := chi.URLParam(r, "merchantID")
	if merchantID == "" {
		err := dErrors.New(dErrors.CodeBadRequest, "merchant id is required")
		shared.WriteError(w, err)
		return reportservice.Statement{}, err
	}
	statement, err := h.reports.MerchantStatement(r.Context(), merchantID)
	if err != nil {
		shared.WriteError(w, err)
		return reportservice.Statement{}, err
	}
	return statement, nil
}
