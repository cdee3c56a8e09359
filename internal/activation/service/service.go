// Package service binds barcodes to voucher bundles ahead of redemption.
package service

import (
	"context"
	"errors"
	"log/slog"

	activationstore "cdcvoucher/internal/activation/store"
	"cdcvoucher/internal/activation/models"
	householdstore "cdcvoucher/internal/household/store"
	"cdcvoucher/internal/voucher"
	dErrors "cdcvoucher/pkg/domain-errors"
	"cdcvoucher/pkg/platform/sentinel"
	strutil "cdcvoucher/pkg/platform/strings"
	"cdcvoucher/pkg/requestcontext"
)

// Service activates voucher bundles: it validates the requested codes against
// one household and binds them to a freshly generated barcode.
type Service struct {
	activations activationstore.Store
	households  householdstore.Store
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs an activation service.
func New(activations activationstore.Store, households householdstore.Store, opts ...Option) *Service {
	s := &Service{activations: activations, households: households, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate binds the given voucher codes to a new barcode. Codes must decode,
// belong to householdID, and address positions inside the configured pool.
// Activation does not check used state; the double-spend guard lives in the
// redemption engine, which observes fresher state than activation time.
func (s *Service) Activate(ctx context.Context, householdID string, codes []string) (models.Record, error) {
	codes = strutil.DedupeAndTrim(codes)
	if len(codes) == 0 {
		return models.Record{}, dErrors.New(dErrors.CodeEmptyBundle, "no voucher codes to activate")
	}

	pool, err := s.households.Pool(ctx, householdID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Record{}, dErrors.Newf(dErrors.CodeNotFound, "household %s not found", householdID)
		}
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "load voucher pool")
	}

	for _, code := range codes {
		decoded, err := voucher.Decode(code)
		if err != nil {
			return models.Record{}, err
		}
		if decoded.HouseholdID != householdID {
			return models.Record{}, dErrors.Newf(dErrors.CodeValidation,
				"voucher %s belongs to a different household", code)
		}
		states, ok := pool[decoded.Denomination]
		if !ok {
			return models.Record{}, dErrors.Newf(dErrors.CodeValidation,
				"voucher %s has an unknown denomination", code)
		}
		if decoded.Index < 1 || decoded.Index > len(states) {
			return models.Record{}, dErrors.Newf(dErrors.CodeIndexOutOfRange,
				"voucher %s is outside the pool", code)
		}
	}

	barcode, err := NewBarcode()
	if err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "generate barcode")
	}
	record := models.Record{
		Barcode:      barcode,
		VoucherCodes: codes,
		ActivatedAt:  requestcontext.Now(ctx),
	}
	if err := s.activations.Save(ctx, record); err != nil {
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "save activation record")
	}
	s.logger.Info("bundle activated",
		"barcode", barcode,
		"household_id", householdID,
		"vouchers", len(codes),
	)
	return record, nil
}

// Find resolves an activation record by barcode.
func (s *Service) Find(ctx context.Context, barcode string) (models.Record, error) {
	record, err := s.activations.Find(ctx, barcode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Record{}, dErrors.Newf(dErrors.CodeNotFound, "barcode %q not found", barcode)
		}
		return models.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "load activation record")
	}
	return record, nil
}
