// Package service implements household registration: one national identifier
// maps to exactly one household record, and a fresh voucher pool is created
// atomically with the record.
package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	householdmetrics "cdcvoucher/internal/household/metrics"
	"cdcvoucher/internal/household/models"
	"cdcvoucher/internal/household/store"
	dErrors "cdcvoucher/pkg/domain-errors"
	"cdcvoucher/pkg/platform/sentinel"
	"cdcvoucher/pkg/sequence"
)

const (
	householdIDPrefix = "H"
	householdIDWidth  = 4
)

// Service registers households against the durable state store.
type Service struct {
	store   store.Store
	pattern *regexp.Regexp
	logger  *slog.Logger
	metrics *householdmetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics wires registration metrics.
func WithMetrics(m *householdmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNationalIDPattern installs a shape rule for normalized national
// identifiers. An empty pattern disables the check.
func WithNationalIDPattern(pattern string) (Option, error) {
	if pattern == "" {
		return func(*Service) {}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "invalid national id pattern")
	}
	return func(s *Service) { s.pattern = re }, nil
}

// New constructs a registration service.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize trims and uppercases a raw national identifier.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Register maps a national identifier to a household, allocating a new
// household id and voucher pool on first sight. Re-registration is idempotent
// and returns the existing household id with AlreadyRegistered set.
//
// The whole read-check-allocate-persist sequence runs under the store lock so
// two concurrent registrations of the same identifier cannot allocate two
// household ids.
func (s *Service) Register(ctx context.Context, rawNationalID string) (models.Registration, error) {
	start := time.Now()

	nationalID := Normalize(rawNationalID)
	if nationalID == "" {
		s.observe("rejected", start)
		return models.Registration{}, dErrors.New(dErrors.CodeValidation, "national identifier is required")
	}
	if s.pattern != nil && !s.pattern.MatchString(nationalID) {
		s.observe("rejected", start)
		// The normalized id is still returned so the caller can echo it.
		return models.Registration{NationalID: nationalID},
			dErrors.New(dErrors.CodeValidation, "national identifier does not match the expected format")
	}

	var reg models.Registration
	err := s.store.Update(ctx, func(txn store.Txn) error {
		if err := txn.Reload(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "reload household state")
		}

		existing, err := txn.FindByNationalID(nationalID)
		switch {
		case err == nil:
			reg = models.Registration{NationalID: nationalID, HouseholdID: existing, AlreadyRegistered: true}
			return s.repairPool(txn, existing)
		case errors.Is(err, sentinel.ErrNotFound):
			// fall through to allocation
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "look up national identifier")
		}

		householdID := sequence.Next(txn.Households(), householdIDPrefix, householdIDWidth)
		if err := txn.Register(nationalID, householdID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "record identity mapping")
		}
		if err := txn.InitPool(householdID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "initialize voucher pool")
		}
		if err := txn.Persist(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist household state")
		}
		reg = models.Registration{NationalID: nationalID, HouseholdID: householdID}
		return nil
	})
	if err != nil {
		s.observe("rejected", start)
		return models.Registration{NationalID: nationalID}, err
	}

	outcome := "new"
	if reg.AlreadyRegistered {
		outcome = "existing"
	} else {
		s.logger.Info("household registered", "household_id", reg.HouseholdID)
	}
	s.observe(outcome, start)
	s.gaugeHouseholds(ctx)
	return reg, nil
}

// Balance reports the unused voucher value for a household, total and per
// denomination.
func (s *Service) Balance(ctx context.Context, householdID string) (models.Pool, error) {
	pool, err := s.store.Pool(ctx, householdID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "household %s not found", householdID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load voucher pool")
	}
	return pool, nil
}

// repairPool self-heals a household whose pool record went missing, e.g.
// after a prior partial write. Deliberately does not error the registration.
func (s *Service) repairPool(txn store.Txn, householdID string) error {
	if txn.HasPool(householdID) {
		return nil
	}
	s.logger.Warn("repairing missing voucher pool", "household_id", householdID)
	if err := txn.InitPool(householdID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "repair voucher pool")
	}
	if err := txn.Persist(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist repaired pool")
	}
	return nil
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRegistration(outcome, start)
	}
}

func (s *Service) gaugeHouseholds(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if ids, err := s.store.Households(ctx); err == nil {
		s.metrics.SetHouseholds(len(ids))
	}
}
