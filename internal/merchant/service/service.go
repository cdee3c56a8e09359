// Package service registers merchants and resolves their settlement details.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"cdcvoucher/internal/merchant/models"
	"cdcvoucher/internal/merchant/store"
	"cdcvoucher/internal/platform/config"
	dErrors "cdcvoucher/pkg/domain-errors"
	"cdcvoucher/pkg/platform/sentinel"
	"cdcvoucher/pkg/sequence"
)

const (
	merchantIDPrefix = "M"
	merchantIDWidth  = 3
)

// Registration is the outcome of a merchant registration.
type Registration struct {
	Merchant          *models.Merchant `json:"merchant"`
	AlreadyRegistered bool             `json:"already_registered"`
}

// Service registers merchants against the durable merchant store.
type Service struct {
	mu     sync.Mutex // serializes read-check-allocate-append
	store  store.Store
	policy config.MerchantMatchPolicy
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMatchPolicy selects the duplicate-detection rule. The deployed portal
// variants disagreed (name-or-account vs bank-and-account), so the rule is
// configuration, defaulting to name-or-account.
func WithMatchPolicy(policy config.MerchantMatchPolicy) Option {
	return func(s *Service) { s.policy = policy }
}

// New constructs a merchant service.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, policy: config.MatchNameOrAccount, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the merchant fields, applies the duplicate policy, and
// on first sight allocates the next merchant id from the records on disk.
func (s *Service) Register(ctx context.Context, name, bankName, accountNumber, accountHolder string) (Registration, error) {
	candidate, err := models.NewMerchant("", name, bankName, accountNumber, accountHolder)
	if err != nil {
		return Registration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.All(ctx)
	if err != nil {
		return Registration{}, dErrors.Wrap(err, dErrors.CodeInternal, "load merchant records")
	}

	for _, m := range existing {
		if s.matches(m, candidate) {
			return Registration{Merchant: m, AlreadyRegistered: true}, nil
		}
	}

	ids := make([]string, 0, len(existing))
	for _, m := range existing {
		ids = append(ids, m.ID)
	}
	candidate.ID = sequence.Next(ids, merchantIDPrefix, merchantIDWidth)

	if err := s.store.Append(ctx, candidate); err != nil {
		return Registration{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist merchant record")
	}
	s.logger.Info("merchant registered", "merchant_id", candidate.ID, "bank", candidate.BankName)
	return Registration{Merchant: candidate}, nil
}

// Find resolves a merchant by id.
func (s *Service) Find(ctx context.Context, merchantID string) (*models.Merchant, error) {
	merchant, err := s.store.Find(ctx, merchantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "merchant %s not found", merchantID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load merchant record")
	}
	return merchant, nil
}

func (s *Service) matches(existing, candidate *models.Merchant) bool {
	switch s.policy {
	case config.MatchBankAndAccount:
		return existing.BankName == candidate.BankName &&
			existing.AccountNumber == candidate.AccountNumber
	default: // MatchNameOrAccount
		return strings.EqualFold(existing.Name, candidate.Name) ||
			existing.AccountNumber == candidate.AccountNumber
	}
}
