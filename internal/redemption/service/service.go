// Package service implements the redemption engine, the only writer of the
// used state. A bundle redeems all-or-nothing: each voucher is spendable at
// most once, and every state flip commits together with its ledger lines or
// not at all.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	activationstore "cdcvoucher/internal/activation/store"
	hhmodels "cdcvoucher/internal/household/models"
	householdstore "cdcvoucher/internal/household/store"
	"cdcvoucher/internal/ledger/models"
	ledgerstore "cdcvoucher/internal/ledger/store"
	redemptionmetrics "cdcvoucher/internal/redemption/metrics"
	"cdcvoucher/internal/voucher"
	dErrors "cdcvoucher/pkg/domain-errors"
	"cdcvoucher/pkg/platform/sentinel"
	strutil "cdcvoucher/pkg/platform/strings"
	"cdcvoucher/pkg/requestcontext"
	"cdcvoucher/pkg/sequence"
)

const (
	transactionIDPrefix = "TX"
	transactionIDWidth  = 5
)

// Receipt summarizes one completed redemption.
type Receipt struct {
	TransactionID string        `json:"transaction_id"`
	HouseholdID   string        `json:"household_id"`
	Total         int           `json:"total"`
	Lines         []models.Line `json:"lines"`
}

// Service redeems activated voucher bundles against the durable pool state
// and records them in the ledger.
type Service struct {
	ledgerMu    sync.Mutex // serializes TX id allocation against the append
	activations activationstore.Store
	households  householdstore.Store
	ledger      ledgerstore.Store
	logger      *slog.Logger
	metrics     *redemptionmetrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics wires redemption metrics.
func WithMetrics(m *redemptionmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a redemption service.
func New(activations activationstore.Store, households householdstore.Store, ledger ledgerstore.Store, opts ...Option) *Service {
	s := &Service{activations: activations, households: households, ledger: ledger, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Redeem resolves an activation barcode to its voucher bundle and redeems the
// whole bundle for the given merchant.
func (s *Service) Redeem(ctx context.Context, barcode, merchantID string) (Receipt, error) {
	record, err := s.activations.Find(ctx, barcode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Receipt{}, dErrors.Newf(dErrors.CodeNotFound, "barcode %s has no activated bundle", barcode)
		}
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "look up activation")
	}
	return s.RedeemCodes(ctx, record.VoucherCodes, merchantID)
}

// RedeemCodes redeems a bundle of voucher codes for a merchant. All codes
// must belong to the same household. If any voucher in the bundle is already
// used the whole bundle is rejected and nothing changes.
//
// Validation, the state flips, and the persist all run under the store lock,
// so two merchants scanning overlapping bundles race for the lock and exactly
// one of them observes every voucher unused.
func (s *Service) RedeemCodes(ctx context.Context, rawCodes []string, merchantID string) (Receipt, error) {
	start := time.Now()

	codes := strutil.DedupeAndTrim(rawCodes)
	if len(codes) == 0 {
		s.observe("rejected", start)
		return Receipt{}, dErrors.New(dErrors.CodeEmptyBundle, "no voucher codes to redeem")
	}
	if merchantID == "" {
		s.observe("rejected", start)
		return Receipt{}, dErrors.New(dErrors.CodeValidation, "merchant identifier is required")
	}

	decoded, householdID, total, err := s.decodeBundle(codes)
	if err != nil {
		s.observe("rejected", start)
		return Receipt{}, err
	}

	err = s.households.Update(ctx, func(txn householdstore.Txn) error {
		if err := txn.Reload(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "reload voucher state")
		}
		for _, c := range decoded {
			state, err := txn.State(c.HouseholdID, c.Denomination, c.Index-1)
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.Newf(dErrors.CodeNotFound, "voucher %s has no pool position", c)
			case errors.Is(err, sentinel.ErrOutOfRange):
				return dErrors.Newf(dErrors.CodeIndexOutOfRange, "voucher %s is outside the pool", c)
			case err != nil:
				return dErrors.Wrap(err, dErrors.CodeInternal, "read voucher state")
			}
			if state != hhmodels.StateUnused {
				return dErrors.Newf(dErrors.CodeAlreadyRedeemed, "voucher %s already redeemed", c)
			}
		}

		flipped := make([]voucher.Code, 0, len(decoded))
		for _, c := range decoded {
			if err := txn.SetUsed(c.HouseholdID, c.Denomination, c.Index-1); err != nil {
				s.rollback(txn, flipped)
				return dErrors.Wrap(err, dErrors.CodeInternal, "mark voucher used")
			}
			flipped = append(flipped, c)
		}
		if err := txn.Persist(); err != nil {
			s.rollback(txn, flipped)
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist voucher state")
		}
		return nil
	})
	if err != nil {
		outcome := "rejected"
		if dErrors.HasCode(err, dErrors.CodeAlreadyRedeemed) {
			outcome = "already_redeemed"
		}
		s.observe(outcome, start)
		return Receipt{}, err
	}

	receipt, err := s.appendLedgerLines(ctx, decoded, householdID, merchantID, total)
	if err != nil {
		s.observe("rejected", start)
		return Receipt{}, err
	}

	s.logger.Info("bundle redeemed",
		"transaction_id", receipt.TransactionID,
		"household_id", householdID,
		"merchant_id", merchantID,
		"vouchers", len(decoded),
		"total", total)
	s.observe("completed", start)
	if s.metrics != nil {
		s.metrics.AddRedeemed(len(decoded), total)
	}
	return receipt, nil
}

// decodeBundle parses every code and confirms the bundle belongs to a single
// household. Returns the decoded codes, the household id, and the bundle
// total.
func (s *Service) decodeBundle(codes []string) ([]voucher.Code, string, int, error) {
	decoded := make([]voucher.Code, 0, len(codes))
	householdID := ""
	total := 0
	for _, raw := range codes {
		c, err := voucher.Decode(raw)
		if err != nil {
			return nil, "", 0, err
		}
		if householdID == "" {
			householdID = c.HouseholdID
		} else if c.HouseholdID != householdID {
			return nil, "", 0, dErrors.Newf(dErrors.CodeValidation,
				"bundle mixes households %s and %s", householdID, c.HouseholdID)
		}
		decoded = append(decoded, c)
		total += c.Denomination
	}
	return decoded, householdID, total, nil
}

func (s *Service) appendLedgerLines(ctx context.Context, decoded []voucher.Code, householdID, merchantID string, total int) (Receipt, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	existing, err := s.ledger.TransactionIDs(ctx)
	if err != nil {
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "read transaction ids")
	}
	txID := sequence.Next(existing, transactionIDPrefix, transactionIDWidth)
	redeemedAt := requestcontext.Now(ctx)

	lines := make([]models.Line, 0, len(decoded))
	for i, c := range decoded {
		remark := models.FinalRemark
		if i < len(decoded)-1 {
			remark = strconv.Itoa(i + 1)
		}
		lines = append(lines, models.Line{
			TransactionID: txID,
			HouseholdID:   householdID,
			MerchantID:    merchantID,
			RedeemedAt:    redeemedAt,
			VoucherCode:   c.String(),
			Denomination:  c.Denomination,
			Total:         total,
			Status:        models.StatusCompleted,
			Remark:        remark,
		})
	}
	if err := s.ledger.Append(ctx, lines); err != nil {
		// The pool flips have already been persisted; the ledger write is
		// retried by the operator from the receipt-less error, never by
		// unflipping vouchers that a customer has spent.
		return Receipt{}, dErrors.Wrap(err, dErrors.CodeInternal, "append ledger lines")
	}
	return Receipt{TransactionID: txID, HouseholdID: householdID, Total: total, Lines: lines}, nil
}

// rollback undoes in-memory flips after a failed persist so the next reload
// does not see half a bundle spent.
func (s *Service) rollback(txn householdstore.Txn, flipped []voucher.Code) {
	for _, c := range flipped {
		if err := txn.SetUnusedForRollback(c.HouseholdID, c.Denomination, c.Index-1); err != nil {
			s.logger.Error("rollback failed", "voucher", c.String(), "error", err)
		}
	}
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRedemption(outcome, start)
	}
}
