// Package service builds merchant statements and the master redemption
// report from the ledger, joined with merchant bank attributes for payout
// runs.
package service

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"

	ledgermodels "cdcvoucher/internal/ledger/models"
	ledgerstore "cdcvoucher/internal/ledger/store"
	merchantstore "cdcvoucher/internal/merchant/store"
	dErrors "cdcvoucher/pkg/domain-errors"
)

// unknownAttr fills merchant columns when a ledger line references a
// merchant the registry no longer knows.
const unknownAttr = "Unknown"

// MasterHeader is the column set of the master report: the ledger columns
// with the merchant's payout attributes spliced in after Merchant_ID.
var MasterHeader = []string{
	"Transaction_ID", "Household_ID", "Merchant_ID",
	"Merchant_Name", "Bank_Name", "Account_Number", "Account_Holder_Name",
	"Transaction_Date_Time", "Voucher_Code",
	"Denomination_Used", "Amount_Redeemed",
	"Payment_Status", "Remarks",
}

// MasterRow is one ledger line enriched with the receiving merchant's bank
// attributes.
type MasterRow struct {
	Line              ledgermodels.Line
	MerchantName      string
	BankName          string
	AccountNumber     string
	AccountHolderName string
}

// Statement is one merchant's redemption history with its running total.
type Statement struct {
	MerchantID string              `json:"merchant_id"`
	Lines      []ledgermodels.Line `json:"lines"`
	Total      int                 `json:"total"`
}

// Service reads the ledger and the merchant registry. It never writes
// either.
type Service struct {
	ledger    ledgerstore.Store
	merchants merchantstore.Store
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a reporting service.
func New(ledger ledgerstore.Store, merchants merchantstore.Store, opts ...Option) *Service {
	s := &Service{ledger: ledger, merchants: merchants, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MerchantStatement returns one merchant's ledger lines, oldest first. Each
// completed transaction contributes its bundle total exactly once to the
// statement total.
func (s *Service) MerchantStatement(ctx context.Context, merchantID string) (Statement, error) {
	lines, err := s.ledger.ListByMerchant(ctx, merchantID)
	if err != nil {
		return Statement{}, dErrors.Wrap(err, dErrors.CodeInternal, "read merchant ledger")
	}
	total := 0
	seen := make(map[string]struct{})
	for _, line := range lines {
		if _, ok := seen[line.TransactionID]; ok {
			continue
		}
		seen[line.TransactionID] = struct{}{}
		total += line.Total
	}
	return Statement{MerchantID: merchantID, Lines: lines, Total: total}, nil
}

// MasterReport returns every ledger line joined with the receiving
// merchant's name and bank attributes. Lines whose merchant is missing from
// the registry carry "Unknown" in those columns rather than being dropped.
func (s *Service) MasterReport(ctx context.Context) ([]MasterRow, error) {
	lines, err := s.ledger.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read ledger")
	}
	merchants, err := s.merchants.All(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "read merchant registry")
	}
	byID := make(map[string]int, len(merchants))
	for i, m := range merchants {
		byID[m.ID] = i
	}

	rows := make([]MasterRow, 0, len(lines))
	for _, line := range lines {
		row := MasterRow{
			Line:              line,
			MerchantName:      unknownAttr,
			BankName:          unknownAttr,
			AccountNumber:     unknownAttr,
			AccountHolderName: unknownAttr,
		}
		if i, ok := byID[line.MerchantID]; ok {
			m := merchants[i]
			row.MerchantName = m.Name
			row.BankName = m.BankName
			row.AccountNumber = m.AccountNumber
			row.AccountHolderName = m.AccountHolder
		} else {
			s.logger.Warn("ledger line references unknown merchant",
				"merchant_id", line.MerchantID, "transaction_id", line.TransactionID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteStatementCSV renders a merchant statement with the ledger's original
// column headers.
func WriteStatementCSV(w io.Writer, statement Statement) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ledgerstore.Header); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "write statement header")
	}
	for _, line := range statement.Lines {
		record := []string{
			line.TransactionID,
			line.HouseholdID,
			line.MerchantID,
			line.RedeemedAt.Format(ledgermodels.TimestampLayout),
			line.VoucherCode,
			ledgermodels.FormatAmount(line.Denomination),
			ledgermodels.FormatAmount(line.Total),
			line.Status,
			line.Remark,
		}
		if err := writer.Write(record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "write statement row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "flush statement")
	}
	return nil
}

// WriteMasterCSV renders the master report.
func WriteMasterCSV(w io.Writer, rows []MasterRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(MasterHeader); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "write master header")
	}
	for _, row := range rows {
		line := row.Line
		record := []string{
			line.TransactionID,
			line.HouseholdID,
			line.MerchantID,
			row.MerchantName,
			row.BankName,
			row.AccountNumber,
			row.AccountHolderName,
			line.RedeemedAt.Format(ledgermodels.TimestampLayout),
			line.VoucherCode,
			ledgermodels.FormatAmount(line.Denomination),
			ledgermodels.FormatAmount(line.Total),
			line.Status,
			line.Remark,
		}
		if err := writer.Write(record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "write master row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "flush master report")
	}
	return nil
}
