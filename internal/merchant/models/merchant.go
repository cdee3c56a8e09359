package models

import (
	"strings"

	dErrors "cdcvoucher/pkg/domain-errors"
)

// AllowedBanks is the fixed set of receiving banks the scheme settles to.
var AllowedBanks = map[string]struct{}{
	"DBS Bank Ltd":            {},
	"OCBC Bank":               {},
	"UOB Bank":                {},
	"Maybank Singapore":       {},
	"Standard Chartered Bank": {},
	"HSBC Singapore":          {},
	"POSB Bank":               {},
	"Citibank Singapore":      {},
	"RHB Bank Berhad":         {},
	"Bank of China Singapore": {},
}

// Merchant is a registered redemption point with its settlement account.
// Merchant identifiers (M001, M002, ...) are allocated at registration; the
// redemption engine itself never creates them.
type Merchant struct {
	ID            string `json:"merchant_id"`
	Name          string `json:"merchant_name"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder_name"`
}

// NewMerchant validates and constructs a merchant record. Field values are
// trimmed; the account number must be exactly nine digits and the bank must
// be on the allowlist.
func NewMerchant(id, name, bankName, accountNumber, accountHolder string) (*Merchant, error) {
	m := &Merchant{
		ID:            id,
		Name:          strings.TrimSpace(name),
		BankName:      strings.TrimSpace(bankName),
		AccountNumber: strings.TrimSpace(accountNumber),
		AccountHolder: strings.TrimSpace(accountHolder),
	}
	if m.Name == "" || m.AccountHolder == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "merchant name and account holder are required")
	}
	if _, ok := AllowedBanks[m.BankName]; !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "bank %q is not supported", m.BankName)
	}
	if !isNineDigits(m.AccountNumber) {
		return nil, dErrors.New(dErrors.CodeValidation, "account number must be exactly 9 digits")
	}
	return m, nil
}

func isNineDigits(s string) bool {
	if len(s) != 9 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
