package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the compact date-time format of the ledger's
// Transaction_Date_Time column.
const TimestampLayout = "20060102150405"

// StatusCompleted is the only payment status the ledger ever records. No
// partial or pending state is modeled; a redemption either commits fully or
// writes nothing.
const StatusCompleted = "Completed"

// FinalRemark marks the last line of a multi-voucher redemption. Earlier
// lines carry their 1-based line number instead.
const FinalRemark = "Final denomination used"

// Line is one voucher within a completed redemption. Every line corresponds
// to exactly one pool position flipped unused -> used in the same redemption.
// Lines are append-only: once written they are never mutated or deleted.
type Line struct {
	TransactionID string    `json:"transaction_id"`
	HouseholdID   string    `json:"household_id"`
	MerchantID    string    `json:"merchant_id"`
	RedeemedAt    time.Time `json:"redeemed_at"`
	VoucherCode   string    `json:"voucher_code"`
	// Denomination is this voucher's face value in whole currency units.
	Denomination int `json:"denomination"`
	// Total is the bundle total, repeated on every line of the transaction.
	Total  int    `json:"total"`
	Status string `json:"status"`
	Remark string `json:"remark"`
}

// FormatAmount renders whole currency units the way the ledger records them:
// "$2.00".
func FormatAmount(amount int) string {
	return fmt.Sprintf("$%d.00", amount)
}

// ParseAmount reads a FormatAmount value back, tolerating a missing dollar
// sign. Malformed input parses as zero.
func ParseAmount(s string) int {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	s, _, _ = strings.Cut(s, ".")
	n, _ := strconv.Atoi(s)
	return n
}
