package models

import "time"

// Record binds a barcode value to the ordered voucher codes it pays out.
// Records are written once at activation time and read-only afterwards; the
// redemption engine treats them as immutable input keyed by barcode.
type Record struct {
	Barcode      string    `json:"barcode"`
	VoucherCodes []string  `json:"voucher_codes"`
	ActivatedAt  time.Time `json:"timestamp"`
}
