// Package voucher defines the voucher code wire format shared by activation
// and redemption: V{denom:02d}-{index:04d}-{householdID}, e.g. V02-0001-H0001.
// The index is 1-based within the household's pool for that denomination.
package voucher

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "cdcvoucher/pkg/domain-errors"
)

// Marker prefixes the denomination segment of every voucher code.
const Marker = "V"

const separator = "-"

// Code identifies one voucher unit: a position in one household's pool.
type Code struct {
	HouseholdID  string
	Denomination int
	// Index is 1-based; Index-1 addresses the pool slice.
	Index int
}

// String renders the wire format.
func (c Code) String() string {
	return Encode(c.HouseholdID, c.Denomination, c.Index)
}

// Encode produces the canonical code string for a voucher position. Encoding
// is pure and deterministic; Decode reverses it exactly.
func Encode(householdID string, denom, index int) string {
	return fmt.Sprintf("%s%02d%s%04d%s%s", Marker, denom, separator, index, separator, householdID)
}

// Decode parses a voucher code back into its (household, denomination, index)
// triple. Malformed codes fail with a CodeFormat domain error before any
// state lookup: wrong segment count, missing marker, or non-numeric
// denomination/index segments.
func Decode(code string) (Code, error) {
	parts := strings.Split(strings.TrimSpace(code), separator)
	if len(parts) != 3 {
		return Code{}, dErrors.Newf(dErrors.CodeFormat, "voucher code %q: expected 3 segments like V02-0001-H0001", code)
	}
	if !strings.HasPrefix(parts[0], Marker) {
		return Code{}, dErrors.Newf(dErrors.CodeFormat, "voucher code %q: missing %s marker", code, Marker)
	}
	denom, err := strconv.Atoi(parts[0][len(Marker):])
	if err != nil || denom < 0 {
		return Code{}, dErrors.Newf(dErrors.CodeFormat, "voucher code %q: bad denomination segment", code)
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return Code{}, dErrors.Newf(dErrors.CodeFormat, "voucher code %q: bad index segment", code)
	}
	return Code{HouseholdID: parts[2], Denomination: denom, Index: index}, nil
}
