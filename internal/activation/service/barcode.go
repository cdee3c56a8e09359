package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewBarcode generates a 13-digit EAN-13 value: twelve random digits plus the
// standard check digit. Rendering the value as a scannable image is the
// client's job; this service only mints and stores the value.
func NewBarcode() (string, error) {
	digits := make([]int, 12)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate barcode digit: %w", err)
		}
		digits[i] = int(n.Int64())
	}

	value := ""
	for _, d := range digits {
		value += fmt.Sprintf("%d", d)
	}
	return value + fmt.Sprintf("%d", checkDigit(digits)), nil
}

// checkDigit computes the EAN-13 checksum over the first twelve digits:
// odd positions (1st, 3rd, ...) weigh 1, even positions weigh 3.
func checkDigit(digits []int) int {
	sum := 0
	for i, d := range digits {
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	return (10 - sum%10) % 10
}

// ValidBarcode reports whether value is a well-formed 13-digit EAN-13 string
// with a correct check digit.
func ValidBarcode(value string) bool {
	if len(value) != 13 {
		return false
	}
	digits := make([]int, 13)
	for i, r := range value {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}
	return checkDigit(digits[:12]) == digits[12]
}
