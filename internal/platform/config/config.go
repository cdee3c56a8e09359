package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DefaultVoucherCounts is the scheme-wide pool size per denomination. Every
// household gets the same table; it is fixed at registry initialization and
// pools are never resized afterwards.
var DefaultVoucherCounts = map[int]int{2: 80, 5: 32, 10: 45}

// MerchantMatchPolicy selects how duplicate merchant registrations are
// detected. The deployed portals disagreed on this, so it is configuration
// rather than a hard-coded rule.
type MerchantMatchPolicy string

const (
	// MatchNameOrAccount treats a reused merchant name OR account number as
	// the same merchant.
	MatchNameOrAccount MerchantMatchPolicy = "name-or-account"
	// MatchBankAndAccount treats only an identical bank+account pair as the
	// same merchant.
	MatchBankAndAccount MerchantMatchPolicy = "bank-and-account"
)

// Server captures process-level configuration.
type Server struct {
	Addr    string
	DataDir string

	// VoucherCounts maps denomination to pool length per household.
	VoucherCounts map[int]int

	// NationalIDPattern, when non-empty, is a regular expression every
	// normalized national identifier must match. Empty disables the check.
	NationalIDPattern string

	MerchantMatch MerchantMatchPolicy

	// RedisURL, when set, backs the activation store with Redis instead of
	// the activations JSON file.
	RedisURL string

	// PostgresURL, when set, backs the transaction ledger with PostgreSQL
	// instead of the transactions CSV file.
	PostgresURL string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:              envOr("VOUCHER_ADDR", ":8080"),
		DataDir:           envOr("VOUCHER_DATA_DIR", "data"),
		VoucherCounts:     DefaultVoucherCounts,
		NationalIDPattern: os.Getenv("VOUCHER_NATIONAL_ID_PATTERN"),
		MerchantMatch:     MatchNameOrAccount,
		RedisURL:          os.Getenv("VOUCHER_REDIS_URL"),
		PostgresURL:       os.Getenv("VOUCHER_POSTGRES_URL"),
	}

	if raw := os.Getenv("VOUCHER_COUNTS"); raw != "" {
		if counts, err := ParseVoucherCounts(raw); err == nil {
			cfg.VoucherCounts = counts
		}
	}
	if policy := os.Getenv("VOUCHER_MERCHANT_MATCH"); policy != "" {
		cfg.MerchantMatch = MerchantMatchPolicy(policy)
	}
	return cfg
}

// ParseVoucherCounts parses a "denom:count,denom:count" table, e.g.
// "2:80,5:32,10:45".
func ParseVoucherCounts(raw string) (map[int]int, error) {
	counts := make(map[int]int)
	for _, pair := range strings.Split(raw, ",") {
		denomStr, countStr, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("voucher counts: malformed pair %q", pair)
		}
		denom, err := strconv.Atoi(denomStr)
		if err != nil || denom <= 0 {
			return nil, fmt.Errorf("voucher counts: bad denomination %q", denomStr)
		}
		count, err := strconv.Atoi(countStr)
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("voucher counts: bad count %q", countStr)
		}
		counts[denom] = count
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("voucher counts: empty table")
	}
	return counts, nil
}

// Denominations returns the configured denominations in ascending order.
func Denominations(counts map[int]int) []int {
	denoms := make([]int, 0, len(counts))
	for d := range counts {
		denoms = append(denoms, d)
	}
	sort.Ints(denoms)
	return denoms
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
