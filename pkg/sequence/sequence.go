// Package sequence allocates the next identifier in a prefixed, zero-padded
// series (H0001, TX00001, M001). Allocation always rescans the identifiers
// present in durable storage rather than keeping a counter, so external edits
// to the backing files are respected.
package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// Next returns prefix + zero-padded(max+1, width) over the numeric suffixes of
// the existing identifiers that match prefix+digits. Identifiers with a
// different prefix or a non-numeric suffix are ignored, not errors. With no
// matching identifiers the series starts at 1.
//
// Example:
//
//	Next([]string{"H0001", "H0003", "junk"}, "H", 4)
//	// Returns: "H0004"
func Next(existing []string, prefix string, width int) string {
	max := 0
	for _, id := range existing {
		suffix, ok := strings.CutPrefix(id, prefix)
		if !ok || suffix == "" {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, width, max+1)
}
