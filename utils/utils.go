package utils

import (
	"strconv"
	"strings"
)

// ParseLimit parses a page size query parameter and clamps it to 1..max.
// Invalid or empty values yield the fallback.
func ParseLimit(value string, fallback uint64, max uint64) uint64 {
	limit, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || limit == 0 {
		limit = fallback
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

// IsValidCursor checks a pagination cursor as passed in urls. Ledger cursors
// are decimal sequence numbers.
func IsValidCursor(cursor string) bool {
	if cursor == "" {
		return true
	}
	_, err := strconv.ParseUint(cursor, 10, 64)
	return err == nil
}
