package rpctypes

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BigUint64 accepts either a JSON number (e.g. 1) or a JSON string
// (e.g. "1" or "0x1") and decodes it into a uint64.
// The ledger api encodes all u64 values as decimal strings.
type BigUint64 uint64

func (u *BigUint64) UnmarshalJSON(input []byte) error {
	if string(input) == "null" {
		*u = 0
		return nil
	}

	var s string
	if err := json.Unmarshal(input, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*u = 0
			return nil
		}

		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			base = 16
			s = s[2:]
		}
		v, err := strconv.ParseUint(s, base, 64)
		if err != nil {
			return fmt.Errorf("invalid uint64 string %q: %w", s, err)
		}
		*u = BigUint64(v)
		return nil
	}

	var n uint64
	if err := json.Unmarshal(input, &n); err == nil {
		*u = BigUint64(n)
		return nil
	}

	return fmt.Errorf("invalid uint64 json: %s", string(input))
}

func (u BigUint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

func (u BigUint64) Uint64() uint64 {
	return uint64(u)
}

func (u BigUint64) String() string {
	return strconv.FormatUint(uint64(u), 10)
}
