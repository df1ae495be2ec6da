package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrAddressType means the value is neither a native integer nor a string.
var ErrAddressType = errors.New("unsupported i2c address type")

// ErrAddressSyntax means the value was a string but not valid hex or
// decimal text. Kept distinct from ErrAddressType so callers can tell a
// wrong field type from a typo in the address.
var ErrAddressSyntax = errors.New("invalid i2c address")

// ParseI2CAddress normalizes a hardware address given as a native integer,
// a "0x"-prefixed hex string, or a decimal string into an integer.
//
//	ParseI2CAddress(0x49)   == 73
//	ParseI2CAddress("0x49") == 73
//	ParseI2CAddress("73")   == 73
func ParseI2CAddress(v any) (int, error) {
	if n, ok := asInt(v); ok {
		return n, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrAddressType, v)
	}

	s = strings.ToLower(strings.TrimSpace(s))
	var n int64
	var err error
	if strings.HasPrefix(s, "0x") {
		n, err = strconv.ParseInt(s[2:], 16, 64)
	} else {
		n, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrAddressSyntax, s, err)
	}
	return int(n), nil
}
