package models

import (
	"strings"

	dErrors "telcoreg/pkg/domain-errors"
)

// Address identifies a network participant. The registry trusts addresses
// handed to it; ParseAddress only guards transport boundaries against absent
// values.
type Address string

// MaxAddressLength bounds addresses accepted at the transport boundary.
const MaxAddressLength = 128

// ParseAddress rejects empty or oversized values. Surrounding whitespace is
// rejected rather than trimmed: " T1" and "T1" are different identities.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if strings.TrimSpace(s) != s {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address has surrounding whitespace")
	}
	if len(s) > MaxAddressLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address exceeds max length")
	}
	return Address(s), nil
}

func (a Address) String() string {
	return string(a)
}

// IsNil reports whether the address is empty.
func (a Address) IsNil() bool {
	return a == ""
}
