package domain

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress validates a 20-byte hex account address and returns it
// in EIP-55 checksum form.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return "", ErrInvalidArgument.WithDetails("address must be 0x-prefixed: " + addr)
	}
	if !common.IsHexAddress(addr) {
		return "", ErrInvalidArgument.WithDetails("malformed address: " + addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}

// SameAddress compares two addresses case-insensitively.
// Two empty addresses are equal; an empty and a non-empty address are not.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ParseChainID parses a hex-encoded chain id as emitted by chainChanged.
// Leading zeros are tolerated. The result must be positive.
func ParseChainID(hex string) (uint64, error) {
	hex = strings.TrimSpace(hex)
	if len(hex) < 3 || (hex[:2] != "0x" && hex[:2] != "0X") {
		return 0, ErrInvalidArgument.WithDetails("chain id must be 0x-prefixed hex: " + hex)
	}
	id, err := strconv.ParseUint(hex[2:], 16, 64)
	if err != nil {
		return 0, ErrInvalidArgument.WithDetails("malformed chain id: " + hex).WithCause(err)
	}
	if id == 0 {
		return 0, ErrInvalidArgument.WithDetails("chain id must be positive")
	}
	return id, nil
}

// FormatChainID renders a chain id the way providers emit it.
func FormatChainID(id uint64) string {
	return "0x" + strconv.FormatUint(id, 16)
}
