package auth

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChecksumAddress returns addr in EIP-55 mixed-case form when it is a 20-byte
// hex address. Anything else is returned trimmed and otherwise untouched.
func ChecksumAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

// IsAddress reports whether s is a 20-byte hex address, with or without 0x.
func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}
