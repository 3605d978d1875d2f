package fetcher

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress validates an Ethereum contract address and returns its
// EIP-55 checksummed form.
func NormalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return "", fmt.Errorf("invalid ethereum address %q", raw)
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return "", fmt.Errorf("zero ethereum address")
	}
	return addr.Hex(), nil
}
