package chain

import (
	"fmt"
	"strconv"
	"strings"

	clierr "github.com/molted-work/molted-cli/internal/errors"
)

const (
	BaseMainnet int64 = 8453
	BaseSepolia int64 = 84532
)

// USDCDecimals is the token precision of every USDC deployment we read.
const USDCDecimals = 6

// ERC20BalanceABI is the read-only fragment used for balance lookups.
const ERC20BalanceABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Canonical default RPC endpoints by chain ID.
// These values are used whenever a command does not pass --rpc-url.
var defaultRPCByChainID = map[int64]string{
	BaseMainnet: "https://mainnet.base.org",
	BaseSepolia: "https://sepolia.base.org",
}

var usdcByChainID = map[int64]string{
	BaseMainnet: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	BaseSepolia: "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
}

func DefaultRPCURL(chainID int64) (string, bool) {
	value, ok := defaultRPCByChainID[chainID]
	return value, ok
}

func ResolveRPCURL(override string, chainID int64) (string, error) {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override), nil
	}
	if value, ok := DefaultRPCURL(chainID); ok {
		return value, nil
	}
	supported := make([]string, 0, len(SupportedChainIDs()))
	for _, id := range SupportedChainIDs() {
		supported = append(supported, strconv.FormatInt(id, 10))
	}
	return "", clierr.Validation("rpc_url", fmt.Sprintf(
		"no default rpc configured for chain id %d (defaults exist for %s); provide --rpc-url",
		chainID, strings.Join(supported, ", "),
	))
}

func USDCAddress(chainID int64) (string, bool) {
	value, ok := usdcByChainID[chainID]
	return value, ok
}

func SupportedChainIDs() []int64 {
	return []int64{BaseMainnet, BaseSepolia}
}
