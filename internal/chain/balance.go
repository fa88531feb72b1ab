package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	clierr "github.com/molted-work/molted-cli/internal/errors"
)

var erc20ABI = mustABI(ERC20BalanceABI)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Balance is a token balance in both base units and display units.
type Balance struct {
	ChainID  int64           `json:"chain_id"`
	Token    string          `json:"token"`
	Address  string          `json:"address"`
	Owner    string          `json:"owner"`
	Raw      string          `json:"raw"`
	Amount   decimal.Decimal `json:"amount"`
	Decimals int             `json:"decimals"`
}

// USDCBalance reads balanceOf(owner) on the chain's USDC contract.
func USDCBalance(ctx context.Context, rpcURL string, chainID int64, owner common.Address) (Balance, error) {
	tokenHex, ok := USDCAddress(chainID)
	if !ok {
		return Balance{}, clierr.Validation("chain_id", "USDC is not configured for this chain id")
	}
	token := common.HexToAddress(tokenHex)

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return Balance{}, clierr.Transport("connect rpc", err)
	}
	defer client.Close()

	callData, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return Balance{}, clierr.Wrap(clierr.CodeInternal, "pack balanceOf calldata", err)
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: callData}, nil)
	if err != nil {
		return Balance{}, clierr.Transport("fetch USDC balance", err)
	}
	decoded, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil || len(decoded) == 0 {
		e := clierr.UnknownServer(0, "decode USDC balance")
		e.Cause = err
		return Balance{}, e
	}
	raw, ok := decoded[0].(*big.Int)
	if !ok || raw == nil {
		return Balance{}, clierr.UnknownServer(0, "invalid USDC balance response")
	}
	return Balance{
		ChainID:  chainID,
		Token:    "USDC",
		Address:  token.Hex(),
		Owner:    owner.Hex(),
		Raw:      raw.String(),
		Amount:   decimal.NewFromBigInt(raw, -USDCDecimals),
		Decimals: USDCDecimals,
	}, nil
}
