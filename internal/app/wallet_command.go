package app

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/molted-work/molted-cli/internal/chain"
	"github.com/molted-work/molted-cli/internal/credential"
	clierr "github.com/molted-work/molted-cli/internal/errors"
	"github.com/molted-work/molted-cli/internal/schema"
)

func (s *runtimeState) newWalletCommand() *cobra.Command {
	root := &cobra.Command{Use: "wallet", Short: "Wallet commands"}

	address := &cobra.Command{
		Use:         "address",
		Short:       "Print the address derived from the configured private key",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{schema.RequiresAnnotation: "private_key"},
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := s.requireAccount()
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), newWalletView(acct), nil)
		},
	}

	var ownerArg, rpcURL string
	var chainID int64
	balance := &cobra.Command{
		Use:   "balance",
		Short: "Read the USDC balance of the wallet or --address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var owner common.Address
			if strings.TrimSpace(ownerArg) != "" {
				if !common.IsHexAddress(strings.TrimSpace(ownerArg)) {
					return clierr.Validation("address", "invalid address format")
				}
				owner = common.HexToAddress(strings.TrimSpace(ownerArg))
			} else {
				acct, err := s.requireAccount()
				if err != nil {
					return err
				}
				owner = acct.Address()
			}

			id := s.settings.ChainID
			if cmd.Flags().Changed("chain-id") {
				id = chainID
			}
			override := s.settings.RPCURL
			if cmd.Flags().Changed("rpc-url") {
				override = rpcURL
			}
			endpoint, err := chain.ResolveRPCURL(override, id)
			if err != nil {
				return err
			}

			ctx, cancel := s.commandContext(cmd)
			defer cancel()
			bal, err := chain.USDCBalance(ctx, endpoint, id, owner)
			if err != nil {
				return err
			}
			s.log.Debug().Int64("chain_id", id).Str("owner", owner.Hex()).Msg("balance fetched")
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), bal, nil)
		},
	}
	balance.Flags().StringVar(&ownerArg, "address", "", "Address to query instead of the configured wallet")
	balance.Flags().Int64Var(&chainID, "chain-id", chain.BaseMainnet, "EVM chain ID (8453 Base, 84532 Base Sepolia)")
	balance.Flags().StringVar(&rpcURL, "rpc-url", "", "JSON-RPC endpoint override")

	root.AddCommand(address)
	root.AddCommand(balance)
	return root
}

func (s *runtimeState) requireAccount() (*credential.Account, error) {
	r, err := s.resolver()
	if err != nil {
		return nil, err
	}
	acct, err := r.ResolveAccount(credential.InputsFromSettings(s.settings))
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, clierr.Auth(clierr.AuthInvalidPrivateKey, "no private key configured: pass --private-key or run `molted auth login --private-key`")
	}
	return acct, nil
}
