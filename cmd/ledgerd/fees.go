package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"stakeledger/internal/auction"
	"stakeledger/internal/config"
	"stakeledger/internal/oracle"
)

func runFees(cmd *cobra.Command, _ []string) error {
	tierSpecs, _ := cmd.Flags().GetStringSlice("fee-tier")
	defaultBps, _ := cmd.Flags().GetUint32("default-fee-bps")
	usd, _ := cmd.Flags().GetUint64("usd")
	amountSpec, _ := cmd.Flags().GetString("amount")

	tiers, err := config.ParseFeeTiers(tierSpecs)
	if err != nil {
		return err
	}

	usdValue := new(big.Int).Mul(new(big.Int).SetUint64(usd), oracle.NormalizedScale)
	bps := auction.ResolveFeeBps(tiers, defaultBps, usdValue)
	fmt.Printf("usd %d -> %d bps\n", usd, bps)

	if amountSpec != "" {
		amount, ok := new(big.Int).SetString(amountSpec, 10)
		if !ok || amount.Sign() < 0 {
			return fmt.Errorf("invalid amount: %s", amountSpec)
		}
		fmt.Printf("fee on %s: %s\n", amount, auction.FeeAmount(amount, bps))
	}
	return nil
}
