package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "ledgerd",
		Short:        "Deterministic staking and auction ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the operation log and write a snapshot",
		RunE:  runReplay,
	}
	addLedgerFlags(replayCmd)
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for the queryable projection")
	replayCmd.Flags().String("rpc", "", "Ethereum RPC URL (switches price feeds to Chainlink aggregators)")
	root.AddCommand(replayCmd)

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Report a user's pending reward and withdrawable amounts",
		RunE:  runPending,
	}
	addLedgerFlags(pendingCmd)
	pendingCmd.Flags().Uint64("pool-id", 0, "pool id")
	pendingCmd.Flags().String("user", "", "user address")
	pendingCmd.Flags().Uint64("tick", 0, "tick to evaluate at (0 means snapshot tick)")
	root.AddCommand(pendingCmd)

	feesCmd := &cobra.Command{
		Use:   "fees",
		Short: "Resolve the platform fee for a USD value",
		RunE:  runFees,
	}
	feesCmd.Flags().StringSlice("fee-tier", nil, "fee tiers as min-max:bps (whole USD, comma-separated)")
	feesCmd.Flags().Uint32("default-fee-bps", 250, "fallback fee in basis points")
	feesCmd.Flags().Uint64("usd", 0, "USD value to resolve")
	feesCmd.Flags().String("amount", "", "optional bid amount to compute the fee for")
	feesCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(feesCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLedgerFlags(cmd *cobra.Command) {
	cmd.Flags().String("oplog", "./data/oplog.jsonl", "operation log JSONL path")
	cmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file path")
	cmd.Flags().String("owner", "", "ledger owner address")
	cmd.Flags().String("operator", "", "auction operator address")
	cmd.Flags().String("custody", "", "custody account address")
	cmd.Flags().String("fee-recipient", "", "platform fee recipient address")
	cmd.Flags().String("reward-asset", "", "reward asset address (native if empty)")
	cmd.Flags().String("reward-rate", "0", "reward emitted per tick")
	cmd.Flags().Uint64("start-tick", 0, "first tick of reward emission")
	cmd.Flags().Uint64("end-tick", 1<<62, "last tick of reward emission")
	cmd.Flags().Uint32("default-fee-bps", 250, "fallback fee in basis points")
	cmd.Flags().StringSlice("fee-tier", nil, "fee tiers as min-max:bps (whole USD, comma-separated)")
	cmd.Flags().StringSlice("price-feed", nil, "price feeds as asset=price:decimals:description")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
