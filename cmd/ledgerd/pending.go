package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stakeledger/internal/config"
	"stakeledger/internal/oplog"
)

func runPending(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	poolID, _ := cmd.Flags().GetUint64("pool-id")
	userSpec, _ := cmd.Flags().GetString("user")
	tick, _ := cmd.Flags().GetUint64("tick")

	user, err := config.ParseAccount(userSpec)
	if err != nil {
		return fmt.Errorf("user: %w", err)
	}

	prices, err := config.ParseFeeds(cfg.Feeds)
	if err != nil {
		return err
	}
	stakes, auctions, vault, err := buildEngines(cfg, prices, logger)
	if err != nil {
		return err
	}

	snap, found, err := oplog.NewSnapshotStore(cfg.SnapshotPath).Load()
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no snapshot at %s; run replay first", cfg.SnapshotPath)
	}
	replayer := oplog.NewReplayer(stakes, auctions, vault, logger)
	if err := replayer.RestoreSnapshot(snap); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if tick == 0 {
		tick = snap.LastTick
	}

	pending, err := stakes.PendingRewardAtTick(poolID, user, tick)
	if err != nil {
		return err
	}
	requested, releasable, err := stakes.WithdrawAmount(poolID, user, tick)
	if err != nil {
		return err
	}

	fmt.Printf("pool %d user %s at tick %d\n", poolID, user.Hex(), tick)
	fmt.Printf("  pending reward:     %s\n", pending)
	fmt.Printf("  queued withdrawal:  %s\n", requested)
	fmt.Printf("  releasable now:     %s\n", releasable)
	return nil
}
