package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakeledger/internal/assets"
	"stakeledger/internal/auction"
	"stakeledger/internal/chain"
	"stakeledger/internal/config"
	"stakeledger/internal/ledger"
	"stakeledger/internal/oplog"
	"stakeledger/internal/oracle"
	"stakeledger/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
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

	if cfg.OplogPath == "" {
		return fmt.Errorf("oplog path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prices, closeChain, err := buildPriceSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeChain()

	stakes, auctions, vault, err := buildEngines(cfg, prices, logger)
	if err != nil {
		return err
	}
	replayer := oplog.NewReplayer(stakes, auctions, vault, logger)

	snapshots := oplog.NewSnapshotStore(cfg.SnapshotPath)
	snap, resumed, err := snapshots.Load()
	if err != nil {
		return err
	}
	var afterSeq uint64
	if resumed {
		if err := replayer.RestoreSnapshot(snap); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		afterSeq = snap.LastSeq
		logger.Info("resume from snapshot", zap.Uint64("last_seq", snap.LastSeq), zap.Uint64("last_tick", snap.LastTick))
	}

	logger.Info("replay start",
		zap.String("oplog", cfg.OplogPath),
		zap.String("snapshot", cfg.SnapshotPath),
		zap.Uint64("after_seq", afterSeq),
	)

	summary, err := replayer.Run(ctx, cfg.OplogPath, afterSeq)
	if err != nil {
		return err
	}
	if summary.LastTick < snap.LastTick {
		summary.LastTick = snap.LastTick
	}

	result := replayer.Snapshot(summary.LastSeq, summary.LastTick)
	if err := snapshots.Save(result); err != nil {
		return err
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		cursor, found, err := store.LoadCursor(ctx, "replayer")
		if err != nil {
			return fmt.Errorf("load cursor: %w", err)
		}
		if found && cursor > summary.LastSeq {
			return fmt.Errorf("projection cursor %d is ahead of oplog seq %d; refusing to overwrite", cursor, summary.LastSeq)
		}

		if err := store.UpsertPools(ctx, result.Ledger.Pools); err != nil {
			return fmt.Errorf("project pools: %w", err)
		}
		if err := store.UpsertStakes(ctx, result.Ledger.Stakes); err != nil {
			return fmt.Errorf("project stakes: %w", err)
		}
		if err := store.UpsertAuctions(ctx, result.Auctions.Auctions); err != nil {
			return fmt.Errorf("project auctions: %w", err)
		}
		if err := store.SaveCursor(ctx, "replayer", summary.LastSeq); err != nil {
			return fmt.Errorf("save cursor: %w", err)
		}
	}

	logger.Info("replay complete",
		zap.Int("total", summary.Total),
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("failed", summary.Failed),
		zap.Uint64("last_seq", summary.LastSeq),
		zap.Uint64("last_tick", summary.LastTick),
	)
	return nil
}

func buildPriceSource(ctx context.Context, cfg config.Config) (oracle.PriceSource, func(), error) {
	if cfg.RPCURL == "" {
		source, err := config.ParseFeeds(cfg.Feeds)
		if err != nil {
			return nil, nil, err
		}
		return source, func() {}, nil
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}
	aggregators, err := config.ParseAggregators(cfg.Feeds)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	source := oracle.NewChainlinkSource(ctx, client)
	for asset, aggregator := range aggregators {
		source.SetFeed(asset, aggregator)
	}
	return source, client.Close, nil
}

func buildEngines(cfg config.Config, prices oracle.PriceSource, logger *zap.Logger) (*ledger.Ledger, *auction.Engine, *assets.Vault, error) {
	owner, err := config.ParseAccount(cfg.Owner)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("owner: %w", err)
	}
	operator, err := config.ParseAccount(cfg.Operator)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("operator: %w", err)
	}
	custody, err := config.ParseAccount(cfg.Custody)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("custody: %w", err)
	}
	feeRecipient, err := config.ParseAccount(cfg.FeeRecipient)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fee recipient: %w", err)
	}
	rewardAsset, err := config.ParseAccount(cfg.RewardAsset)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reward asset: %w", err)
	}
	rate, err := config.ParseRate(cfg.RewardRate)
	if err != nil {
		return nil, nil, nil, err
	}

	vault := assets.NewVault()
	stakes := ledger.New(ledger.Config{
		Owner:       owner,
		Custody:     custody,
		RewardAsset: rewardAsset,
		RatePerTick: rate,
		StartTick:   cfg.StartTick,
		EndTick:     cfg.EndTick,
	}, vault, logger)

	auctions := auction.NewEngine(auction.Config{
		Operator:      operator,
		Custody:       custody,
		FeeRecipient:  feeRecipient,
		DefaultFeeBps: cfg.DefaultFeeBps,
	}, vault, vault, prices, logger)

	if len(cfg.FeeTiers) > 0 {
		tiers, err := config.ParseFeeTiers(cfg.FeeTiers)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := auctions.SetFeeTiers(operator, tiers); err != nil {
			return nil, nil, nil, err
		}
	}

	return stakes, auctions, vault, nil
}
