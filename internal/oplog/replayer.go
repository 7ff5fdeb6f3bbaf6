package oplog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"stakeledger/internal/assets"
	"stakeledger/internal/auction"
	"stakeledger/internal/ledger"
	"stakeledger/internal/model"
)

// Summary reports what a replay run did.
type Summary struct {
	Total    int
	Applied  int
	Rejected int
	Failed   int
	LastSeq  uint64
	LastTick uint64
}

// Replayer feeds operation records through the engines. Malformed lines and
// engine-rule rejections are counted and logged; both leave state untouched,
// so a replay is deterministic regardless of how many bad records the log
// carries.
type Replayer struct {
	ledger *ledger.Ledger
	engine *auction.Engine
	vault  *assets.Vault
	logger *zap.Logger
}

func NewReplayer(l *ledger.Ledger, e *auction.Engine, v *assets.Vault, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{ledger: l, engine: e, vault: v, logger: logger}
}

// Run applies every record in the log with seq > afterSeq.
func (r *Replayer) Run(ctx context.Context, path string, afterSeq uint64) (Summary, error) {
	file, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open oplog: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	summary := Summary{LastSeq: afterSeq}
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		summary.Total++

		var record model.OpRecord
		if err := json.Unmarshal(line, &record); err != nil {
			summary.Failed++
			r.logger.Warn("decode op record", zap.Error(err))
			continue
		}
		if record.Seq <= afterSeq {
			continue
		}

		if err := r.Apply(record); err != nil {
			summary.Rejected++
			r.logger.Warn("op rejected",
				zap.Uint64("seq", record.Seq),
				zap.String("op", record.Op),
				zap.Error(err),
			)
		} else {
			summary.Applied++
		}
		summary.LastSeq = record.Seq
		if record.Tick > summary.LastTick {
			summary.LastTick = record.Tick
		}
	}

	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("scan oplog: %w", err)
	}
	return summary, nil
}

// Apply dispatches one operation record to the owning engine.
func (r *Replayer) Apply(record model.OpRecord) error {
	actor := common.HexToAddress(record.Actor)

	switch record.Op {
	case model.OpFund:
		amount, err := parseBig(record.Amount)
		if err != nil {
			return err
		}
		r.vault.Mint(common.HexToAddress(record.Asset), actor, amount)
		return nil

	case model.OpFundNFT:
		tokenID, err := parseBig(record.TokenID)
		if err != nil {
			return err
		}
		r.vault.MintNFT(common.HexToAddress(record.NFT), tokenID, actor)
		return nil

	case model.OpApproveNFT:
		tokenID, err := parseBig(record.TokenID)
		if err != nil {
			return err
		}
		r.vault.Approve(common.HexToAddress(record.NFT), tokenID, common.HexToAddress(record.Operator))
		return nil

	case model.OpAddPool:
		minDeposit, err := parseBig(record.MinDeposit)
		if err != nil {
			return err
		}
		_, err = r.ledger.AddPool(actor, common.HexToAddress(record.Asset), record.Weight, minDeposit, record.LockTicks, record.WithUpdate, record.Tick)
		return err

	case model.OpUpdatePool:
		pid, err := poolID(record)
		if err != nil {
			return err
		}
		minDeposit, err := parseBig(record.MinDeposit)
		if err != nil {
			return err
		}
		return r.ledger.UpdatePool(actor, pid, minDeposit, record.LockTicks)

	case model.OpSetWeight:
		pid, err := poolID(record)
		if err != nil {
			return err
		}
		return r.ledger.SetPoolWeight(actor, pid, record.Weight, record.WithUpdate, record.Tick)

	case model.OpMassUpdate:
		r.ledger.MassUpdatePools(record.Tick)
		return nil

	case model.OpDeposit, model.OpDepositNat:
		pid, err := poolID(record)
		if err != nil {
			return err
		}
		amount, err := parseBig(record.Amount)
		if err != nil {
			return err
		}
		if record.Op == model.OpDepositNat {
			return r.ledger.DepositNative(pid, actor, amount, record.Tick)
		}
		return r.ledger.Deposit(pid, actor, amount, record.Tick)

	case model.OpUnstake:
		pid, err := poolID(record)
		if err != nil {
			return err
		}
		amount, err := parseBig(record.Amount)
		if err != nil {
			return err
		}
		return r.ledger.Unstake(pid, actor, amount, record.Tick)

	case model.OpWithdraw:
		pid, err := poolID(record)
		if err != nil {
			return err
		}
		_, err = r.ledger.Withdraw(pid, actor, record.Tick)
		return err

	case model.OpClaim:
		pid, err := poolID(record)
		if err != nil {
			return err
		}
		_, err = r.ledger.Claim(pid, actor, record.Tick)
		return err

	case model.OpSetPause:
		if record.PauseWithdraw != nil {
			if err := r.ledger.SetWithdrawPaused(actor, *record.PauseWithdraw); err != nil {
				return err
			}
		}
		if record.PauseClaim != nil {
			if err := r.ledger.SetClaimPaused(actor, *record.PauseClaim); err != nil {
				return err
			}
		}
		return nil

	case model.OpCreateAuc:
		tokenID, err := parseBig(record.TokenID)
		if err != nil {
			return err
		}
		startPrice, err := parseBig(record.StartPrice)
		if err != nil {
			return err
		}
		_, err = r.engine.CreateAuction(actor, common.HexToAddress(record.NFT), tokenID, startPrice, record.Duration, common.HexToAddress(record.PaymentAsset), record.Tick)
		return err

	case model.OpBid, model.OpBidToken:
		id, err := auctionID(record)
		if err != nil {
			return err
		}
		amount, err := parseBig(record.Amount)
		if err != nil {
			return err
		}
		if record.Op == model.OpBidToken {
			return r.engine.BidWithToken(id, actor, common.HexToAddress(record.Asset), amount, record.Tick)
		}
		return r.engine.Bid(id, actor, amount, record.Tick)

	case model.OpEndAuction:
		id, err := auctionID(record)
		if err != nil {
			return err
		}
		_, err = r.engine.EndAuction(id, actor, record.Tick)
		return err

	case model.OpEmergency:
		id, err := auctionID(record)
		if err != nil {
			return err
		}
		_, err = r.engine.EmergencyCancel(id, actor, record.Tick)
		return err

	case model.OpSetFeeTiers:
		tiers, err := parseTierRecords(record.FeeTiers)
		if err != nil {
			return err
		}
		return r.engine.SetFeeTiers(actor, tiers)

	case model.OpSetFeeRec:
		return r.engine.SetFeeRecipient(actor, common.HexToAddress(record.Recipient))

	default:
		return fmt.Errorf("unknown op %q", record.Op)
	}
}

// Snapshot assembles a full snapshot of the replayed state.
func (r *Replayer) Snapshot(lastSeq, lastTick uint64) model.Snapshot {
	balances, nfts := r.vault.Export()
	return model.Snapshot{
		LastSeq:  lastSeq,
		LastTick: lastTick,
		Ledger:   r.ledger.Export(),
		Auctions: r.engine.Export(),
		Balances: balances,
		NFTs:     nfts,
	}
}

// RestoreSnapshot loads a snapshot into all three stores.
func (r *Replayer) RestoreSnapshot(snap model.Snapshot) error {
	if err := r.vault.Restore(snap.Balances, snap.NFTs); err != nil {
		return fmt.Errorf("restore vault: %w", err)
	}
	if err := r.ledger.Restore(snap.Ledger); err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}
	if err := r.engine.Restore(snap.Auctions); err != nil {
		return fmt.Errorf("restore auctions: %w", err)
	}
	return nil
}

func parseBig(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}

func parseTierRecords(records []model.FeeTierRecord) ([]auction.FeeTier, error) {
	tiers := make([]auction.FeeTier, 0, len(records))
	for i, record := range records {
		minUSD, err := parseBig(record.MinUSD)
		if err != nil {
			return nil, fmt.Errorf("tier %d: %w", i, err)
		}
		tier := auction.FeeTier{MinUSD: minUSD, Bps: record.Bps}
		if record.MaxUSD != "" {
			maxUSD, err := parseBig(record.MaxUSD)
			if err != nil {
				return nil, fmt.Errorf("tier %d: %w", i, err)
			}
			tier.MaxUSD = maxUSD
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

func poolID(record model.OpRecord) (uint64, error) {
	if record.PoolID == nil {
		return 0, fmt.Errorf("op %s requires pool_id", record.Op)
	}
	return *record.PoolID, nil
}

func auctionID(record model.OpRecord) (uint64, error) {
	if record.AuctionID == nil {
		return 0, fmt.Errorf("op %s requires auction_id", record.Op)
	}
	return *record.AuctionID, nil
}
