package oplog

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"stakeledger/internal/assets"
	"stakeledger/internal/auction"
	"stakeledger/internal/ledger"
	"stakeledger/internal/model"
	"stakeledger/internal/oracle"
)

var (
	owner   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	custody = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	reward  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	nftAddr = common.HexToAddress("0x000000000000000000000000000000000000d00d")
	seller  = common.HexToAddress("0x0000000000000000000000000000000000005e11")
	alice   = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob     = common.HexToAddress("0x000000000000000000000000000000000000b0b0")
)

func newStack(t *testing.T) *Replayer {
	t.Helper()
	vault := assets.NewVault()
	prices := oracle.NewStaticSource()
	prices.Set(assets.Native, big.NewInt(2_0000_0000), 8, "NATIVE / USD")

	stakes := ledger.New(ledger.Config{
		Owner:       owner,
		Custody:     custody,
		RewardAsset: reward,
		RatePerTick: big.NewInt(10),
		StartTick:   0,
		EndTick:     1 << 62,
	}, vault, nil)

	auctions := auction.NewEngine(auction.Config{
		Operator:      owner,
		Custody:       custody,
		FeeRecipient:  common.HexToAddress("0x00000000000000000000000000000000000000fe"),
		DefaultFeeBps: 250,
	}, vault, vault, prices, nil)

	return NewReplayer(stakes, auctions, vault, nil)
}

func pool(id uint64) *uint64 { return &id }

func auctionRef(id uint64) *uint64 { return &id }

func sampleOps() []model.OpRecord {
	return []model.OpRecord{
		{Seq: 1, Op: model.OpFund, Actor: alice.Hex(), Asset: token.Hex(), Amount: "1000"},
		{Seq: 2, Op: model.OpFund, Actor: custody.Hex(), Asset: reward.Hex(), Amount: "500"},
		{Seq: 3, Op: model.OpFund, Actor: bob.Hex(), Asset: assets.Native.Hex(), Amount: "1000"},
		{Seq: 4, Op: model.OpAddPool, Actor: owner.Hex(), Asset: token.Hex(), Weight: 1, LockTicks: 5},
		{Seq: 5, Tick: 1, Op: model.OpDeposit, Actor: alice.Hex(), PoolID: pool(0), Amount: "100"},
		{Seq: 6, Tick: 3, Op: model.OpUnstake, Actor: alice.Hex(), PoolID: pool(0), Amount: "40"},
		// over-unstake is rejected and must leave no trace
		{Seq: 7, Tick: 4, Op: model.OpUnstake, Actor: alice.Hex(), PoolID: pool(0), Amount: "9999"},
		{Seq: 8, Tick: 10, Op: model.OpWithdraw, Actor: alice.Hex(), PoolID: pool(0)},
		{Seq: 9, Tick: 10, Op: model.OpClaim, Actor: alice.Hex(), PoolID: pool(0)},
		{Seq: 10, Op: model.OpFundNFT, Actor: seller.Hex(), NFT: nftAddr.Hex(), TokenID: "1"},
		{Seq: 11, Op: model.OpApproveNFT, Actor: seller.Hex(), NFT: nftAddr.Hex(), TokenID: "1", Operator: custody.Hex()},
		{Seq: 12, Tick: 10, Op: model.OpCreateAuc, Actor: seller.Hex(), NFT: nftAddr.Hex(), TokenID: "1", StartPrice: "50", Duration: 3600, PaymentAsset: assets.Native.Hex()},
		{Seq: 13, Tick: 20, Op: model.OpBid, Actor: bob.Hex(), AuctionID: auctionRef(1), Amount: "300"},
		{Seq: 14, Tick: 3610, Op: model.OpEndAuction, Actor: seller.Hex(), AuctionID: auctionRef(1)},
	}
}

func writeOps(t *testing.T, path string, records []model.OpRecord) {
	t.Helper()
	require.NoError(t, NewWriter(path).Append(records))
}

func appendRaw(path, line string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(line)
	return err
}

func TestReplayIsDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oplog.jsonl")
	writeOps(t, path, sampleOps())

	first := newStack(t)
	summary, err := first.Run(context.Background(), path, 0)
	require.NoError(t, err)
	require.Equal(t, 14, summary.Total)
	require.Equal(t, 13, summary.Applied)
	require.Equal(t, 1, summary.Rejected)
	require.Equal(t, 0, summary.Failed)
	require.EqualValues(t, 14, summary.LastSeq)
	require.EqualValues(t, 3610, summary.LastTick)

	second := newStack(t)
	_, err = second.Run(context.Background(), path, 0)
	require.NoError(t, err)

	require.Equal(t,
		first.Snapshot(summary.LastSeq, summary.LastTick),
		second.Snapshot(summary.LastSeq, summary.LastTick),
	)
}

func TestReplayResumesFromSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oplog.jsonl")
	ops := sampleOps()
	writeOps(t, path, ops[:9])

	partial := newStack(t)
	mid, err := partial.Run(context.Background(), path, 0)
	require.NoError(t, err)

	store := NewSnapshotStore(filepath.Join(dir, "snapshot.json"))
	require.NoError(t, store.Save(partial.Snapshot(mid.LastSeq, mid.LastTick)))

	writeOps(t, path, ops[9:])

	snap, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)

	resumed := newStack(t)
	require.NoError(t, resumed.RestoreSnapshot(snap))
	rest, err := resumed.Run(context.Background(), path, snap.LastSeq)
	require.NoError(t, err)
	require.Equal(t, 5, rest.Applied)

	full := newStack(t)
	final, err := full.Run(context.Background(), path, 0)
	require.NoError(t, err)

	require.Equal(t,
		full.Snapshot(final.LastSeq, final.LastTick),
		resumed.Snapshot(final.LastSeq, final.LastTick),
	)
}

func TestReplaySkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oplog.jsonl")
	writeOps(t, path, sampleOps()[:2])
	require.NoError(t, appendRaw(path, "{not json\n"))

	r := newStack(t)
	summary, err := r.Run(context.Background(), path, 0)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.Applied)
	require.Equal(t, 1, summary.Failed)
}

func TestApplySetFeeRecipient(t *testing.T) {
	r := newStack(t)
	recipient := common.HexToAddress("0x0000000000000000000000000000000000009999")

	err := r.Apply(model.OpRecord{Seq: 1, Op: model.OpSetFeeRec, Actor: alice.Hex(), Recipient: recipient.Hex()})
	require.ErrorIs(t, err, auction.ErrNotAuthorized)

	err = r.Apply(model.OpRecord{Seq: 2, Op: model.OpSetFeeRec, Actor: owner.Hex(), Recipient: recipient.Hex()})
	require.NoError(t, err)
	require.Equal(t, recipient.Hex(), r.engine.Export().FeeRecipient)
}

func TestApplyUnknownOp(t *testing.T) {
	r := newStack(t)
	err := r.Apply(model.OpRecord{Seq: 1, Op: "burn_everything"})
	require.Error(t, err)
}

func TestSnapshotStoreMissingFile(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "absent.json"))
	_, found, err := store.Load()
	require.NoError(t, err)
	require.False(t, found)
}
