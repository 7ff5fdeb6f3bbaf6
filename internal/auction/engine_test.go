package auction

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"stakeledger/internal/assets"
	"stakeledger/internal/oracle"
)

var (
	operator     = common.HexToAddress("0x0000000000000000000000000000000000000001")
	custody      = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	feeRecipient = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	seller       = common.HexToAddress("0x0000000000000000000000000000000000005e11")
	alice        = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob          = common.HexToAddress("0x000000000000000000000000000000000000b0b0")
	nftContract  = common.HexToAddress("0x000000000000000000000000000000000000d00d")
	payToken     = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

// one payment unit is worth two USD
func newTestEngine(t *testing.T) (*Engine, *assets.Vault) {
	t.Helper()
	vault := assets.NewVault()
	prices := oracle.NewStaticSource()
	prices.Set(assets.Native, big.NewInt(2_0000_0000), 8, "NATIVE / USD")
	prices.Set(payToken, big.NewInt(2_0000_0000), 8, "TOK / USD")

	e := NewEngine(Config{
		Operator:      operator,
		Custody:       custody,
		FeeRecipient:  feeRecipient,
		DefaultFeeBps: 250,
	}, vault, vault, prices, nil)
	return e, vault
}

func usd(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), oracle.NormalizedScale)
}

func units(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), oracle.NormalizedScale)
}

func listToken(t *testing.T, e *Engine, vault *assets.Vault, tokenID int64, payment common.Address, startPrice *big.Int, duration, tick uint64) uint64 {
	t.Helper()
	id := big.NewInt(tokenID)
	vault.MintNFT(nftContract, id, seller)
	vault.Approve(nftContract, id, custody)
	auctionID, err := e.CreateAuction(seller, nftContract, id, startPrice, duration, payment, tick)
	require.NoError(t, err)
	return auctionID
}

func TestCreateAuctionValidation(t *testing.T) {
	e, vault := newTestEngine(t)
	tokenID := big.NewInt(1)
	vault.MintNFT(nftContract, tokenID, seller)

	_, err := e.CreateAuction(seller, nftContract, tokenID, big.NewInt(0), 3600, assets.Native, 0)
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = e.CreateAuction(seller, nftContract, tokenID, big.NewInt(1), MinDuration-1, assets.Native, 0)
	require.ErrorIs(t, err, ErrInvalidDuration)
	_, err = e.CreateAuction(seller, nftContract, tokenID, big.NewInt(1), MaxDuration+1, assets.Native, 0)
	require.ErrorIs(t, err, ErrInvalidDuration)

	_, err = e.CreateAuction(alice, nftContract, tokenID, big.NewInt(1), 3600, assets.Native, 0)
	require.ErrorIs(t, err, ErrAssetNotApproved)

	// listing without a custody approval must fail before any transfer
	_, err = e.CreateAuction(seller, nftContract, tokenID, big.NewInt(1), 3600, assets.Native, 0)
	require.ErrorIs(t, err, ErrAssetNotApproved)

	vault.Approve(nftContract, tokenID, custody)
	id, err := e.CreateAuction(seller, nftContract, tokenID, big.NewInt(1), 3600, assets.Native, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, id)

	holder, err := vault.OwnerOf(nftContract, tokenID)
	require.NoError(t, err)
	require.Equal(t, custody, holder)
}

func TestBidMonotonicity(t *testing.T) {
	e, vault := newTestEngine(t)
	id := listToken(t, e, vault, 1, assets.Native, big.NewInt(100), 3600, 0)
	vault.Mint(assets.Native, alice, big.NewInt(1000))
	vault.Mint(assets.Native, bob, big.NewInt(1000))

	require.ErrorIs(t, e.Bid(id, alice, big.NewInt(99), 1), ErrBidTooLow)
	require.NoError(t, e.Bid(id, alice, big.NewInt(100), 1))

	// a matching bid never displaces the incumbent
	err := e.Bid(id, bob, big.NewInt(100), 2)
	require.ErrorIs(t, err, ErrBidTooLow)
	a, err := e.GetAuction(id)
	require.NoError(t, err)
	require.Equal(t, alice, a.HighestBidder)
	require.Equal(t, "100", a.HighestBid.String())
	require.Equal(t, "1000", vault.BalanceOf(assets.Native, bob).String())

	require.NoError(t, e.Bid(id, bob, big.NewInt(150), 2))
	a, err = e.GetAuction(id)
	require.NoError(t, err)
	require.Equal(t, bob, a.HighestBidder)
	require.Equal(t, "150", a.HighestBid.String())

	// outbid refunds the previous escrow in full
	require.Equal(t, "1000", vault.BalanceOf(assets.Native, alice).String())
	require.Equal(t, "850", vault.BalanceOf(assets.Native, bob).String())
	require.Equal(t, "150", vault.BalanceOf(assets.Native, custody).String())
}

func TestBidWindowAndAsset(t *testing.T) {
	e, vault := newTestEngine(t)
	native := listToken(t, e, vault, 1, assets.Native, big.NewInt(100), 3600, 0)
	tokenAuc := listToken(t, e, vault, 2, payToken, big.NewInt(100), 3600, 0)
	vault.Mint(assets.Native, alice, big.NewInt(1000))
	vault.Mint(payToken, alice, big.NewInt(1000))

	require.ErrorIs(t, e.Bid(native, alice, big.NewInt(200), 3600), ErrAuctionEnded)
	require.ErrorIs(t, e.BidWithToken(native, alice, payToken, big.NewInt(200), 1), ErrWrongPaymentAsset)
	require.ErrorIs(t, e.Bid(tokenAuc, alice, big.NewInt(200), 1), ErrWrongPaymentAsset)
	require.ErrorIs(t, e.BidWithToken(tokenAuc, alice, assets.Native, big.NewInt(200), 1), ErrWrongPaymentAsset)

	require.NoError(t, e.BidWithToken(tokenAuc, alice, payToken, big.NewInt(200), 1))

	err := e.Bid(99, alice, big.NewInt(200), 1)
	require.ErrorIs(t, err, ErrAuctionNotFound)
}

func TestEndAuctionSettles(t *testing.T) {
	e, vault := newTestEngine(t)
	require.NoError(t, e.SetFeeTiers(operator, []FeeTier{
		{MinUSD: usd(0), MaxUSD: usd(1000), Bps: 500},
		{MinUSD: usd(1000), Bps: 300},
	}))

	id := listToken(t, e, vault, 1, assets.Native, units(1), 3600, 0)
	vault.Mint(assets.Native, alice, units(600))

	// 500 units at 2 USD each: exactly 1000 USD, the upper band
	require.NoError(t, e.Bid(id, alice, units(500), 10))

	fee, bps, usdValue, err := e.CalculatePlatformFee(id)
	require.NoError(t, err)
	require.EqualValues(t, 300, bps)
	require.Equal(t, usd(1000).String(), usdValue.String())
	require.Equal(t, units(15).String(), fee.String())

	_, err = e.EndAuction(id, alice, 3600)
	require.ErrorIs(t, err, ErrNotAuthorized)
	_, err = e.EndAuction(id, seller, 3599)
	require.ErrorIs(t, err, ErrAuctionNotYetEndable)

	outcome, err := e.EndAuction(id, seller, 3600)
	require.NoError(t, err)
	require.Equal(t, OutcomeSettled, outcome.Kind)
	require.Equal(t, alice, outcome.Winner)
	require.Equal(t, units(500).String(), outcome.Price.String())
	require.EqualValues(t, 300, outcome.FeeBps)
	require.Equal(t, fee.String(), outcome.FeeAmount.String())

	require.Equal(t, units(15).String(), vault.BalanceOf(assets.Native, feeRecipient).String())
	require.Equal(t, units(485).String(), vault.BalanceOf(assets.Native, seller).String())
	holder, err := vault.OwnerOf(nftContract, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, alice, holder)

	_, err = e.EndAuction(id, seller, 3601)
	require.ErrorIs(t, err, ErrAlreadyEnded)
}

func TestEndAuctionWithoutBids(t *testing.T) {
	e, vault := newTestEngine(t)
	id := listToken(t, e, vault, 1, assets.Native, big.NewInt(100), 3600, 0)

	outcome, err := e.EndAuction(id, operator, 3600)
	require.NoError(t, err)
	require.Equal(t, OutcomeCancelled, outcome.Kind)
	require.Zero(t, outcome.Price.Sign())

	holder, err := vault.OwnerOf(nftContract, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, seller, holder)
}

func TestDefaultFeeBelowTiers(t *testing.T) {
	e, vault := newTestEngine(t)
	require.NoError(t, e.SetFeeTiers(operator, []FeeTier{
		{MinUSD: usd(1000), Bps: 300},
	}))

	id := listToken(t, e, vault, 1, assets.Native, big.NewInt(1), 3600, 0)
	vault.Mint(assets.Native, alice, units(10))
	require.NoError(t, e.Bid(id, alice, units(10), 1))

	_, bps, _, err := e.CalculatePlatformFee(id)
	require.NoError(t, err)
	require.EqualValues(t, 250, bps)
}

func TestEmergencyCancel(t *testing.T) {
	e, vault := newTestEngine(t)
	id := listToken(t, e, vault, 1, assets.Native, big.NewInt(100), 3600, 0)
	vault.Mint(assets.Native, alice, big.NewInt(500))
	require.NoError(t, e.Bid(id, alice, big.NewInt(300), 1))

	_, err := e.EmergencyCancel(id, seller, 2)
	require.ErrorIs(t, err, ErrNotAuthorized)

	outcome, err := e.EmergencyCancel(id, operator, 2)
	require.NoError(t, err)
	require.Equal(t, OutcomeCancelled, outcome.Kind)

	require.Equal(t, "500", vault.BalanceOf(assets.Native, alice).String())
	holder, err := vault.OwnerOf(nftContract, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, seller, holder)

	_, err = e.EmergencyCancel(id, operator, 3)
	require.ErrorIs(t, err, ErrAlreadyEnded)
}

func TestSetFeeTiersValidation(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.SetFeeTiers(alice, []FeeTier{{MinUSD: usd(0), Bps: 100}})
	require.ErrorIs(t, err, ErrNotAuthorized)

	err = e.SetFeeTiers(operator, []FeeTier{
		{MinUSD: usd(0), MaxUSD: usd(500), Bps: 100},
		{MinUSD: usd(400), Bps: 200},
	})
	require.ErrorIs(t, err, ErrInvalidFeeTiers)

	err = e.SetFeeTiers(operator, []FeeTier{
		{MinUSD: usd(0), Bps: 100},
		{MinUSD: usd(500), Bps: 200},
	})
	require.ErrorIs(t, err, ErrInvalidFeeTiers)

	err = e.SetFeeTiers(operator, []FeeTier{{MinUSD: usd(0), Bps: 10001}})
	require.ErrorIs(t, err, ErrInvalidFeeTiers)
}

func TestGetActiveAuctions(t *testing.T) {
	e, vault := newTestEngine(t)
	short := listToken(t, e, vault, 1, assets.Native, big.NewInt(1), 60, 0)
	long := listToken(t, e, vault, 2, assets.Native, big.NewInt(1), 3600, 0)
	cancelled := listToken(t, e, vault, 3, assets.Native, big.NewInt(1), 3600, 0)

	_, err := e.EmergencyCancel(cancelled, operator, 1)
	require.NoError(t, err)

	active := e.GetActiveAuctions(59)
	require.Len(t, active, 2)
	require.Equal(t, short, active[0].ID)
	require.Equal(t, long, active[1].ID)

	active = e.GetActiveAuctions(60)
	require.Len(t, active, 1)
	require.Equal(t, long, active[0].ID)
}
