package auction

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"stakeledger/internal/assets"
	"stakeledger/internal/oracle"
)

// Auction duration bounds, in ticks interpreted as seconds.
const (
	MinDuration = 60
	MaxDuration = 30 * 86400
)

// Auction is one listing. PaymentAsset zero means bids are native currency.
type Auction struct {
	ID            uint64
	Seller        common.Address
	NFT           common.Address
	TokenID       *big.Int
	PaymentAsset  common.Address
	StartPrice    *big.Int
	StartTick     uint64
	EndTick       uint64
	HighestBidder common.Address
	HighestBid    *big.Int
	Ended         bool
}

// HasBid reports whether any bid has been accepted.
func (a *Auction) HasBid() bool {
	return a.HighestBid.Sign() > 0
}

// OutcomeKind distinguishes a settlement from a cancellation.
type OutcomeKind string

const (
	OutcomeSettled   OutcomeKind = "settled"
	OutcomeCancelled OutcomeKind = "cancelled"
)

// Outcome describes how an auction closed.
type Outcome struct {
	AuctionID uint64
	Kind      OutcomeKind
	Winner    common.Address
	Price     *big.Int
	FeeBps    uint32
	FeeAmount *big.Int
	USDValue  *big.Int
}

// Config holds the engine's fixed roles and fee fallback.
type Config struct {
	// Operator may end any auction, cancel in emergencies, and manage fees.
	Operator common.Address
	// Custody is the account holding escrowed bids and listed assets.
	Custody common.Address
	// FeeRecipient receives platform fees.
	FeeRecipient common.Address
	// DefaultFeeBps applies to values below or between fee tiers.
	DefaultFeeBps uint32
}

// Engine is the auction settlement state machine. One mutex serializes all
// mutating calls; external transfers happen with the lock held so no nested
// call can observe half-updated bookkeeping.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	bank   assets.TokenBank
	nfts   assets.NFTRegistry
	prices oracle.PriceSource
	logger *zap.Logger

	tiers    []FeeTier
	auctions map[uint64]*Auction
	nextID   uint64
}

func NewEngine(cfg Config, bank assets.TokenBank, nfts assets.NFTRegistry, prices oracle.PriceSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		bank:     bank,
		nfts:     nfts,
		prices:   prices,
		logger:   logger,
		auctions: make(map[uint64]*Auction),
		nextID:   1,
	}
}

// SetFeeTiers replaces the fee table.
func (e *Engine) SetFeeTiers(caller common.Address, tiers []FeeTier) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.cfg.Operator {
		return ErrNotAuthorized
	}
	if err := ValidateTiers(tiers); err != nil {
		return err
	}
	e.tiers = copyTiers(tiers)
	e.logger.Info("fee tiers set", zap.Int("tiers", len(tiers)))
	return nil
}

// SetFeeRecipient changes where platform fees are paid.
func (e *Engine) SetFeeRecipient(caller, recipient common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.cfg.Operator {
		return ErrNotAuthorized
	}
	e.cfg.FeeRecipient = recipient
	return nil
}

// CreateAuction lists an asset and takes custody of it.
func (e *Engine) CreateAuction(seller, nft common.Address, tokenID, startPrice *big.Int, duration uint64, paymentAsset common.Address, tick uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if startPrice == nil || startPrice.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	if duration < MinDuration || duration > MaxDuration {
		return 0, fmt.Errorf("duration %d: %w", duration, ErrInvalidDuration)
	}
	owner, err := e.nfts.OwnerOf(nft, tokenID)
	if err != nil {
		return 0, fmt.Errorf("resolve owner: %w", err)
	}
	if owner != seller {
		return 0, fmt.Errorf("seller does not hold %s/%s: %w", nft.Hex(), tokenID, ErrAssetNotApproved)
	}
	approved, err := e.nfts.IsApproved(nft, tokenID, e.cfg.Custody)
	if err != nil {
		return 0, fmt.Errorf("check approval: %w", err)
	}
	if !approved {
		return 0, fmt.Errorf("custody %s not approved for %s/%s: %w", e.cfg.Custody.Hex(), nft.Hex(), tokenID, ErrAssetNotApproved)
	}
	if err := e.nfts.TransferNFT(nft, tokenID, seller, e.cfg.Custody); err != nil {
		return 0, fmt.Errorf("take custody: %w", err)
	}

	id := e.nextID
	e.nextID++
	e.auctions[id] = &Auction{
		ID:           id,
		Seller:       seller,
		NFT:          nft,
		TokenID:      new(big.Int).Set(tokenID),
		PaymentAsset: paymentAsset,
		StartPrice:   new(big.Int).Set(startPrice),
		StartTick:    tick,
		EndTick:      tick + duration,
		HighestBid:   big.NewInt(0),
	}

	e.logger.Info("auction created",
		zap.Uint64("auction_id", id),
		zap.String("seller", seller.Hex()),
		zap.String("nft", nft.Hex()),
		zap.String("token_id", tokenID.String()),
		zap.Uint64("end_tick", tick+duration),
	)
	return id, nil
}

// Bid places a native-currency bid.
func (e *Engine) Bid(id uint64, bidder common.Address, amount *big.Int, tick uint64) error {
	return e.bid(id, bidder, assets.Native, amount, tick)
}

// BidWithToken places an ERC20 bid in the auction's payment asset.
func (e *Engine) BidWithToken(id uint64, bidder, asset common.Address, amount *big.Int, tick uint64) error {
	if asset == assets.Native {
		return ErrWrongPaymentAsset
	}
	return e.bid(id, bidder, asset, amount, tick)
}

func (e *Engine) bid(id uint64, bidder, asset common.Address, amount *big.Int, tick uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.auction(id)
	if err != nil {
		return err
	}
	if a.Ended || tick >= a.EndTick {
		return ErrAuctionEnded
	}
	if asset != a.PaymentAsset {
		return ErrWrongPaymentAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrBidTooLow
	}
	if a.HasBid() {
		if amount.Cmp(a.HighestBid) <= 0 {
			return fmt.Errorf("bid %s <= highest %s: %w", amount, a.HighestBid, ErrBidTooLow)
		}
	} else if amount.Cmp(a.StartPrice) < 0 {
		return fmt.Errorf("bid %s < start price %s: %w", amount, a.StartPrice, ErrBidTooLow)
	}

	if err := e.bank.Transfer(a.PaymentAsset, bidder, e.cfg.Custody, amount); err != nil {
		return fmt.Errorf("pull bid: %w", err)
	}

	prevBidder, prevBid := a.HighestBidder, a.HighestBid
	if prevBid.Sign() > 0 {
		if err := e.bank.Transfer(a.PaymentAsset, e.cfg.Custody, prevBidder, prevBid); err != nil {
			// restore the pulled bid so the failed operation leaves no trace
			if undo := e.bank.Transfer(a.PaymentAsset, e.cfg.Custody, bidder, amount); undo != nil {
				e.logger.Error("bid rollback failed", zap.Uint64("auction_id", id), zap.Error(undo))
			}
			return fmt.Errorf("refund previous bidder: %w", err)
		}
	}
	a.HighestBidder = bidder
	a.HighestBid = new(big.Int).Set(amount)

	e.logger.Debug("bid accepted",
		zap.Uint64("auction_id", id),
		zap.String("bidder", bidder.Hex()),
		zap.String("amount", amount.String()),
		zap.Uint64("tick", tick),
	)
	return nil
}

// EndAuction settles an auction after its end tick. With no bids the asset
// returns to the seller and the outcome is a cancellation; otherwise fees
// are resolved through the price oracle and the fee table, the seller is
// paid, and the asset goes to the winner.
func (e *Engine) EndAuction(id uint64, caller common.Address, tick uint64) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.auction(id)
	if err != nil {
		return Outcome{}, err
	}
	if caller != a.Seller && caller != e.cfg.Operator {
		return Outcome{}, ErrNotAuthorized
	}
	if a.Ended {
		return Outcome{}, ErrAlreadyEnded
	}
	if tick < a.EndTick {
		return Outcome{}, fmt.Errorf("tick %d < end tick %d: %w", tick, a.EndTick, ErrAuctionNotYetEndable)
	}

	if !a.HasBid() {
		if err := e.nfts.TransferNFT(a.NFT, a.TokenID, e.cfg.Custody, a.Seller); err != nil {
			return Outcome{}, fmt.Errorf("return asset: %w", err)
		}
		a.Ended = true
		outcome := Outcome{
			AuctionID: id,
			Kind:      OutcomeCancelled,
			Price:     big.NewInt(0),
			FeeAmount: big.NewInt(0),
		}
		e.logger.Info("auction cancelled", zap.Uint64("auction_id", id), zap.String("reason", "no bids"))
		return outcome, nil
	}

	fee, bps, usd, err := e.platformFee(a)
	if err != nil {
		return Outcome{}, err
	}
	proceeds := new(big.Int).Sub(a.HighestBid, fee)

	if fee.Sign() > 0 {
		if err := e.bank.Transfer(a.PaymentAsset, e.cfg.Custody, e.cfg.FeeRecipient, fee); err != nil {
			return Outcome{}, fmt.Errorf("pay fee: %w", err)
		}
	}
	if err := e.bank.Transfer(a.PaymentAsset, e.cfg.Custody, a.Seller, proceeds); err != nil {
		return Outcome{}, fmt.Errorf("pay seller: %w", err)
	}
	if err := e.nfts.TransferNFT(a.NFT, a.TokenID, e.cfg.Custody, a.HighestBidder); err != nil {
		return Outcome{}, fmt.Errorf("deliver asset: %w", err)
	}
	a.Ended = true

	outcome := Outcome{
		AuctionID: id,
		Kind:      OutcomeSettled,
		Winner:    a.HighestBidder,
		Price:     new(big.Int).Set(a.HighestBid),
		FeeBps:    bps,
		FeeAmount: fee,
		USDValue:  usd,
	}
	e.logger.Info("auction settled",
		zap.Uint64("auction_id", id),
		zap.String("winner", a.HighestBidder.Hex()),
		zap.String("price", a.HighestBid.String()),
		zap.Uint32("fee_bps", bps),
		zap.String("fee", fee.String()),
	)
	return outcome, nil
}

// EmergencyCancel unwinds an auction at any time before settlement: the
// highest bidder is refunded and the asset returns to the seller.
func (e *Engine) EmergencyCancel(id uint64, caller common.Address, tick uint64) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.auction(id)
	if err != nil {
		return Outcome{}, err
	}
	if caller != e.cfg.Operator {
		return Outcome{}, ErrNotAuthorized
	}
	if a.Ended {
		return Outcome{}, ErrAlreadyEnded
	}

	if a.HasBid() {
		if err := e.bank.Transfer(a.PaymentAsset, e.cfg.Custody, a.HighestBidder, a.HighestBid); err != nil {
			return Outcome{}, fmt.Errorf("refund bidder: %w", err)
		}
	}
	if err := e.nfts.TransferNFT(a.NFT, a.TokenID, e.cfg.Custody, a.Seller); err != nil {
		return Outcome{}, fmt.Errorf("return asset: %w", err)
	}
	a.Ended = true

	e.logger.Warn("auction emergency cancelled", zap.Uint64("auction_id", id), zap.Uint64("tick", tick))
	return Outcome{
		AuctionID: id,
		Kind:      OutcomeCancelled,
		Price:     big.NewInt(0),
		FeeAmount: big.NewInt(0),
	}, nil
}

// CalculatePlatformFee resolves the fee the current highest bid would pay at
// settlement. It mutates nothing and matches EndAuction's computation
// exactly.
func (e *Engine) CalculatePlatformFee(id uint64) (fee *big.Int, bps uint32, usdValue *big.Int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.auction(id)
	if err != nil {
		return nil, 0, nil, err
	}
	if !a.HasBid() {
		return big.NewInt(0), e.cfg.DefaultFeeBps, big.NewInt(0), nil
	}
	return e.platformFee(a)
}

func (e *Engine) platformFee(a *Auction) (*big.Int, uint32, *big.Int, error) {
	price, err := e.prices.NormalizedPrice(a.PaymentAsset)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("price bid: %w", err)
	}
	usd := new(big.Int).Mul(a.HighestBid, price)
	usd.Div(usd, oracle.NormalizedScale)
	bps := ResolveFeeBps(e.tiers, e.cfg.DefaultFeeBps, usd)
	return FeeAmount(a.HighestBid, bps), bps, usd, nil
}

// GetAuction returns a copy of an auction.
func (e *Engine) GetAuction(id uint64) (Auction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.auction(id)
	if err != nil {
		return Auction{}, err
	}
	return copyAuction(a), nil
}

// GetActiveAuctions lists auctions still open for bids at a tick, in id
// order.
func (e *Engine) GetActiveAuctions(tick uint64) []Auction {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]uint64, 0, len(e.auctions))
	for id, a := range e.auctions {
		if !a.Ended && tick < a.EndTick {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Auction, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyAuction(e.auctions[id]))
	}
	return out
}

func (e *Engine) auction(id uint64) (*Auction, error) {
	a, ok := e.auctions[id]
	if !ok {
		return nil, fmt.Errorf("auction %d: %w", id, ErrAuctionNotFound)
	}
	return a, nil
}

func copyAuction(a *Auction) Auction {
	out := *a
	out.TokenID = new(big.Int).Set(a.TokenID)
	out.StartPrice = new(big.Int).Set(a.StartPrice)
	out.HighestBid = new(big.Int).Set(a.HighestBid)
	return out
}
