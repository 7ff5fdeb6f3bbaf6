package auction

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/internal/model"
)

// Export captures the engine state in persistable form, auctions ordered by
// id.
func (e *Engine) Export() model.AuctionState {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := model.AuctionState{
		NextID:        e.nextID,
		FeeRecipient:  e.cfg.FeeRecipient.Hex(),
		DefaultFeeBps: e.cfg.DefaultFeeBps,
	}
	for _, tier := range e.tiers {
		record := model.FeeTierRecord{
			MinUSD: tier.MinUSD.String(),
			Bps:    tier.Bps,
		}
		if tier.MaxUSD != nil {
			record.MaxUSD = tier.MaxUSD.String()
		}
		state.FeeTiers = append(state.FeeTiers, record)
	}

	ids := make([]uint64, 0, len(e.auctions))
	for id := range e.auctions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		a := e.auctions[id]
		state.Auctions = append(state.Auctions, model.AuctionRecord{
			ID:            a.ID,
			Seller:        a.Seller.Hex(),
			NFT:           a.NFT.Hex(),
			TokenID:       a.TokenID.String(),
			PaymentAsset:  a.PaymentAsset.Hex(),
			StartPrice:    a.StartPrice.String(),
			StartTick:     a.StartTick,
			EndTick:       a.EndTick,
			HighestBidder: a.HighestBidder.Hex(),
			HighestBid:    a.HighestBid.String(),
			Ended:         a.Ended,
		})
	}
	return state
}

// Restore replaces the engine state with a previously exported one.
func (e *Engine) Restore(state model.AuctionState) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tiers := make([]FeeTier, 0, len(state.FeeTiers))
	for i, record := range state.FeeTiers {
		minUSD, err := parsePositive(record.MinUSD)
		if err != nil {
			return fmt.Errorf("fee tier %d min: %w", i, err)
		}
		tier := FeeTier{MinUSD: minUSD, Bps: record.Bps}
		if record.MaxUSD != "" {
			maxUSD, err := parsePositive(record.MaxUSD)
			if err != nil {
				return fmt.Errorf("fee tier %d max: %w", i, err)
			}
			tier.MaxUSD = maxUSD
		}
		tiers = append(tiers, tier)
	}
	if err := ValidateTiers(tiers); err != nil {
		return err
	}

	auctions := make(map[uint64]*Auction, len(state.Auctions))
	for _, record := range state.Auctions {
		tokenID, err := parsePositive(record.TokenID)
		if err != nil {
			return fmt.Errorf("auction %d token id: %w", record.ID, err)
		}
		startPrice, err := parsePositive(record.StartPrice)
		if err != nil {
			return fmt.Errorf("auction %d start price: %w", record.ID, err)
		}
		highestBid, err := parsePositive(record.HighestBid)
		if err != nil {
			return fmt.Errorf("auction %d highest bid: %w", record.ID, err)
		}
		auctions[record.ID] = &Auction{
			ID:            record.ID,
			Seller:        common.HexToAddress(record.Seller),
			NFT:           common.HexToAddress(record.NFT),
			TokenID:       tokenID,
			PaymentAsset:  common.HexToAddress(record.PaymentAsset),
			StartPrice:    startPrice,
			StartTick:     record.StartTick,
			EndTick:       record.EndTick,
			HighestBidder: common.HexToAddress(record.HighestBidder),
			HighestBid:    highestBid,
			Ended:         record.Ended,
		}
	}

	e.tiers = tiers
	e.auctions = auctions
	e.nextID = state.NextID
	if e.nextID == 0 {
		e.nextID = 1
	}
	e.cfg.FeeRecipient = common.HexToAddress(state.FeeRecipient)
	e.cfg.DefaultFeeBps = state.DefaultFeeBps
	return nil
}

func parsePositive(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}
