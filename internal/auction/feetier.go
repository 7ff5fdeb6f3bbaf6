package auction

import (
	"fmt"
	"math/big"
)

// Basis-point denominator for fee math.
var bpsDenominator = big.NewInt(10_000)

// FeeTier is one USD band of the platform fee table. Values are USD scaled
// to 18 decimals; a nil MaxUSD leaves the band unbounded above. Bands are
// half-open: a value equal to MinUSD belongs to the band, one equal to
// MaxUSD does not.
type FeeTier struct {
	MinUSD *big.Int
	MaxUSD *big.Int
	Bps    uint32
}

// ValidateTiers checks that tiers are ascending, non-overlapping, and carry
// sane rates. Only the last tier may be unbounded.
func ValidateTiers(tiers []FeeTier) error {
	for i, tier := range tiers {
		if tier.MinUSD == nil || tier.MinUSD.Sign() < 0 {
			return fmt.Errorf("tier %d: min must be non-negative: %w", i, ErrInvalidFeeTiers)
		}
		if tier.Bps > 10_000 {
			return fmt.Errorf("tier %d: bps %d > 10000: %w", i, tier.Bps, ErrInvalidFeeTiers)
		}
		if tier.MaxUSD == nil {
			if i != len(tiers)-1 {
				return fmt.Errorf("tier %d: only the last tier may be unbounded: %w", i, ErrInvalidFeeTiers)
			}
			continue
		}
		if tier.MaxUSD.Cmp(tier.MinUSD) <= 0 {
			return fmt.Errorf("tier %d: max must exceed min: %w", i, ErrInvalidFeeTiers)
		}
		if i+1 < len(tiers) && tiers[i+1].MinUSD.Cmp(tier.MaxUSD) < 0 {
			return fmt.Errorf("tier %d overlaps tier %d: %w", i, i+1, ErrInvalidFeeTiers)
		}
	}
	return nil
}

// ResolveFeeBps picks the first tier containing the USD value. Values below
// the lowest tier, or in a gap between tiers, take the default rate.
func ResolveFeeBps(tiers []FeeTier, defaultBps uint32, usdValue *big.Int) uint32 {
	for _, tier := range tiers {
		if usdValue.Cmp(tier.MinUSD) < 0 {
			break
		}
		if tier.MaxUSD == nil || usdValue.Cmp(tier.MaxUSD) < 0 {
			return tier.Bps
		}
	}
	return defaultBps
}

// FeeAmount computes value * bps / 10000.
func FeeAmount(value *big.Int, bps uint32) *big.Int {
	fee := new(big.Int).Mul(value, big.NewInt(int64(bps)))
	return fee.Div(fee, bpsDenominator)
}

func copyTiers(tiers []FeeTier) []FeeTier {
	out := make([]FeeTier, len(tiers))
	for i, tier := range tiers {
		out[i] = FeeTier{
			MinUSD: new(big.Int).Set(tier.MinUSD),
			Bps:    tier.Bps,
		}
		if tier.MaxUSD != nil {
			out[i].MaxUSD = new(big.Int).Set(tier.MaxUSD)
		}
	}
	return out
}
