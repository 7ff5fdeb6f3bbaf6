package config

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/internal/auction"
	"stakeledger/internal/oracle"
)

// ParseFeeTiers converts "min-max:bps" specs (whole USD, "inf" or empty max
// for unbounded) into fee tiers. Example: "0-1000:500", "100000-:100".
func ParseFeeTiers(specs []string) ([]auction.FeeTier, error) {
	tiers := make([]auction.FeeTier, 0, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		bandAndRate := strings.Split(spec, ":")
		if len(bandAndRate) != 2 {
			return nil, fmt.Errorf("fee tier %q: want min-max:bps", spec)
		}
		bounds := strings.SplitN(bandAndRate[0], "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("fee tier %q: want min-max:bps", spec)
		}

		minUSD, err := parseUSD(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("fee tier %q min: %w", spec, err)
		}
		bps, err := strconv.ParseUint(bandAndRate[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("fee tier %q bps: %w", spec, err)
		}

		tier := auction.FeeTier{MinUSD: minUSD, Bps: uint32(bps)}
		if upper := strings.TrimSpace(bounds[1]); upper != "" && upper != "inf" {
			maxUSD, err := parseUSD(upper)
			if err != nil {
				return nil, fmt.Errorf("fee tier %q max: %w", spec, err)
			}
			tier.MaxUSD = maxUSD
		}
		tiers = append(tiers, tier)
	}
	if err := auction.ValidateTiers(tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

// ParseFeeds converts "asset=price:decimals:description" specs into a static
// price source. The asset may be "native" for the native currency feed.
func ParseFeeds(specs []string) (*oracle.StaticSource, error) {
	source := oracle.NewStaticSource()
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		assetAndFeed := strings.SplitN(spec, "=", 2)
		if len(assetAndFeed) != 2 {
			return nil, fmt.Errorf("price feed %q: want asset=price:decimals:description", spec)
		}
		asset, err := ParseAccount(assetAndFeed[0])
		if err != nil {
			return nil, fmt.Errorf("price feed %q: %w", spec, err)
		}

		parts := strings.SplitN(assetAndFeed[1], ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("price feed %q: want asset=price:decimals:description", spec)
		}
		raw, ok := new(big.Int).SetString(strings.TrimSpace(parts[0]), 10)
		if !ok {
			return nil, fmt.Errorf("price feed %q: invalid price %q", spec, parts[0])
		}
		decimals, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("price feed %q: invalid decimals: %w", spec, err)
		}
		description := ""
		if len(parts) == 3 {
			description = strings.TrimSpace(parts[2])
		}
		source.Set(asset, raw, uint8(decimals), description)
	}
	return source, nil
}

// ParseAggregators converts "asset=aggregator" specs into address pairs for
// the Chainlink-backed price source.
func ParseAggregators(specs []string) (map[common.Address]common.Address, error) {
	feeds := make(map[common.Address]common.Address, len(specs))
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		pair := strings.SplitN(spec, "=", 2)
		if len(pair) != 2 {
			return nil, fmt.Errorf("price feed %q: want asset=aggregator", spec)
		}
		asset, err := ParseAccount(pair[0])
		if err != nil {
			return nil, fmt.Errorf("price feed %q: %w", spec, err)
		}
		aggregator := strings.TrimSpace(pair[1])
		if !common.IsHexAddress(aggregator) {
			return nil, fmt.Errorf("price feed %q: invalid aggregator address", spec)
		}
		feeds[asset] = common.HexToAddress(aggregator)
	}
	return feeds, nil
}

// ParseAccount parses a hex address; "native" and "" map to the zero
// address.
func ParseAccount(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.EqualFold(input, "native") {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

// ParseRate parses a decimal reward rate.
func ParseRate(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return big.NewInt(0), nil
	}
	rate, ok := new(big.Int).SetString(input, 10)
	if !ok || rate.Sign() < 0 {
		return nil, fmt.Errorf("invalid reward rate: %s", input)
	}
	return rate, nil
}

// parseUSD converts a whole-USD figure into the 18-decimal scale used by the
// fee resolver.
func parseUSD(input string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(input), 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid usd value: %s", input)
	}
	return value.Mul(value, oracle.NormalizedScale), nil
}
