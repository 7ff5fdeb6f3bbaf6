package oracle

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrFeedNotSet is returned when no price feed exists for an asset. A missing
// feed is a hard failure, never a zero price.
var ErrFeedNotSet = errors.New("price feed not set")

// Decimals of a normalized price.
const NormalizedDecimals = 18

// NormalizedScale is 10^NormalizedDecimals.
var NormalizedScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(NormalizedDecimals), nil)

// PriceSource resolves asset prices in USD.
type PriceSource interface {
	// NormalizedPrice returns the USD price scaled to 18 decimals.
	NormalizedPrice(asset common.Address) (*big.Int, error)
	// PriceData returns the raw feed answer, its decimals, and a description.
	PriceData(asset common.Address) (*big.Int, uint8, string, error)
}

// Normalize rescales a raw feed answer to 18 decimals.
func Normalize(raw *big.Int, decimals uint8) *big.Int {
	price := new(big.Int).Set(raw)
	switch {
	case decimals < NormalizedDecimals:
		exp := big.NewInt(int64(NormalizedDecimals - decimals))
		price.Mul(price, new(big.Int).Exp(big.NewInt(10), exp, nil))
	case decimals > NormalizedDecimals:
		exp := big.NewInt(int64(decimals - NormalizedDecimals))
		price.Div(price, new(big.Int).Exp(big.NewInt(10), exp, nil))
	}
	return price
}
