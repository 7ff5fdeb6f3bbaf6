package oracle

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	// Chainlink USD feeds answer with 8 decimals
	price := Normalize(big.NewInt(2_0000_0000), 8)
	require.Equal(t, "2000000000000000000", price.String())

	same := big.NewInt(123456)
	require.Equal(t, same.String(), Normalize(same, 18).String())

	down := Normalize(new(big.Int).Mul(big.NewInt(7), big.NewInt(1e18)), 20)
	require.Equal(t, "70000000000000000", down.String())
}

func TestStaticSource(t *testing.T) {
	asset := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	source := NewStaticSource()

	_, err := source.NormalizedPrice(asset)
	require.ErrorIs(t, err, ErrFeedNotSet)

	source.Set(asset, big.NewInt(150_000_000), 8, "TOK / USD")

	raw, decimals, description, err := source.PriceData(asset)
	require.NoError(t, err)
	require.Equal(t, "150000000", raw.String())
	require.EqualValues(t, 8, decimals)
	require.Equal(t, "TOK / USD", description)

	price, err := source.NormalizedPrice(asset)
	require.NoError(t, err)
	require.Equal(t, "1500000000000000000", price.String())
}
