package oracle

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type staticFeed struct {
	raw         *big.Int
	decimals    uint8
	description string
}

// StaticSource serves prices from a fixed in-memory table. It is the
// deterministic source used for replay and tests.
type StaticSource struct {
	mu    sync.RWMutex
	feeds map[common.Address]staticFeed
}

func NewStaticSource() *StaticSource {
	return &StaticSource{feeds: make(map[common.Address]staticFeed)}
}

// Set installs or replaces the feed for an asset.
func (s *StaticSource) Set(asset common.Address, raw *big.Int, decimals uint8, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[asset] = staticFeed{
		raw:         new(big.Int).Set(raw),
		decimals:    decimals,
		description: description,
	}
}

func (s *StaticSource) NormalizedPrice(asset common.Address) (*big.Int, error) {
	raw, decimals, _, err := s.PriceData(asset)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, decimals), nil
}

func (s *StaticSource) PriceData(asset common.Address) (*big.Int, uint8, string, error) {
	s.mu.RLock()
	feed, ok := s.feeds[asset]
	s.mu.RUnlock()
	if !ok {
		return nil, 0, "", fmt.Errorf("asset %s: %w", asset.Hex(), ErrFeedNotSet)
	}
	return new(big.Int).Set(feed.raw), feed.decimals, feed.description, nil
}
