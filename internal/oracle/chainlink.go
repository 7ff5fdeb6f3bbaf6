package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"stakeledger/internal/chain"
)

const aggregatorABIJSON = `[
  {"inputs": [], "name": "latestRoundData", "outputs": [
    {"name": "roundId", "type": "uint80"},
    {"name": "answer", "type": "int256"},
    {"name": "startedAt", "type": "uint256"},
    {"name": "updatedAt", "type": "uint256"},
    {"name": "answeredInRound", "type": "uint80"}
  ], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "description", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

var (
	aggregatorABI     abi.ABI
	aggregatorABIOnce sync.Once
	aggregatorABIErr  error
)

func aggregatorABIInstance() (abi.ABI, error) {
	aggregatorABIOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

type feedMeta struct {
	decimals    uint8
	description string
}

// ChainlinkSource reads prices from Chainlink aggregator contracts via RPC.
// Feed decimals and description are immutable per aggregator and cached.
type ChainlinkSource struct {
	client *chain.Client
	ctx    context.Context

	mu    sync.RWMutex
	feeds map[common.Address]common.Address
	meta  map[common.Address]feedMeta
}

func NewChainlinkSource(ctx context.Context, client *chain.Client) *ChainlinkSource {
	return &ChainlinkSource{
		client: client,
		ctx:    ctx,
		feeds:  make(map[common.Address]common.Address),
		meta:   make(map[common.Address]feedMeta),
	}
}

// SetFeed maps an asset to its aggregator contract.
func (s *ChainlinkSource) SetFeed(asset, aggregator common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[asset] = aggregator
}

func (s *ChainlinkSource) NormalizedPrice(asset common.Address) (*big.Int, error) {
	raw, decimals, _, err := s.PriceData(asset)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, decimals), nil
}

func (s *ChainlinkSource) PriceData(asset common.Address) (*big.Int, uint8, string, error) {
	s.mu.RLock()
	aggregator, ok := s.feeds[asset]
	s.mu.RUnlock()
	if !ok {
		return nil, 0, "", fmt.Errorf("asset %s: %w", asset.Hex(), ErrFeedNotSet)
	}

	meta, err := s.feedMeta(aggregator)
	if err != nil {
		return nil, 0, "", err
	}

	values, err := s.callAggregator(aggregator, "latestRoundData")
	if err != nil {
		return nil, 0, "", err
	}
	if len(values) < 2 {
		return nil, 0, "", fmt.Errorf("latestRoundData: unexpected result arity %d", len(values))
	}
	answer, ok := values[1].(*big.Int)
	if !ok {
		return nil, 0, "", fmt.Errorf("latestRoundData: answer is %T", values[1])
	}

	return answer, meta.decimals, meta.description, nil
}

func (s *ChainlinkSource) feedMeta(aggregator common.Address) (feedMeta, error) {
	s.mu.RLock()
	meta, ok := s.meta[aggregator]
	s.mu.RUnlock()
	if ok {
		return meta, nil
	}

	values, err := s.callAggregator(aggregator, "decimals")
	if err != nil {
		return feedMeta{}, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return feedMeta{}, fmt.Errorf("decimals: result is %T", values[0])
	}

	values, err = s.callAggregator(aggregator, "description")
	if err != nil {
		return feedMeta{}, err
	}
	description, ok := values[0].(string)
	if !ok {
		return feedMeta{}, fmt.Errorf("description: result is %T", values[0])
	}

	meta = feedMeta{decimals: decimals, description: description}
	s.mu.Lock()
	s.meta[aggregator] = meta
	s.mu.Unlock()
	return meta, nil
}

func (s *ChainlinkSource) callAggregator(aggregator common.Address, method string) ([]interface{}, error) {
	parsed, err := aggregatorABIInstance()
	if err != nil {
		return nil, fmt.Errorf("parse aggregator abi: %w", err)
	}
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := s.client.CallContract(s.ctx, ethereum.CallMsg{To: &aggregator, Data: data})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return values, nil
}
