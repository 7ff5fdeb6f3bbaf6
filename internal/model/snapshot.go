package model

// PoolRecord is the persisted form of a staking pool.
type PoolRecord struct {
	PoolID            uint64 `json:"pool_id"`
	Asset             string `json:"asset"`
	Weight            uint64 `json:"weight"`
	LastAccrualTick   uint64 `json:"last_accrual_tick"`
	AccRewardPerShare string `json:"acc_reward_per_share"`
	TotalStaked       string `json:"total_staked"`
	MinDeposit        string `json:"min_deposit"`
	WithdrawLockTicks uint64 `json:"withdraw_lock_ticks"`
}

// WithdrawalEntry is one queued unstake request.
type WithdrawalEntry struct {
	Amount     string `json:"amount"`
	UnlockTick uint64 `json:"unlock_tick"`
}

// StakeRecord is the persisted form of one user position in one pool.
type StakeRecord struct {
	PoolID       uint64            `json:"pool_id"`
	User         string            `json:"user"`
	Amount       string            `json:"amount"`
	RewardDebt   string            `json:"reward_debt"`
	UnpaidReward string            `json:"unpaid_reward"`
	Queue        []WithdrawalEntry `json:"queue,omitempty"`
}

// LedgerState is the full reward-ledger side of a snapshot.
type LedgerState struct {
	Clock          uint64        `json:"clock"`
	WithdrawPaused bool          `json:"withdraw_paused"`
	ClaimPaused    bool          `json:"claim_paused"`
	Pools          []PoolRecord  `json:"pools"`
	Stakes         []StakeRecord `json:"stakes"`
}

// AuctionRecord is the persisted form of an auction.
type AuctionRecord struct {
	ID            uint64 `json:"id"`
	Seller        string `json:"seller"`
	NFT           string `json:"nft"`
	TokenID       string `json:"token_id"`
	PaymentAsset  string `json:"payment_asset"`
	StartPrice    string `json:"start_price"`
	StartTick     uint64 `json:"start_tick"`
	EndTick       uint64 `json:"end_tick"`
	HighestBidder string `json:"highest_bidder"`
	HighestBid    string `json:"highest_bid"`
	Ended         bool   `json:"ended"`
}

// FeeTierRecord is one USD band of the platform fee table.
type FeeTierRecord struct {
	MinUSD string `json:"min_usd"`
	MaxUSD string `json:"max_usd,omitempty"` // empty = unbounded
	Bps    uint32 `json:"bps"`
}

// AuctionState is the auction-engine side of a snapshot.
type AuctionState struct {
	NextID        uint64          `json:"next_id"`
	FeeRecipient  string          `json:"fee_recipient"`
	DefaultFeeBps uint32          `json:"default_fee_bps"`
	FeeTiers      []FeeTierRecord `json:"fee_tiers"`
	Auctions      []AuctionRecord `json:"auctions"`
}

// BalanceRecord is one vault balance row.
type BalanceRecord struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// NFTRecord is one vault NFT ownership row.
type NFTRecord struct {
	Contract  string   `json:"contract"`
	TokenID   string   `json:"token_id"`
	Owner     string   `json:"owner"`
	Operators []string `json:"operators,omitempty"`
}

// Snapshot is a full, self-contained ledger state at a log position.
type Snapshot struct {
	LastSeq   uint64          `json:"last_seq"`
	LastTick  uint64          `json:"last_tick"`
	Ledger    LedgerState     `json:"ledger"`
	Auctions  AuctionState    `json:"auctions"`
	Balances  []BalanceRecord `json:"balances,omitempty"`
	NFTs      []NFTRecord     `json:"nfts,omitempty"`
	UpdatedAt string          `json:"updated_at"`
}
