package model

// Operation names accepted by the replayer.
const (
	OpFund        = "fund"
	OpFundNFT     = "fund_nft"
	OpApproveNFT  = "approve_nft"
	OpAddPool     = "add_pool"
	OpUpdatePool  = "update_pool"
	OpSetWeight   = "set_pool_weight"
	OpMassUpdate  = "mass_update"
	OpDeposit     = "deposit"
	OpDepositNat  = "deposit_native"
	OpUnstake     = "unstake"
	OpWithdraw    = "withdraw"
	OpClaim       = "claim"
	OpSetPause    = "set_pause"
	OpCreateAuc   = "create_auction"
	OpBid         = "bid"
	OpBidToken    = "bid_token"
	OpEndAuction  = "end_auction"
	OpEmergency   = "emergency_cancel"
	OpSetFeeTiers = "set_fee_tiers"
	OpSetFeeRec   = "set_fee_recipient"
)

// OpRecord is one entry of the append-only operation log. Amounts are
// decimal strings so records survive any integer width.
type OpRecord struct {
	Seq       uint64  `json:"seq"`
	Tick      uint64  `json:"tick"`
	Op        string  `json:"op"`
	Actor     string  `json:"actor"`
	PoolID    *uint64 `json:"pool_id,omitempty"`
	AuctionID *uint64 `json:"auction_id,omitempty"`

	Asset     string `json:"asset,omitempty"`
	Amount    string `json:"amount,omitempty"`
	NFT       string `json:"nft,omitempty"`
	TokenID   string `json:"token_id,omitempty"`
	Operator  string `json:"operator,omitempty"`
	Recipient string `json:"recipient,omitempty"`

	// add_pool / update_pool / set_pool_weight
	Weight     uint64 `json:"weight,omitempty"`
	MinDeposit string `json:"min_deposit,omitempty"`
	LockTicks  uint64 `json:"lock_ticks,omitempty"`
	WithUpdate bool   `json:"with_update,omitempty"`

	// create_auction
	StartPrice   string `json:"start_price,omitempty"`
	Duration     uint64 `json:"duration,omitempty"`
	PaymentAsset string `json:"payment_asset,omitempty"`

	// set_pause
	PauseWithdraw *bool `json:"pause_withdraw,omitempty"`
	PauseClaim    *bool `json:"pause_claim,omitempty"`

	// set_fee_tiers
	FeeTiers []FeeTierRecord `json:"fee_tiers,omitempty"`

	AppliedAt string `json:"applied_at,omitempty"`
}
