package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Scale is the fixed-point factor applied to the reward-per-share
// accumulator.
var Scale = big.NewInt(1_000_000_000_000)

// Pool tracks one staking pool. The zero asset address marks the native
// currency pool, which must be pool 0.
type Pool struct {
	Asset             common.Address
	Weight            uint64
	LastAccrualTick   uint64
	AccRewardPerShare *big.Int
	TotalStaked       *big.Int
	MinDeposit        *big.Int
	WithdrawLockTicks uint64
}

// WithdrawalRequest is one time-locked unstake entry. Entries move through
// Requested -> Unlocked (tick passes) -> Withdrawn (removed) and never
// backward.
type WithdrawalRequest struct {
	Amount     *big.Int
	UnlockTick uint64
}

// UserStake is the per-pool, per-participant position.
type UserStake struct {
	Amount       *big.Int
	RewardDebt   *big.Int // AccRewardPerShare * Amount at last interaction, scaled
	UnpaidReward *big.Int
	Queue        []WithdrawalRequest
}

func newUserStake() *UserStake {
	return &UserStake{
		Amount:       big.NewInt(0),
		RewardDebt:   big.NewInt(0),
		UnpaidReward: big.NewInt(0),
	}
}

// IsNative reports whether the pool holds the native currency.
func (p *Pool) IsNative() bool {
	return p.Asset == (common.Address{})
}

// pending returns the reward accrued since the last debt sync, descaled,
// against the given accumulator value.
func (u *UserStake) pending(acc *big.Int) *big.Int {
	earned := new(big.Int).Mul(u.Amount, acc)
	earned.Sub(earned, u.RewardDebt)
	if earned.Sign() <= 0 {
		return big.NewInt(0)
	}
	return earned.Div(earned, Scale)
}

// syncDebt resynchronizes the reward debt snapshot to the accumulator.
func (u *UserStake) syncDebt(acc *big.Int) {
	u.RewardDebt = new(big.Int).Mul(u.Amount, acc)
}
