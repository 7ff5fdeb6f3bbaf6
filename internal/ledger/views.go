package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PendingReward returns the claimable reward at the latest tick the ledger
// has seen.
func (l *Ledger) PendingReward(pid uint64, user common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pendingAt(pid, user, l.clock)
}

// PendingRewardAtTick returns the claimable reward as of an explicit tick.
func (l *Ledger) PendingRewardAtTick(pid uint64, user common.Address, tick uint64) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pendingAt(pid, user, tick)
}

func (l *Ledger) pendingAt(pid uint64, user common.Address, tick uint64) (*big.Int, error) {
	pool, err := l.pool(pid)
	if err != nil {
		return nil, err
	}
	stake, ok := l.users[pid][user]
	if !ok {
		return big.NewInt(0), nil
	}

	acc := new(big.Int).Set(pool.AccRewardPerShare)
	end := tick
	if end > l.cfg.EndTick {
		end = l.cfg.EndTick
	}
	if end > pool.LastAccrualTick && pool.TotalStaked.Sign() > 0 && l.totalWeight > 0 {
		from := pool.LastAccrualTick
		if from < l.cfg.StartTick {
			from = l.cfg.StartTick
		}
		if end > from {
			acc.Add(acc, l.accrualDelta(pool, from, end))
		}
	}

	pending := stake.pending(acc)
	return pending.Add(pending, stake.UnpaidReward), nil
}

// WithdrawAmount reports a user's queued withdrawal total and the part of it
// releasable at the given tick.
func (l *Ledger) WithdrawAmount(pid uint64, user common.Address, tick uint64) (requested, releasable *big.Int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.pool(pid); err != nil {
		return nil, nil, err
	}
	requested = big.NewInt(0)
	releasable = big.NewInt(0)
	stake, ok := l.users[pid][user]
	if !ok {
		return requested, releasable, nil
	}
	for _, req := range stake.Queue {
		requested.Add(requested, req.Amount)
		if req.UnlockTick <= tick {
			releasable.Add(releasable, req.Amount)
		}
	}
	return requested, releasable, nil
}

// PoolCount returns the number of registered pools.
func (l *Ledger) PoolCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.pools))
}

// GetPool returns a copy of a pool's state.
func (l *Ledger) GetPool(pid uint64) (Pool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pool, err := l.pool(pid)
	if err != nil {
		return Pool{}, err
	}
	out := *pool
	out.AccRewardPerShare = new(big.Int).Set(pool.AccRewardPerShare)
	out.TotalStaked = new(big.Int).Set(pool.TotalStaked)
	out.MinDeposit = new(big.Int).Set(pool.MinDeposit)
	return out, nil
}

// GetUserStake returns a copy of a user's position in a pool.
func (l *Ledger) GetUserStake(pid uint64, user common.Address) (UserStake, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.pool(pid); err != nil {
		return UserStake{}, err
	}
	stake, ok := l.users[pid][user]
	if !ok {
		return *newUserStake(), nil
	}
	out := UserStake{
		Amount:       new(big.Int).Set(stake.Amount),
		RewardDebt:   new(big.Int).Set(stake.RewardDebt),
		UnpaidReward: new(big.Int).Set(stake.UnpaidReward),
		Queue:        make([]WithdrawalRequest, len(stake.Queue)),
	}
	for i, req := range stake.Queue {
		out.Queue[i] = WithdrawalRequest{
			Amount:     new(big.Int).Set(req.Amount),
			UnlockTick: req.UnlockTick,
		}
	}
	return out, nil
}

// Clock returns the highest tick any operation has carried.
func (l *Ledger) Clock() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clock
}

// TotalWeight returns the sum of all pool weights.
func (l *Ledger) TotalWeight() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalWeight
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}
