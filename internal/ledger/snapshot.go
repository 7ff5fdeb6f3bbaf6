package ledger

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/internal/model"
)

// Export captures the full ledger state in persistable form. Stakes are
// ordered by pool then user so exports are byte-stable.
func (l *Ledger) Export() model.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := model.LedgerState{
		Clock:          l.clock,
		WithdrawPaused: l.withdrawPaused,
		ClaimPaused:    l.claimPaused,
		Pools:          make([]model.PoolRecord, 0, len(l.pools)),
	}
	for pid, pool := range l.pools {
		state.Pools = append(state.Pools, model.PoolRecord{
			PoolID:            uint64(pid),
			Asset:             pool.Asset.Hex(),
			Weight:            pool.Weight,
			LastAccrualTick:   pool.LastAccrualTick,
			AccRewardPerShare: pool.AccRewardPerShare.String(),
			TotalStaked:       pool.TotalStaked.String(),
			MinDeposit:        pool.MinDeposit.String(),
			WithdrawLockTicks: pool.WithdrawLockTicks,
		})

		users := make([]common.Address, 0, len(l.users[pid]))
		for user := range l.users[pid] {
			users = append(users, user)
		}
		sort.Slice(users, func(i, j int) bool {
			return users[i].Hex() < users[j].Hex()
		})
		for _, user := range users {
			stake := l.users[pid][user]
			record := model.StakeRecord{
				PoolID:       uint64(pid),
				User:         user.Hex(),
				Amount:       stake.Amount.String(),
				RewardDebt:   stake.RewardDebt.String(),
				UnpaidReward: stake.UnpaidReward.String(),
			}
			for _, req := range stake.Queue {
				record.Queue = append(record.Queue, model.WithdrawalEntry{
					Amount:     req.Amount.String(),
					UnlockTick: req.UnlockTick,
				})
			}
			state.Stakes = append(state.Stakes, record)
		}
	}
	return state
}

// Restore replaces the ledger state with a previously exported one.
func (l *Ledger) Restore(state model.LedgerState) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pools := make([]*Pool, 0, len(state.Pools))
	users := make([]map[common.Address]*UserStake, 0, len(state.Pools))
	var totalWeight uint64
	for i, record := range state.Pools {
		if record.PoolID != uint64(i) {
			return fmt.Errorf("pool record %d out of order (id %d)", i, record.PoolID)
		}
		acc, err := parseAmount(record.AccRewardPerShare)
		if err != nil {
			return fmt.Errorf("pool %d accumulator: %w", i, err)
		}
		total, err := parseAmount(record.TotalStaked)
		if err != nil {
			return fmt.Errorf("pool %d total staked: %w", i, err)
		}
		minDeposit, err := parseAmount(record.MinDeposit)
		if err != nil {
			return fmt.Errorf("pool %d min deposit: %w", i, err)
		}
		pools = append(pools, &Pool{
			Asset:             common.HexToAddress(record.Asset),
			Weight:            record.Weight,
			LastAccrualTick:   record.LastAccrualTick,
			AccRewardPerShare: acc,
			TotalStaked:       total,
			MinDeposit:        minDeposit,
			WithdrawLockTicks: record.WithdrawLockTicks,
		})
		users = append(users, make(map[common.Address]*UserStake))
		totalWeight += record.Weight
	}

	for _, record := range state.Stakes {
		if record.PoolID >= uint64(len(pools)) {
			return fmt.Errorf("stake for unknown pool %d", record.PoolID)
		}
		amount, err := parseAmount(record.Amount)
		if err != nil {
			return fmt.Errorf("stake amount: %w", err)
		}
		debt, err := parseAmount(record.RewardDebt)
		if err != nil {
			return fmt.Errorf("stake reward debt: %w", err)
		}
		unpaid, err := parseAmount(record.UnpaidReward)
		if err != nil {
			return fmt.Errorf("stake unpaid reward: %w", err)
		}
		stake := &UserStake{
			Amount:       amount,
			RewardDebt:   debt,
			UnpaidReward: unpaid,
		}
		for _, entry := range record.Queue {
			queued, err := parseAmount(entry.Amount)
			if err != nil {
				return fmt.Errorf("queued amount: %w", err)
			}
			stake.Queue = append(stake.Queue, WithdrawalRequest{
				Amount:     queued,
				UnlockTick: entry.UnlockTick,
			})
		}
		users[record.PoolID][common.HexToAddress(record.User)] = stake
	}

	l.pools = pools
	l.users = users
	l.totalWeight = totalWeight
	l.clock = state.Clock
	l.withdrawPaused = state.WithdrawPaused
	l.claimPaused = state.ClaimPaused
	return nil
}
