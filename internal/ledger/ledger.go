package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"stakeledger/internal/assets"
)

// Config holds the immutable reward schedule of a ledger.
type Config struct {
	// Owner may manage pools and pause switches.
	Owner common.Address
	// Custody is the account holding staked assets and the reward treasury.
	Custody common.Address
	// RewardAsset is the asset rewards are paid in.
	RewardAsset common.Address
	// RatePerTick is the global reward emitted per elapsed tick.
	RatePerTick *big.Int
	// StartTick and EndTick bound the reward emission window.
	StartTick uint64
	EndTick   uint64
}

// Ledger is the staking reward engine. All mutating operations are atomic
// under a single mutex; ticks are supplied by the caller, the engine never
// reads a wall clock.
type Ledger struct {
	mu     sync.Mutex
	cfg    Config
	bank   assets.TokenBank
	logger *zap.Logger

	pools       []*Pool
	users       []map[common.Address]*UserStake
	totalWeight uint64
	clock       uint64

	withdrawPaused bool
	claimPaused    bool
}

func New(cfg Config, bank assets.TokenBank, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RatePerTick == nil {
		cfg.RatePerTick = big.NewInt(0)
	}
	return &Ledger{
		cfg:    cfg,
		bank:   bank,
		logger: logger,
	}
}

// AddPool registers a staking pool. The native pool, if any, must be pool 0;
// every other pool holds a distinct asset.
func (l *Ledger) AddPool(caller, asset common.Address, weight uint64, minDeposit *big.Int, lockTicks uint64, withUpdate bool, tick uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Owner {
		return 0, ErrNotAuthorized
	}
	if weight == 0 {
		return 0, ErrInvalidWeight
	}
	if asset == assets.Native && len(l.pools) != 0 {
		return 0, ErrNativePoolOnly
	}
	for _, p := range l.pools {
		if p.Asset == asset {
			return 0, fmt.Errorf("asset %s: %w", asset.Hex(), ErrDuplicatePool)
		}
	}
	if withUpdate {
		l.massUpdate(tick)
	}

	lastAccrual := tick
	if lastAccrual < l.cfg.StartTick {
		lastAccrual = l.cfg.StartTick
	}
	if minDeposit == nil {
		minDeposit = big.NewInt(0)
	}
	pool := &Pool{
		Asset:             asset,
		Weight:            weight,
		LastAccrualTick:   lastAccrual,
		AccRewardPerShare: big.NewInt(0),
		TotalStaked:       big.NewInt(0),
		MinDeposit:        new(big.Int).Set(minDeposit),
		WithdrawLockTicks: lockTicks,
	}
	l.pools = append(l.pools, pool)
	l.users = append(l.users, make(map[common.Address]*UserStake))
	l.totalWeight += weight
	l.advanceClock(tick)

	pid := uint64(len(l.pools) - 1)
	l.logger.Info("pool added",
		zap.Uint64("pool_id", pid),
		zap.String("asset", asset.Hex()),
		zap.Uint64("weight", weight),
		zap.Uint64("lock_ticks", lockTicks),
	)
	return pid, nil
}

// UpdatePool changes a pool's deposit policy.
func (l *Ledger) UpdatePool(caller common.Address, pid uint64, minDeposit *big.Int, lockTicks uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Owner {
		return ErrNotAuthorized
	}
	pool, err := l.pool(pid)
	if err != nil {
		return err
	}
	if minDeposit == nil {
		minDeposit = big.NewInt(0)
	}
	pool.MinDeposit = new(big.Int).Set(minDeposit)
	pool.WithdrawLockTicks = lockTicks
	return nil
}

// SetPoolWeight adjusts a pool's share of the global reward rate.
func (l *Ledger) SetPoolWeight(caller common.Address, pid uint64, weight uint64, withUpdate bool, tick uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Owner {
		return ErrNotAuthorized
	}
	if weight == 0 {
		return ErrInvalidWeight
	}
	pool, err := l.pool(pid)
	if err != nil {
		return err
	}
	if withUpdate {
		l.massUpdate(tick)
	}
	l.totalWeight = l.totalWeight - pool.Weight + weight
	pool.Weight = weight
	l.advanceClock(tick)
	return nil
}

// MassUpdatePools brings every pool's accumulator current.
func (l *Ledger) MassUpdatePools(tick uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.massUpdate(tick)
	l.advanceClock(tick)
}

// SetWithdrawPaused toggles the withdrawal pause switch.
func (l *Ledger) SetWithdrawPaused(caller common.Address, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.cfg.Owner {
		return ErrNotAuthorized
	}
	l.withdrawPaused = paused
	l.logger.Info("withdraw pause set", zap.Bool("paused", paused))
	return nil
}

// SetClaimPaused toggles the claim pause switch.
func (l *Ledger) SetClaimPaused(caller common.Address, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.cfg.Owner {
		return ErrNotAuthorized
	}
	l.claimPaused = paused
	l.logger.Info("claim pause set", zap.Bool("paused", paused))
	return nil
}

// Deposit stakes an ERC20 amount into a pool.
func (l *Ledger) Deposit(pid uint64, user common.Address, amount *big.Int, tick uint64) error {
	return l.deposit(pid, user, amount, tick, false)
}

// DepositNative stakes native currency into the native pool.
func (l *Ledger) DepositNative(pid uint64, user common.Address, amount *big.Int, tick uint64) error {
	return l.deposit(pid, user, amount, tick, true)
}

func (l *Ledger) deposit(pid uint64, user common.Address, amount *big.Int, tick uint64, native bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pool, err := l.pool(pid)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if pool.IsNative() != native {
		return ErrWrongPaymentAsset
	}
	if amount.Cmp(pool.MinDeposit) < 0 {
		return fmt.Errorf("deposit %s < %s: %w", amount, pool.MinDeposit, ErrBelowMinimumDeposit)
	}

	l.accrue(pool, tick)
	stake := l.userStake(pid, user)
	pending := stake.pending(pool.AccRewardPerShare)

	if err := l.bank.Transfer(pool.Asset, user, l.cfg.Custody, amount); err != nil {
		return fmt.Errorf("pull deposit: %w", err)
	}

	stake.UnpaidReward.Add(stake.UnpaidReward, pending)
	stake.Amount.Add(stake.Amount, amount)
	pool.TotalStaked.Add(pool.TotalStaked, amount)
	stake.syncDebt(pool.AccRewardPerShare)
	l.advanceClock(tick)

	l.logger.Debug("deposit",
		zap.Uint64("pool_id", pid),
		zap.String("user", user.Hex()),
		zap.String("amount", amount.String()),
		zap.Uint64("tick", tick),
	)
	return nil
}

// Unstake moves staked amount into the time-locked withdrawal queue.
func (l *Ledger) Unstake(pid uint64, user common.Address, amount *big.Int, tick uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.withdrawPaused {
		return ErrWithdrawalsPaused
	}
	pool, err := l.pool(pid)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	stake, ok := l.users[pid][user]
	if !ok || stake.Amount.Cmp(amount) < 0 {
		staked := big.NewInt(0)
		if ok {
			staked = stake.Amount
		}
		return fmt.Errorf("unstake %s > staked %s: %w", amount, staked, ErrInsufficientStake)
	}

	l.accrue(pool, tick)
	pending := stake.pending(pool.AccRewardPerShare)
	stake.UnpaidReward.Add(stake.UnpaidReward, pending)
	stake.Amount.Sub(stake.Amount, amount)
	pool.TotalStaked.Sub(pool.TotalStaked, amount)
	stake.syncDebt(pool.AccRewardPerShare)
	stake.Queue = append(stake.Queue, WithdrawalRequest{
		Amount:     new(big.Int).Set(amount),
		UnlockTick: tick + pool.WithdrawLockTicks,
	})
	l.advanceClock(tick)

	l.logger.Debug("unstake",
		zap.Uint64("pool_id", pid),
		zap.String("user", user.Hex()),
		zap.String("amount", amount.String()),
		zap.Uint64("unlock_tick", tick+pool.WithdrawLockTicks),
	)
	return nil
}

// Withdraw releases every queue entry whose unlock tick has passed and pays
// it out. Releasing nothing is a no-op, not an error.
func (l *Ledger) Withdraw(pid uint64, user common.Address, tick uint64) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.withdrawPaused {
		return nil, ErrWithdrawalsPaused
	}
	pool, err := l.pool(pid)
	if err != nil {
		return nil, err
	}
	stake, ok := l.users[pid][user]
	if !ok {
		l.advanceClock(tick)
		return big.NewInt(0), nil
	}

	releasable := big.NewInt(0)
	remaining := stake.Queue[:0:0]
	for _, req := range stake.Queue {
		if req.UnlockTick <= tick {
			releasable.Add(releasable, req.Amount)
		} else {
			remaining = append(remaining, req)
		}
	}
	if releasable.Sign() == 0 {
		l.advanceClock(tick)
		return big.NewInt(0), nil
	}

	if err := l.bank.Transfer(pool.Asset, l.cfg.Custody, user, releasable); err != nil {
		return nil, fmt.Errorf("pay withdrawal: %w", err)
	}
	stake.Queue = remaining
	l.advanceClock(tick)

	l.logger.Debug("withdraw",
		zap.Uint64("pool_id", pid),
		zap.String("user", user.Hex()),
		zap.String("released", releasable.String()),
	)
	return releasable, nil
}

// Claim pays out accrued rewards. Short-pay policy: when the reward treasury
// cannot cover the full obligation the user receives what is available and
// the remainder stays claimable; the call never fails on a shortfall.
func (l *Ledger) Claim(pid uint64, user common.Address, tick uint64) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.claimPaused {
		return nil, ErrClaimPaused
	}
	pool, err := l.pool(pid)
	if err != nil {
		return nil, err
	}
	stake, ok := l.users[pid][user]
	if !ok {
		l.advanceClock(tick)
		return big.NewInt(0), nil
	}

	l.accrue(pool, tick)
	pending := stake.pending(pool.AccRewardPerShare)
	stake.UnpaidReward.Add(stake.UnpaidReward, pending)
	stake.syncDebt(pool.AccRewardPerShare)

	payable := new(big.Int).Set(stake.UnpaidReward)
	treasury := l.bank.BalanceOf(l.cfg.RewardAsset, l.cfg.Custody)
	if treasury.Cmp(payable) < 0 {
		payable.Set(treasury)
	}
	if payable.Sign() > 0 {
		if err := l.bank.Transfer(l.cfg.RewardAsset, l.cfg.Custody, user, payable); err != nil {
			return nil, fmt.Errorf("pay reward: %w", err)
		}
		stake.UnpaidReward.Sub(stake.UnpaidReward, payable)
	}
	l.advanceClock(tick)

	l.logger.Debug("claim",
		zap.Uint64("pool_id", pid),
		zap.String("user", user.Hex()),
		zap.String("paid", payable.String()),
		zap.String("still_owed", stake.UnpaidReward.String()),
	)
	return payable, nil
}

// GetMultiplier returns the reward emitted across a tick range, clamped to
// the emission window.
func (l *Ledger) GetMultiplier(fromTick, toTick uint64) (*big.Int, error) {
	if fromTick > toTick {
		return nil, fmt.Errorf("from %d > to %d: %w", fromTick, toTick, ErrInvalidRange)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	from := clamp(fromTick, l.cfg.StartTick, l.cfg.EndTick)
	to := clamp(toTick, l.cfg.StartTick, l.cfg.EndTick)
	if to <= from {
		return big.NewInt(0), nil
	}
	elapsed := new(big.Int).SetUint64(to - from)
	return elapsed.Mul(elapsed, l.cfg.RatePerTick), nil
}

// accrue lazily brings a pool's accumulator current. Windows with zero stake
// advance the accrual tick without accumulating; that reward is discarded.
func (l *Ledger) accrue(p *Pool, tick uint64) {
	end := tick
	if end > l.cfg.EndTick {
		end = l.cfg.EndTick
	}
	if end <= p.LastAccrualTick {
		return
	}
	if p.TotalStaked.Sign() == 0 || l.totalWeight == 0 {
		p.LastAccrualTick = end
		return
	}

	from := p.LastAccrualTick
	if from < l.cfg.StartTick {
		from = l.cfg.StartTick
	}
	if end > from {
		delta := l.accrualDelta(p, from, end)
		p.AccRewardPerShare.Add(p.AccRewardPerShare, delta)
	}
	p.LastAccrualTick = end
}

// accrualDelta computes the scaled per-share reward for an elapsed range.
func (l *Ledger) accrualDelta(p *Pool, from, to uint64) *big.Int {
	reward := new(big.Int).SetUint64(to - from)
	reward.Mul(reward, l.cfg.RatePerTick)
	reward.Mul(reward, new(big.Int).SetUint64(p.Weight))
	reward.Div(reward, new(big.Int).SetUint64(l.totalWeight))
	reward.Mul(reward, Scale)
	return reward.Div(reward, p.TotalStaked)
}

func (l *Ledger) massUpdate(tick uint64) {
	for _, pool := range l.pools {
		l.accrue(pool, tick)
	}
}

func (l *Ledger) pool(pid uint64) (*Pool, error) {
	if pid >= uint64(len(l.pools)) {
		return nil, fmt.Errorf("pool %d: %w", pid, ErrPoolNotFound)
	}
	return l.pools[pid], nil
}

func (l *Ledger) userStake(pid uint64, user common.Address) *UserStake {
	stake, ok := l.users[pid][user]
	if !ok {
		stake = newUserStake()
		l.users[pid][user] = stake
	}
	return stake
}

func (l *Ledger) advanceClock(tick uint64) {
	if tick > l.clock {
		l.clock = tick
	}
}

func clamp(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
