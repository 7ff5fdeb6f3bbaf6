package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stakeledger/internal/model"
)

// Store projects ledger state into Postgres for querying. The op log remains
// the source of truth; rows here are overwritten on every replay.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPools inserts or updates staking pool rows.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolRecord) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO staking_pools (
				pool_id, asset, weight, last_accrual_tick, acc_reward_per_share,
				total_staked, min_deposit, withdraw_lock_ticks, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (pool_id)
			DO UPDATE SET
				asset = EXCLUDED.asset,
				weight = EXCLUDED.weight,
				last_accrual_tick = EXCLUDED.last_accrual_tick,
				acc_reward_per_share = EXCLUDED.acc_reward_per_share,
				total_staked = EXCLUDED.total_staked,
				min_deposit = EXCLUDED.min_deposit,
				withdraw_lock_ticks = EXCLUDED.withdraw_lock_ticks,
				updated_at = now()
		`,
			int64(p.PoolID),
			p.Asset,
			int64(p.Weight),
			int64(p.LastAccrualTick),
			p.AccRewardPerShare,
			p.TotalStaked,
			p.MinDeposit,
			int64(p.WithdrawLockTicks),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertStakes inserts or updates user stake rows. Queued withdrawals are
// stored as aggregates; entry-level detail lives in snapshots.
func (s *Store) UpsertStakes(ctx context.Context, stakes []model.StakeRecord) error {
	if len(stakes) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range stakes {
		batch.Queue(`
			INSERT INTO user_stakes (
				pool_id, user_address, amount, reward_debt, unpaid_reward,
				queued_entries, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (pool_id, user_address)
			DO UPDATE SET
				amount = EXCLUDED.amount,
				reward_debt = EXCLUDED.reward_debt,
				unpaid_reward = EXCLUDED.unpaid_reward,
				queued_entries = EXCLUDED.queued_entries,
				updated_at = now()
		`,
			int64(st.PoolID),
			st.User,
			st.Amount,
			st.RewardDebt,
			st.UnpaidReward,
			len(st.Queue),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range stakes {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertAuctions inserts or updates auction rows.
func (s *Store) UpsertAuctions(ctx context.Context, auctions []model.AuctionRecord) error {
	if len(auctions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range auctions {
		batch.Queue(`
			INSERT INTO auctions (
				auction_id, seller, nft_contract, token_id, payment_asset,
				start_price, start_tick, end_tick, highest_bidder, highest_bid,
				ended, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
			ON CONFLICT (auction_id)
			DO UPDATE SET
				highest_bidder = EXCLUDED.highest_bidder,
				highest_bid = EXCLUDED.highest_bid,
				ended = EXCLUDED.ended,
				updated_at = now()
		`,
			int64(a.ID),
			a.Seller,
			a.NFT,
			a.TokenID,
			a.PaymentAsset,
			a.StartPrice,
			int64(a.StartTick),
			int64(a.EndTick),
			a.HighestBidder,
			a.HighestBid,
			a.Ended,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range auctions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadCursor returns the last applied op sequence for a name.
func (s *Store) LoadCursor(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("cursor name required")
	}
	var seq uint64
	row := s.pool.QueryRow(ctx, `SELECT last_applied_seq FROM ledger_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return seq, true, nil
}

// SaveCursor upserts the last applied op sequence for a name.
func (s *Store) SaveCursor(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("cursor name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_state (name, last_applied_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_applied_seq = EXCLUDED.last_applied_seq, updated_at = now()
	`, name, seq)
	return err
}
