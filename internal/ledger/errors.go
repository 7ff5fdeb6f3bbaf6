package ledger

import "errors"

var (
	ErrPoolNotFound        = errors.New("pool not found")
	ErrDuplicatePool       = errors.New("pool already exists for asset")
	ErrNativePoolOnly      = errors.New("only pool 0 may hold the native asset")
	ErrInvalidWeight       = errors.New("pool weight must be at least 1")
	ErrBelowMinimumDeposit = errors.New("amount below pool minimum deposit")
	ErrWrongPaymentAsset   = errors.New("payment asset does not match pool")
	ErrInsufficientStake   = errors.New("insufficient staked amount")
	ErrWithdrawalsPaused   = errors.New("withdrawals are paused")
	ErrClaimPaused         = errors.New("claims are paused")
	ErrInvalidRange        = errors.New("invalid tick range")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNotAuthorized       = errors.New("caller not authorized")
)
