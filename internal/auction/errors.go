package auction

import "errors"

var (
	ErrAuctionNotFound      = errors.New("auction not found")
	ErrInvalidDuration      = errors.New("auction duration out of bounds")
	ErrInvalidPrice         = errors.New("start price must be positive")
	ErrAssetNotApproved     = errors.New("asset transfer not approved")
	ErrBidTooLow            = errors.New("bid too low")
	ErrAuctionEnded         = errors.New("auction has ended")
	ErrAuctionNotYetEndable = errors.New("auction end tick not reached")
	ErrAlreadyEnded         = errors.New("auction already settled")
	ErrWrongPaymentAsset    = errors.New("payment asset does not match auction")
	ErrNotAuthorized        = errors.New("caller not authorized")
	ErrInvalidFeeTiers      = errors.New("fee tiers invalid")
)
