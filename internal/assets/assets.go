package assets

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Native is the sentinel asset reference for the native currency.
var Native = common.Address{}

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotOwner            = errors.New("not the asset owner")
	ErrUnknownAsset        = errors.New("unknown asset")
)

// TokenBank moves fungible value between accounts. The zero asset address
// denotes the native currency.
type TokenBank interface {
	Transfer(asset, from, to common.Address, amount *big.Int) error
	BalanceOf(asset, who common.Address) *big.Int
}

// NFTRegistry tracks ownership and transfer approval of non-fungible assets.
type NFTRegistry interface {
	OwnerOf(contract common.Address, tokenID *big.Int) (common.Address, error)
	IsApproved(contract common.Address, tokenID *big.Int, operator common.Address) (bool, error)
	TransferNFT(contract common.Address, tokenID *big.Int, from, to common.Address) error
}
