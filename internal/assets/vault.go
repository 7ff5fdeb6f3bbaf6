package assets

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type nftKey struct {
	contract common.Address
	tokenID  string
}

// Vault is a deterministic in-memory token bank and NFT registry. It backs
// replay and tests; balances only change through Mint helpers and transfers.
type Vault struct {
	mu        sync.RWMutex
	balances  map[common.Address]map[common.Address]*big.Int
	owners    map[nftKey]common.Address
	operators map[nftKey]map[common.Address]bool
}

func NewVault() *Vault {
	return &Vault{
		balances:  make(map[common.Address]map[common.Address]*big.Int),
		owners:    make(map[nftKey]common.Address),
		operators: make(map[nftKey]map[common.Address]bool),
	}
}

// Mint credits amount of asset to an account. Asset Native mints native
// currency.
func (v *Vault) Mint(asset, to common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.credit(asset, to, amount)
}

func (v *Vault) Transfer(asset, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("transfer amount invalid")
	}
	if amount.Sign() == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	balance := v.balanceLocked(asset, from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("transfer %s from %s: %w", amount, from.Hex(), ErrInsufficientBalance)
	}
	balance.Sub(balance, amount)
	v.credit(asset, to, amount)
	return nil
}

func (v *Vault) BalanceOf(asset, who common.Address) *big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return new(big.Int).Set(v.balanceLocked(asset, who))
}

func (v *Vault) balanceLocked(asset, who common.Address) *big.Int {
	accounts, ok := v.balances[asset]
	if !ok {
		accounts = make(map[common.Address]*big.Int)
		v.balances[asset] = accounts
	}
	balance, ok := accounts[who]
	if !ok {
		balance = big.NewInt(0)
		accounts[who] = balance
	}
	return balance
}

func (v *Vault) credit(asset, to common.Address, amount *big.Int) {
	balance := v.balanceLocked(asset, to)
	balance.Add(balance, amount)
}

// MintNFT registers a token under an owner.
func (v *Vault) MintNFT(contract common.Address, tokenID *big.Int, owner common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.owners[nftKey{contract, tokenID.String()}] = owner
}

// Approve grants an operator transfer rights over one token.
func (v *Vault) Approve(contract common.Address, tokenID *big.Int, operator common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := nftKey{contract, tokenID.String()}
	ops, ok := v.operators[key]
	if !ok {
		ops = make(map[common.Address]bool)
		v.operators[key] = ops
	}
	ops[operator] = true
}

func (v *Vault) OwnerOf(contract common.Address, tokenID *big.Int) (common.Address, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	owner, ok := v.owners[nftKey{contract, tokenID.String()}]
	if !ok {
		return common.Address{}, fmt.Errorf("token %s/%s: %w", contract.Hex(), tokenID, ErrUnknownAsset)
	}
	return owner, nil
}

func (v *Vault) IsApproved(contract common.Address, tokenID *big.Int, operator common.Address) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	key := nftKey{contract, tokenID.String()}
	if _, ok := v.owners[key]; !ok {
		return false, fmt.Errorf("token %s/%s: %w", contract.Hex(), tokenID, ErrUnknownAsset)
	}
	if owner := v.owners[key]; owner == operator {
		return true, nil
	}
	return v.operators[key][operator], nil
}

func (v *Vault) TransferNFT(contract common.Address, tokenID *big.Int, from, to common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := nftKey{contract, tokenID.String()}
	owner, ok := v.owners[key]
	if !ok {
		return fmt.Errorf("token %s/%s: %w", contract.Hex(), tokenID, ErrUnknownAsset)
	}
	if owner != from {
		return fmt.Errorf("token %s/%s held by %s: %w", contract.Hex(), tokenID, owner.Hex(), ErrNotOwner)
	}
	v.owners[key] = to
	delete(v.operators, key)
	return nil
}
