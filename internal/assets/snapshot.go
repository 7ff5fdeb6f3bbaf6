package assets

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/internal/model"
)

// Export captures all balances and NFT ownership rows, sorted for stable
// output. Zero balances are skipped.
func (v *Vault) Export() ([]model.BalanceRecord, []model.NFTRecord) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var balances []model.BalanceRecord
	for asset, accounts := range v.balances {
		for account, amount := range accounts {
			if amount.Sign() == 0 {
				continue
			}
			balances = append(balances, model.BalanceRecord{
				Asset:   asset.Hex(),
				Account: account.Hex(),
				Amount:  amount.String(),
			})
		}
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Asset != balances[j].Asset {
			return balances[i].Asset < balances[j].Asset
		}
		return balances[i].Account < balances[j].Account
	})

	var nfts []model.NFTRecord
	for key, owner := range v.owners {
		record := model.NFTRecord{
			Contract: key.contract.Hex(),
			TokenID:  key.tokenID,
			Owner:    owner.Hex(),
		}
		for operator, ok := range v.operators[key] {
			if ok {
				record.Operators = append(record.Operators, operator.Hex())
			}
		}
		sort.Strings(record.Operators)
		nfts = append(nfts, record)
	}
	sort.Slice(nfts, func(i, j int) bool {
		if nfts[i].Contract != nfts[j].Contract {
			return nfts[i].Contract < nfts[j].Contract
		}
		return nfts[i].TokenID < nfts[j].TokenID
	})

	return balances, nfts
}

// Restore replaces the vault contents with exported rows.
func (v *Vault) Restore(balances []model.BalanceRecord, nfts []model.NFTRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.balances = make(map[common.Address]map[common.Address]*big.Int)
	v.owners = make(map[nftKey]common.Address)
	v.operators = make(map[nftKey]map[common.Address]bool)

	for _, record := range balances {
		amount, ok := new(big.Int).SetString(record.Amount, 10)
		if !ok || amount.Sign() < 0 {
			return fmt.Errorf("balance %s/%s: invalid amount %s", record.Asset, record.Account, record.Amount)
		}
		v.credit(common.HexToAddress(record.Asset), common.HexToAddress(record.Account), amount)
	}
	for _, record := range nfts {
		key := nftKey{common.HexToAddress(record.Contract), record.TokenID}
		v.owners[key] = common.HexToAddress(record.Owner)
		for _, operator := range record.Operators {
			ops, ok := v.operators[key]
			if !ok {
				ops = make(map[common.Address]bool)
				v.operators[key] = ops
			}
			ops[common.HexToAddress(operator)] = true
		}
	}
	return nil
}
