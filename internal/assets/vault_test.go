package assets

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	tok   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	nft   = common.HexToAddress("0x000000000000000000000000000000000000d00d")
	alice = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob   = common.HexToAddress("0x000000000000000000000000000000000000b0b0")
)

func TestTransfer(t *testing.T) {
	v := NewVault()
	v.Mint(tok, alice, big.NewInt(100))

	require.NoError(t, v.Transfer(tok, alice, bob, big.NewInt(40)))
	require.Equal(t, "60", v.BalanceOf(tok, alice).String())
	require.Equal(t, "40", v.BalanceOf(tok, bob).String())

	err := v.Transfer(tok, alice, bob, big.NewInt(61))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, "60", v.BalanceOf(tok, alice).String())

	// zero-amount transfers are a no-op
	require.NoError(t, v.Transfer(tok, bob, alice, big.NewInt(0)))
}

func TestNativeAndTokenBalancesAreSeparate(t *testing.T) {
	v := NewVault()
	v.Mint(Native, alice, big.NewInt(5))
	v.Mint(tok, alice, big.NewInt(7))

	require.Equal(t, "5", v.BalanceOf(Native, alice).String())
	require.Equal(t, "7", v.BalanceOf(tok, alice).String())
}

func TestNFTOwnershipAndApproval(t *testing.T) {
	v := NewVault()
	id := big.NewInt(1)

	_, err := v.OwnerOf(nft, id)
	require.ErrorIs(t, err, ErrUnknownAsset)

	v.MintNFT(nft, id, alice)
	holder, err := v.OwnerOf(nft, id)
	require.NoError(t, err)
	require.Equal(t, alice, holder)

	// the owner is implicitly approved
	ok, err := v.IsApproved(nft, id, alice)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = v.IsApproved(nft, id, bob)
	require.NoError(t, err)
	require.False(t, ok)

	err = v.TransferNFT(nft, id, bob, alice)
	require.ErrorIs(t, err, ErrNotOwner)

	v.Approve(nft, id, bob)
	ok, err = v.IsApproved(nft, id, bob)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, v.TransferNFT(nft, id, alice, bob))
	holder, err = v.OwnerOf(nft, id)
	require.NoError(t, err)
	require.Equal(t, bob, holder)

	// transfers clear prior approvals
	ok, err = v.IsApproved(nft, id, alice)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExportRestoreRoundTrip(t *testing.T) {
	v := NewVault()
	v.Mint(tok, alice, big.NewInt(100))
	v.Mint(Native, bob, big.NewInt(50))
	v.MintNFT(nft, big.NewInt(1), alice)
	v.Approve(nft, big.NewInt(1), bob)

	balances, nfts := v.Export()

	restored := NewVault()
	require.NoError(t, restored.Restore(balances, nfts))

	require.Equal(t, "100", restored.BalanceOf(tok, alice).String())
	require.Equal(t, "50", restored.BalanceOf(Native, bob).String())
	holder, err := restored.OwnerOf(nft, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, alice, holder)
	ok, err := restored.IsApproved(nft, big.NewInt(1), bob)
	require.NoError(t, err)
	require.True(t, ok)

	rb, rn := restored.Export()
	require.Equal(t, balances, rb)
	require.Equal(t, nfts, rn)
}
