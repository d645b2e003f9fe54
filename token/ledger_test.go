package token

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	self  = common.HexToAddress("0x0000000000000000000000000000000000001002")
	alice = common.HexToAddress("0xaa00000000000000000000000000000000000001")
	bob   = common.HexToAddress("0xaa00000000000000000000000000000000000002")
)

func TestLedgerBalances(t *testing.T) {
	l := NewLedger(self)

	balance, err := l.BalanceOf(alice)
	require.Nil(t, err)
	assert.Equal(t, int64(0), balance.Int64())

	l.SetBalance(alice, big.NewInt(100))
	balance, err = l.BalanceOf(alice)
	require.Nil(t, err)
	assert.Equal(t, int64(100), balance.Int64())

	// returned balances are copies
	balance.SetInt64(7)
	balance, err = l.BalanceOf(alice)
	require.Nil(t, err)
	assert.Equal(t, int64(100), balance.Int64())
}

func TestLedgerTransferFrom(t *testing.T) {
	l := NewLedger(self)
	l.SetBalance(alice, big.NewInt(100))

	require.Nil(t, l.TransferFrom(alice, bob, big.NewInt(40)))

	aliceBal, _ := l.BalanceOf(alice)
	bobBal, _ := l.BalanceOf(bob)
	assert.Equal(t, int64(60), aliceBal.Int64())
	assert.Equal(t, int64(40), bobBal.Int64())

	err := l.TransferFrom(alice, bob, big.NewInt(61))
	assert.Error(t, err)

	err = l.TransferFrom(alice, bob, big.NewInt(-1))
	assert.Error(t, err)
}

func TestLedgerTransferDebitsSelf(t *testing.T) {
	l := NewLedger(self)
	l.SetBalance(self, big.NewInt(10))

	require.Nil(t, l.Transfer(alice, big.NewInt(10)))

	selfBal, _ := l.BalanceOf(self)
	aliceBal, _ := l.BalanceOf(alice)
	assert.Equal(t, int64(0), selfBal.Int64())
	assert.Equal(t, int64(10), aliceBal.Int64())
}

func TestLedgerTotalSupply(t *testing.T) {
	l := NewLedger(self)
	l.SetBalance(alice, big.NewInt(100))
	l.SetBalance(bob, big.NewInt(23))

	supply, err := l.TotalSupply()
	require.Nil(t, err)
	assert.Equal(t, int64(123), supply.Int64())

	// transfers move balances around without changing the supply
	require.Nil(t, l.TransferFrom(alice, bob, big.NewInt(50)))
	supply, err = l.TotalSupply()
	require.Nil(t, err)
	assert.Equal(t, int64(123), supply.Int64())
}
