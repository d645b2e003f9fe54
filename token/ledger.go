package token

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Ledger is an in-memory fungible token ledger. It backs local and test
// deployments of the governance engine; production deployments plug their
// own ledger in behind core.TokenLedger.
type Ledger struct {
	self     common.Address
	balances map[common.Address]*big.Int
	mutex    sync.RWMutex
}

// NewLedger creates an empty ledger. Transfer debits the self account.
func NewLedger(self common.Address) *Ledger {
	return &Ledger{
		self:     self,
		balances: make(map[common.Address]*big.Int),
	}
}

// SetBalance overwrites the balance of an address. Raising a balance is
// how new supply enters this ledger.
func (l *Ledger) SetBalance(addr common.Address, amount *big.Int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.balances[addr] = new(big.Int).Set(amount)
}

func (l *Ledger) BalanceOf(addr common.Address) (*big.Int, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if balance, exists := l.balances[addr]; exists {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (l *Ledger) Transfer(to common.Address, amount *big.Int) error {
	return l.TransferFrom(l.self, to, amount)
}

func (l *Ledger) TransferFrom(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.New("negative amount")
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	fromBalance, exists := l.balances[from]
	if !exists {
		fromBalance = big.NewInt(0)
	}
	if fromBalance.Cmp(amount) < 0 {
		return errors.Errorf("insufficient balance: %s holds %s, needs %s", from, fromBalance, amount)
	}

	toBalance, exists := l.balances[to]
	if !exists {
		toBalance = big.NewInt(0)
	}

	l.balances[from] = new(big.Int).Sub(fromBalance, amount)
	l.balances[to] = new(big.Int).Add(toBalance, amount)
	return nil
}

// TotalSupply sums every balance, so it always reflects the live supply.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	total := big.NewInt(0)
	for _, balance := range l.balances {
		total = new(big.Int).Add(total, balance)
	}
	return total, nil
}
