package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Escrow moves the proposal deposit between the proposer and the treasury
// account. The deposit is collected at submission and returned only when an
// execution attempt completes with every batched call succeeding.
type Escrow struct {
	ledger   TokenLedger
	treasury common.Address
}

func NewEscrow(ledger TokenLedger, treasury common.Address) *Escrow {
	return &Escrow{ledger: ledger, treasury: treasury}
}

// Collect pulls the deposit from the proposer into the treasury. A transfer
// failure is a hard abort of the enclosing submit.
func (e *Escrow) Collect(from common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := e.ledger.TransferFrom(from, e.treasury, amount); err != nil {
		return errors.Wrapf(ErrInsufficientFunds, "deposit of %s from %s: %v", amount, from, err)
	}
	return nil
}

// Refund returns a previously collected deposit to the proposer.
func (e *Escrow) Refund(to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := e.ledger.TransferFrom(e.treasury, to, amount); err != nil {
		return errors.Wrapf(err, "refund of %s to %s", amount, to)
	}
	return nil
}
