package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenLedger is the fungible voting-token collaborator. The engine never
// owns balances; it only reads them and moves the proposal deposit through
// the treasury.
type TokenLedger interface {
	BalanceOf(addr common.Address) (*big.Int, error)
	Transfer(to common.Address, amount *big.Int) error
	TransferFrom(from, to common.Address, amount *big.Int) error
	TotalSupply() (*big.Int, error)
}

// VotingPowerSource yields the weight an identity contributes to a tally.
//
// The default implementation reads the live token balance, which permits
// same-window balance manipulation (acquire tokens, vote, transfer away).
// Deployments that want snapshot semantics plug in their own source.
type VotingPowerSource interface {
	PowerOf(addr common.Address) (*big.Int, error)
}

// LiveBalancePower is the default VotingPowerSource: weight equals the
// caller's token balance at the moment of the vote.
type LiveBalancePower struct {
	Ledger TokenLedger
}

var _ VotingPowerSource = (*LiveBalancePower)(nil)

func (l *LiveBalancePower) PowerOf(addr common.Address) (*big.Int, error) {
	return l.Ledger.BalanceOf(addr)
}

// Invoker performs one external (target, payload) call and reports
// success or failure plus return data. The lifecycle engine depends on
// this capability but never implements it.
type Invoker interface {
	Invoke(ctx context.Context, target common.Address, payload []byte) ([]byte, error)
}
