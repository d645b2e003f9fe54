package core

import (
	"math/big"

	"github.com/pkg/errors"
)

var oneHundred = big.NewInt(100)

// QuorumEvaluator computes the participation threshold from the live token
// supply and decides pass/fail. The supply is read at evaluation time, not
// snapshotted at submission: minting while a proposal is open can turn an
// already-sufficient vote count insufficient.
type QuorumEvaluator struct {
	ledger TokenLedger
}

func NewQuorumEvaluator(ledger TokenLedger) *QuorumEvaluator {
	return &QuorumEvaluator{ledger: ledger}
}

// Threshold returns floor(totalSupply * quorumPercent / 100).
func (q *QuorumEvaluator) Threshold(quorumPercent uint64) (*big.Int, error) {
	supply, err := q.ledger.TotalSupply()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read total supply")
	}

	threshold := new(big.Int).Mul(supply, new(big.Int).SetUint64(quorumPercent))
	return threshold.Div(threshold, oneHundred), nil
}

// Decision is the single exhaustive finalize result: either the proposal is
// scheduled with an eta, or it is rejected (with quorum failure detail).
type Decision struct {
	Scheduled    bool
	Eta          int64
	FailedQuorum bool

	// observed at decision time, reported on quorum failure
	TotalVotes *big.Int
	Required   *big.Int
}

// Decide applies the quorum and strict-majority rules to a frozen tally.
// A tie is a rejection.
func (q *QuorumEvaluator) Decide(votesFor, votesAgainst, threshold *big.Int, eta int64) Decision {
	total := new(big.Int).Add(votesFor, votesAgainst)

	if total.Cmp(threshold) < 0 {
		return Decision{
			FailedQuorum: true,
			TotalVotes:   total,
			Required:     new(big.Int).Set(threshold),
		}
	}
	if votesFor.Cmp(votesAgainst) <= 0 {
		return Decision{
			TotalVotes: total,
			Required:   new(big.Int).Set(threshold),
		}
	}
	return Decision{
		Scheduled:  true,
		Eta:        eta,
		TotalVotes: total,
		Required:   new(big.Int).Set(threshold),
	}
}
