package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type ProposalStatus uint8

const (
	// Voting means the proposal is inside its voting window, or the window
	// has closed but no finalize decision has been recorded yet.
	Voting ProposalStatus = iota

	// Scheduled means the proposal passed and is waiting out the timelock.
	// The only forward exit is Executed; a failed execution attempt leaves
	// the proposal in Scheduled and execution may be retried.
	Scheduled

	// Rejected is terminal: quorum or majority failed at finalize time.
	Rejected

	// Executed is terminal: every batched call succeeded and the deposit
	// was returned.
	Executed
)

func (s ProposalStatus) String() string {
	switch s {
	case Voting:
		return "voting"
	case Scheduled:
		return "scheduled"
	case Rejected:
		return "rejected"
	case Executed:
		return "executed"
	default:
		return "unknown"
	}
}

// Outcome is the finalize decision recorded on the proposal. It stays
// OutcomeUndecided until FinalizeProposal runs.
type Outcome uint8

const (
	OutcomeUndecided Outcome = iota
	OutcomePassed
	OutcomeRejected
	OutcomeFailedQuorum
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "PASSED"
	case OutcomeRejected:
		return "REJECTED"
	case OutcomeFailedQuorum:
		return "FAILED_QUORUM"
	default:
		return "UNDECIDED"
	}
}

// Proposal is the stored governance record.
//
// Invariants: VotesFor/VotesAgainst only grow and only via CastVote;
// Finalized never reverts to false; Eta is set at most once and only while
// Finalized is false; a proposal with Eta > 0 can never become Rejected.
type Proposal struct {
	ID          uint64           `json:"id"`
	Proposer    common.Address   `json:"proposer"`
	Description string           `json:"description"`
	Targets     []common.Address `json:"targets"`
	Payloads    [][]byte         `json:"payloads"`
	Deposit     *big.Int         `json:"deposit"`

	// VotingEnd and Eta are unix seconds. Eta == 0 means unscheduled.
	VotingEnd int64 `json:"voting_end"`
	Eta       int64 `json:"eta"`

	VotesFor     *big.Int `json:"votes_for"`
	VotesAgainst *big.Int `json:"votes_against"`

	Finalized bool    `json:"finalized"`
	Outcome   Outcome `json:"outcome"`
}

// Status derives the lifecycle state from the stored fields.
func (p *Proposal) Status() ProposalStatus {
	switch {
	case p.Finalized && p.Eta > 0:
		return Executed
	case p.Finalized:
		return Rejected
	case p.Eta > 0:
		return Scheduled
	default:
		return Voting
	}
}

// Copy returns a deep copy so callers can never mutate stored state through
// a returned record.
func (p *Proposal) Copy() *Proposal {
	cp := *p
	cp.Targets = make([]common.Address, len(p.Targets))
	copy(cp.Targets, p.Targets)
	cp.Payloads = make([][]byte, len(p.Payloads))
	for i, payload := range p.Payloads {
		cp.Payloads[i] = make([]byte, len(payload))
		copy(cp.Payloads[i], payload)
	}
	if p.Deposit != nil {
		cp.Deposit = new(big.Int).Set(p.Deposit)
	}
	if p.VotesFor != nil {
		cp.VotesFor = new(big.Int).Set(p.VotesFor)
	}
	if p.VotesAgainst != nil {
		cp.VotesAgainst = new(big.Int).Set(p.VotesAgainst)
	}
	return &cp
}

// VoteRecord is the receipt stored per (proposal, voter).
type VoteRecord struct {
	ProposalID uint64         `json:"proposal_id"`
	Voter      common.Address `json:"voter"`
	Support    bool           `json:"support"`
	Weight     *big.Int       `json:"weight"`
	VotedAt    int64          `json:"voted_at"`
}
