package core

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Params are the process-wide governance parameters. Mutations apply
// immediately but only to future evaluations: votingEnd and eta already
// stamped on proposals stay fixed, while quorum percent and total supply
// are read live at finalize time.
type Params struct {
	QuorumPercent  uint64
	DepositAmount  *big.Int
	VotingPeriod   time.Duration
	TimelockPeriod time.Duration
}

func (p Params) Copy() Params {
	cp := p
	if p.DepositAmount != nil {
		cp.DepositAmount = new(big.Int).Set(p.DepositAmount)
	}
	return cp
}

func (p Params) validate() error {
	if p.QuorumPercent > 100 {
		return errors.Wrapf(ErrInvalidConfig, "quorum percent %d out of range", p.QuorumPercent)
	}
	if p.DepositAmount == nil || p.DepositAmount.Sign() < 0 {
		return errors.Wrap(ErrInvalidConfig, "deposit amount must be non-negative")
	}
	if p.VotingPeriod <= 0 || p.TimelockPeriod < 0 {
		return errors.Wrap(ErrInvalidConfig, "voting and timelock periods must be positive")
	}
	return nil
}

type EngineConfig struct {
	Store    *Store
	Ledger   TokenLedger
	Invoker  Invoker
	Admin    common.Address
	Treasury common.Address
	Params   Params

	// optional
	Power  VotingPowerSource
	Bus    *EventBus
	Logger *logrus.Logger
	Clock  clock.Clock
}

// Engine is the proposal lifecycle state machine: submit, vote, finalize
// (schedule or reject), timelocked batched execution. Every public
// operation is atomic; a failure anywhere unwinds everything the operation
// already did, including token transfers.
type Engine struct {
	store   *Store
	ledger  TokenLedger
	power   VotingPowerSource
	quorum  *QuorumEvaluator
	escrow  *Escrow
	invoker Invoker
	bus     *EventBus
	clock   clock.Clock
	logger  *logrus.Logger
	admin   common.Address
	params  Params

	// one writer at a time; queries hit the store's own lock instead
	lock sync.Mutex
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil || cfg.Ledger == nil || cfg.Invoker == nil {
		return nil, errors.New("store, ledger and invoker are required")
	}
	if err := cfg.Params.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:   cfg.Store,
		ledger:  cfg.Ledger,
		power:   cfg.Power,
		quorum:  NewQuorumEvaluator(cfg.Ledger),
		escrow:  NewEscrow(cfg.Ledger, cfg.Treasury),
		invoker: cfg.Invoker,
		bus:     cfg.Bus,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		admin:   cfg.Admin,
		params:  cfg.Params.Copy(),
	}
	if e.power == nil {
		e.power = &LiveBalancePower{Ledger: cfg.Ledger}
	}
	if e.bus == nil {
		e.bus = NewEventBus(nil)
	}
	if e.clock == nil {
		e.clock = clock.New()
	}
	if e.logger == nil {
		e.logger = logrus.New()
	}
	return e, nil
}

// Bus exposes the event bus for subscribers.
func (e *Engine) Bus() *EventBus {
	return e.bus
}

// SubmitProposal escrows the deposit, allocates the next sequential id and
// stores the new proposal in the Voting state. Returns the new id.
func (e *Engine) SubmitProposal(proposer common.Address, description string, targets []common.Address, payloads [][]byte) (uint64, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if len(targets) != len(payloads) {
		return 0, errors.Wrapf(ErrMismatchedBatch, "%d targets, %d payloads", len(targets), len(payloads))
	}

	deposit := new(big.Int).Set(e.params.DepositAmount)
	if err := e.escrow.Collect(proposer, deposit); err != nil {
		return 0, err
	}

	now := e.clock.Now()
	id := e.store.NextID()
	p := &Proposal{
		ID:           id,
		Proposer:     proposer,
		Description:  description,
		Targets:      targets,
		Payloads:     payloads,
		Deposit:      deposit,
		VotingEnd:    now.Add(e.params.VotingPeriod).Unix(),
		VotesFor:     big.NewInt(0),
		VotesAgainst: big.NewInt(0),
	}

	if err := e.store.SaveProposal(p); err != nil {
		// unwind the escrowed deposit, the submit must have no effect
		if rerr := e.escrow.Refund(proposer, deposit); rerr != nil {
			e.logger.Errorf("failed to unwind deposit for proposal %d: %s", id, rerr)
		}
		return 0, err
	}

	j := &journal{}
	j.emit(EventDepositCollected, DepositMovedData{ID: id, Account: proposer, Amount: deposit})
	j.emit(EventProposalSubmitted, ProposalSubmittedData{
		ID:          id,
		Proposer:    proposer,
		Description: description,
		Deposit:     deposit,
	})
	j.publish(e.bus)

	e.logger.Infof("proposal %d submitted by %s, voting ends at %d", id, proposer, p.VotingEnd)
	return id, nil
}

// CastVote adds the caller's live token balance to the chosen tally and
// records the voter. Votes commute: any serialization order yields the same
// final tally, since each identity contributes at most once.
func (e *Engine) CastVote(voter common.Address, id uint64, support bool) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	p, err := e.store.GetProposal(id)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	if now.Unix() >= p.VotingEnd {
		return errors.Wrapf(ErrStateViolation, "voting closed on proposal %d", id)
	}

	weight, err := e.power.PowerOf(voter)
	if err != nil {
		return errors.Wrapf(err, "failed to read voting power of %s", voter)
	}
	if weight.Sign() <= 0 {
		return errors.Wrapf(ErrNoVotingPower, "%s on proposal %d", voter, id)
	}
	if e.store.HasVoted(id, voter) {
		return errors.Wrapf(ErrDuplicateVote, "%s on proposal %d", voter, id)
	}

	snapshot := p.Copy()
	if support {
		p.VotesFor = new(big.Int).Add(p.VotesFor, weight)
	} else {
		p.VotesAgainst = new(big.Int).Add(p.VotesAgainst, weight)
	}

	if err := e.store.SaveProposal(p); err != nil {
		return err
	}
	if err := e.store.SaveVote(&VoteRecord{
		ProposalID: id,
		Voter:      voter,
		Support:    support,
		Weight:     weight,
		VotedAt:    now.Unix(),
	}); err != nil {
		// the tally and the receipt commit together or not at all
		if rerr := e.store.SaveProposal(snapshot); rerr != nil {
			e.logger.Errorf("failed to unwind tally on proposal %d: %s", id, rerr)
		}
		return err
	}

	e.bus.Publish(EventVoteCast, VoteCastData{ID: id, Voter: voter, Support: support, Weight: weight})
	e.logger.Debugf("vote on proposal %d by %s: support=%t weight=%s", id, voter, support, weight)
	return nil
}

// FinalizeProposal decides a proposal whose voting window has closed:
// quorum plus strict majority schedules execution after the timelock,
// anything else rejects immediately. A proposal is finalized exactly once.
func (e *Engine) FinalizeProposal(id uint64) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	p, err := e.store.GetProposal(id)
	if err != nil {
		return err
	}
	if p.Finalized {
		return errors.Wrapf(ErrStateViolation, "proposal %d already finalized", id)
	}
	if p.Eta > 0 {
		return errors.Wrapf(ErrStateViolation, "proposal %d already scheduled", id)
	}

	now := e.clock.Now()
	if now.Unix() < p.VotingEnd {
		return errors.Wrapf(ErrStateViolation, "voting still open on proposal %d", id)
	}

	threshold, err := e.quorum.Threshold(e.params.QuorumPercent)
	if err != nil {
		return err
	}

	eta := now.Add(e.params.TimelockPeriod).Unix()
	decision := e.quorum.Decide(p.VotesFor, p.VotesAgainst, threshold, eta)

	j := &journal{}
	if decision.Scheduled {
		p.Eta = decision.Eta
		p.Outcome = OutcomePassed
		j.emit(EventExecutionScheduled, ExecutionScheduledData{ID: id, Eta: decision.Eta})
	} else {
		p.Finalized = true
		p.Outcome = OutcomeRejected
		if decision.FailedQuorum {
			p.Outcome = OutcomeFailedQuorum
			j.emit(EventQuorumFailure, QuorumFailureData{
				ID:         id,
				TotalVotes: decision.TotalVotes,
				Required:   decision.Required,
			})
		}
		j.emit(EventProposalFinalized, ProposalFinalizedData{ID: id, Approved: false})
	}

	if err := e.store.SaveProposal(p); err != nil {
		return err
	}
	j.publish(e.bus)

	e.logger.Infof("proposal %d finalized: %s (votes %s, required %s)",
		id, p.Outcome, decision.TotalVotes, decision.Required)
	return nil
}

// ExecuteProposal runs the scheduled batch once the timelock has elapsed.
// Finalized is committed before any external call so a reentrant execute
// observes the proposal as already finalized and is rejected; keep this
// ordering, it is the sole reentrancy defense. Any call failure aborts the
// whole attempt atomically and leaves the proposal scheduled for retry.
func (e *Engine) ExecuteProposal(ctx context.Context, id uint64) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	p, err := e.store.GetProposal(id)
	if err != nil {
		return err
	}
	if p.Finalized {
		return errors.Wrapf(ErrStateViolation, "proposal %d already finalized", id)
	}
	if p.Eta == 0 {
		return errors.Wrapf(ErrStateViolation, "proposal %d not scheduled", id)
	}
	if e.clock.Now().Unix() < p.Eta {
		return errors.Wrapf(ErrStateViolation, "timelock still active on proposal %d until %d", id, p.Eta)
	}

	snapshot := p.Copy()
	p.Finalized = true
	if err := e.store.SaveProposal(p); err != nil {
		return err
	}

	rollback := func() {
		if rerr := e.store.SaveProposal(snapshot); rerr != nil {
			e.logger.Errorf("failed to roll back proposal %d: %s", id, rerr)
		}
	}

	// tallies froze when voting closed, so this re-derivation agrees with
	// the scheduling decision
	j := &journal{}
	if p.VotesFor.Cmp(p.VotesAgainst) <= 0 {
		p.Outcome = OutcomeRejected
		if err := e.store.SaveProposal(p); err != nil {
			rollback()
			return err
		}
		j.emit(EventProposalFinalized, ProposalFinalizedData{ID: id, Approved: false})
		j.publish(e.bus)
		return nil
	}

	for i, target := range p.Targets {
		if _, err := e.invoker.Invoke(ctx, target, p.Payloads[i]); err != nil {
			rollback()
			return errors.Wrapf(ErrExternalInvocation, "proposal %d call %d to %s: %v", id, i, target, err)
		}
	}

	if err := e.escrow.Refund(p.Proposer, p.Deposit); err != nil {
		rollback()
		return err
	}

	j.emit(EventDepositReturned, DepositMovedData{ID: id, Account: p.Proposer, Amount: p.Deposit})
	j.emit(EventProposalFinalized, ProposalFinalizedData{ID: id, Approved: true})
	j.emit(EventProposalExecuted, ProposalExecutedData{ID: id})
	j.publish(e.bus)

	e.logger.Infof("proposal %d executed: %d calls, deposit %s returned to %s",
		id, len(p.Targets), p.Deposit, p.Proposer)
	return nil
}

// GetProposal returns the full stored record.
func (e *Engine) GetProposal(id uint64) (*Proposal, error) {
	return e.store.GetProposal(id)
}

// ListProposals returns every proposal submitted so far, in id order.
func (e *Engine) ListProposals() ([]*Proposal, error) {
	return e.store.ListProposals()
}

// ProposalOutcome reports the finalize decision. It fails while the
// proposal is still undecided.
func (e *Engine) ProposalOutcome(id uint64) (Outcome, error) {
	p, err := e.store.GetProposal(id)
	if err != nil {
		return OutcomeUndecided, err
	}
	if p.Outcome == OutcomeUndecided {
		return OutcomeUndecided, errors.Wrapf(ErrStateViolation, "proposal %d not yet finalized", id)
	}
	return p.Outcome, nil
}

// Params returns a copy of the current governance parameters.
func (e *Engine) Params() Params {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.params.Copy()
}

func (e *Engine) requireAdmin(caller common.Address) error {
	if caller != e.admin {
		return errors.Wrapf(ErrUnauthorized, "%s is not the administrator", caller)
	}
	return nil
}

func (e *Engine) configChanged(param, value string) {
	e.bus.Publish(EventConfigChanged, ConfigChangedData{Param: param, Value: value})
	e.logger.Infof("config changed: %s=%s", param, value)
}

// UpdateQuorum sets the quorum percentage for future finalizations.
func (e *Engine) UpdateQuorum(caller common.Address, percent uint64) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if percent > 100 {
		return errors.Wrapf(ErrInvalidConfig, "quorum percent %d out of range", percent)
	}
	e.params.QuorumPercent = percent
	e.configChanged("quorum_percent", fmt.Sprintf("%d", percent))
	return nil
}

// UpdateDeposit sets the deposit collected from future submissions.
func (e *Engine) UpdateDeposit(caller common.Address, amount *big.Int) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return errors.Wrap(ErrInvalidConfig, "deposit amount must be non-negative")
	}
	e.params.DepositAmount = new(big.Int).Set(amount)
	e.configChanged("deposit_amount", amount.String())
	return nil
}

// UpdateTimelock sets the delay applied to future scheduling decisions;
// already-computed etas are untouched.
func (e *Engine) UpdateTimelock(caller common.Address, d time.Duration) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if d < 0 {
		return errors.Wrap(ErrInvalidConfig, "timelock period must be non-negative")
	}
	e.params.TimelockPeriod = d
	e.configChanged("timelock_period", d.String())
	return nil
}

// UpdateVotingPeriod sets the voting window for future submissions;
// already-computed votingEnd values are untouched.
func (e *Engine) UpdateVotingPeriod(caller common.Address, d time.Duration) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if d <= 0 {
		return errors.Wrap(ErrInvalidConfig, "voting period must be positive")
	}
	e.params.VotingPeriod = d
	e.configChanged("voting_period", d.String())
	return nil
}
