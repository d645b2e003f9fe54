package core

import "errors"

var (
	// ErrUnauthorized indicates the caller is not the configured administrator
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrInsufficientFunds indicates a token transfer could not be covered
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrStateViolation indicates an operation was invoked in the wrong
	// lifecycle state: voting closed, already finalized, not yet scheduled,
	// timelock still active, already scheduled
	ErrStateViolation = errors.New("state violation")

	// ErrDuplicateVote indicates the identity already voted on this proposal
	ErrDuplicateVote = errors.New("already voted on this proposal")

	// ErrNoVotingPower indicates the caller holds no voting power
	ErrNoVotingPower = errors.New("no voting power")

	// ErrMismatchedBatch indicates targets and payloads differ in length
	ErrMismatchedBatch = errors.New("mismatched targets and payloads")

	// ErrExternalInvocation indicates a batched call failed during execution
	ErrExternalInvocation = errors.New("external invocation failed")

	// ErrInvalidConfig indicates an admin update carried an invalid value
	ErrInvalidConfig = errors.New("invalid config value")

	// ErrProposalNotFound indicates the proposal id is unknown
	ErrProposalNotFound = errors.New("proposal not found")
)
