package core

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/axiom-kit/storage/leveldb"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := leveldb.New(t.TempDir())
	require.Nil(t, err)
	return NewStore(db)
}

func TestStoreNextID(t *testing.T) {
	store := newTestStore(t)

	assert.Equal(t, uint64(1), store.NextID())
	assert.Equal(t, uint64(2), store.NextID())
	assert.Equal(t, uint64(3), store.NextID())
}

func TestStoreProposalRoundTrip(t *testing.T) {
	store := newTestStore(t)

	p := &Proposal{
		ID:           store.NextID(),
		Proposer:     proposer,
		Description:  "round trip",
		Targets:      []common.Address{targetA, targetB},
		Payloads:     [][]byte{{0xde, 0xad}, {0xbe, 0xef}},
		Deposit:      big.NewInt(10),
		VotingEnd:    100,
		VotesFor:     big.NewInt(60),
		VotesAgainst: big.NewInt(30),
	}
	require.Nil(t, store.SaveProposal(p))

	got, err := store.GetProposal(p.ID)
	require.Nil(t, err)
	assert.Equal(t, p, got)

	_, err = store.GetProposal(99)
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestStoreListProposals(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		p := &Proposal{
			ID:           store.NextID(),
			Proposer:     proposer,
			Deposit:      big.NewInt(1),
			VotesFor:     big.NewInt(0),
			VotesAgainst: big.NewInt(0),
		}
		require.Nil(t, store.SaveProposal(p))
	}

	proposals, err := store.ListProposals()
	require.Nil(t, err)
	require.Len(t, proposals, 3)
	for i, p := range proposals {
		assert.Equal(t, uint64(i+1), p.ID)
	}
}

func TestStoreVoteReceipts(t *testing.T) {
	store := newTestStore(t)
	id := store.NextID()

	assert.False(t, store.HasVoted(id, voterX))

	require.Nil(t, store.SaveVote(&VoteRecord{
		ProposalID: id,
		Voter:      voterX,
		Support:    true,
		Weight:     big.NewInt(60),
		VotedAt:    42,
	}))

	assert.True(t, store.HasVoted(id, voterX))
	assert.False(t, store.HasVoted(id, voterY))

	rec, err := store.GetVote(id, voterX)
	require.Nil(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Support)
	assert.Equal(t, "60", rec.Weight.String())

	// receipts are scoped per proposal
	assert.False(t, store.HasVoted(store.NextID(), voterX))
}
