package core

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axiomesh/governance/token"
)

func TestQuorumThreshold(t *testing.T) {
	ledger := token.NewLedger(treasury)
	ledger.SetBalance(whale, big.NewInt(1000))
	q := NewQuorumEvaluator(ledger)

	threshold, err := q.Threshold(5)
	require.Nil(t, err)
	assert.Equal(t, "50", threshold.String())

	// floor division
	ledger.SetBalance(whale, big.NewInt(999))
	threshold, err = q.Threshold(5)
	require.Nil(t, err)
	assert.Equal(t, "49", threshold.String())

	threshold, err = q.Threshold(0)
	require.Nil(t, err)
	assert.Equal(t, "0", threshold.String())

	threshold, err = q.Threshold(100)
	require.Nil(t, err)
	assert.Equal(t, "999", threshold.String())
}

func TestQuorumDecide(t *testing.T) {
	q := NewQuorumEvaluator(nil)
	threshold := big.NewInt(50)

	t.Run("schedules on quorum and strict majority", func(t *testing.T) {
		d := q.Decide(big.NewInt(60), big.NewInt(30), threshold, 150)
		assert.True(t, d.Scheduled)
		assert.Equal(t, int64(150), d.Eta)
		assert.False(t, d.FailedQuorum)
	})

	t.Run("rejects below quorum", func(t *testing.T) {
		d := q.Decide(big.NewInt(30), big.NewInt(10), threshold, 150)
		assert.False(t, d.Scheduled)
		assert.True(t, d.FailedQuorum)
		assert.Equal(t, "40", d.TotalVotes.String())
		assert.Equal(t, "50", d.Required.String())
	})

	t.Run("exact threshold meets quorum", func(t *testing.T) {
		d := q.Decide(big.NewInt(40), big.NewInt(10), threshold, 150)
		assert.True(t, d.Scheduled)
	})

	t.Run("rejects a tie", func(t *testing.T) {
		d := q.Decide(big.NewInt(25), big.NewInt(25), threshold, 150)
		assert.False(t, d.Scheduled)
		assert.False(t, d.FailedQuorum)
	})

	t.Run("rejects a majority against", func(t *testing.T) {
		d := q.Decide(big.NewInt(20), big.NewInt(40), threshold, 150)
		assert.False(t, d.Scheduled)
		assert.False(t, d.FailedQuorum)
	})
}
