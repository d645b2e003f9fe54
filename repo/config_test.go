package repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	tempDir := t.TempDir()

	r, err := Load(tempDir)
	require.Nil(t, err)

	assert.Equal(t, uint64(5), r.Config.Governance.QuorumPercent)
	assert.Equal(t, uint64(10), r.Config.Governance.DepositAmount)
	assert.Equal(t, 7*24*time.Hour, r.Config.Governance.VotingPeriod)
	assert.Equal(t, 24*time.Hour, r.Config.Governance.TimelockPeriod)
	assert.True(t, Exist(tempDir))
}

func TestLoadRoundTrip(t *testing.T) {
	tempDir := t.TempDir()

	r, err := Load(tempDir)
	require.Nil(t, err)

	r.Config.Governance.QuorumPercent = 30
	r.Config.Governance.DepositAmount = 1000
	r.Config.Token.Balances = map[string]uint64{
		"0x2200000000000000000000000000000000000001": 500,
	}
	require.Nil(t, r.Flush())

	reloaded, err := Load(tempDir)
	require.Nil(t, err)
	assert.Equal(t, uint64(30), reloaded.Config.Governance.QuorumPercent)
	assert.Equal(t, uint64(1000), reloaded.Config.Governance.DepositAmount)
	assert.Equal(t, uint64(500), reloaded.Config.Token.Balances["0x2200000000000000000000000000000000000001"])
}

func TestLoadRejectsInvalidQuorum(t *testing.T) {
	tempDir := t.TempDir()

	r, err := Load(tempDir)
	require.Nil(t, err)

	r.Config.Governance.QuorumPercent = 101
	require.Nil(t, r.Flush())

	_, err = Load(tempDir)
	assert.Error(t, err)
}

func TestMarshalConfig(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())

	raw, err := MarshalConfig(cfg)
	require.Nil(t, err)
	assert.Contains(t, raw, "quorum_percent")
	assert.Contains(t, raw, "timelock_period")
}
