package repo

import (
	"time"
)

type Config struct {
	RepoRoot   string     `mapstructure:"-" toml:"-"`
	Admin      string     `mapstructure:"admin" toml:"admin"`
	Log        Log        `mapstructure:"log" toml:"log"`
	Governance Governance `mapstructure:"governance" toml:"governance"`
	Token      Token      `mapstructure:"token" toml:"token"`
	Ledger     Ledger     `mapstructure:"ledger" toml:"ledger"`
	API        API        `mapstructure:"api" toml:"api"`
}

type Log struct {
	Level        string        `mapstructure:"level" toml:"level"`
	Filename     string        `mapstructure:"filename" toml:"filename"`
	ReportCaller bool          `mapstructure:"report_caller" toml:"report_caller"`
	MaxAge       time.Duration `mapstructure:"max_age" toml:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time" toml:"rotation_time"`
}

type Governance struct {
	// participation required for a binding outcome, percent of live supply
	QuorumPercent uint64 `mapstructure:"quorum_percent" toml:"quorum_percent"`
	// tokens escrowed from the proposer at submission
	DepositAmount uint64 `mapstructure:"deposit_amount" toml:"deposit_amount"`
	// how long a proposal accepts votes
	VotingPeriod time.Duration `mapstructure:"voting_period" toml:"voting_period"`
	// mandatory delay between passing and execution
	TimelockPeriod time.Duration `mapstructure:"timelock_period" toml:"timelock_period"`
}

type Token struct {
	// genesis balances for the built-in ledger, address -> amount
	Balances map[string]uint64 `mapstructure:"balances" toml:"balances"`
}

type Ledger struct {
	// when set, batched proposal calls run against this node; otherwise a
	// mock invoker is used
	DialUrl string `mapstructure:"dial_url" toml:"dial_url"`
}

type API struct {
	Port uint64 `mapstructure:"port" toml:"port"`
}

func DefaultConfig(repoRoot string) *Config {
	return &Config{
		RepoRoot: repoRoot,
		Admin:    "0x1100000000000000000000000000000000000001",
		Log: Log{
			Level:        "info",
			Filename:     "governance.log",
			ReportCaller: false,
			MaxAge:       30 * 24 * time.Hour,
			RotationTime: 24 * time.Hour,
		},
		Governance: Governance{
			QuorumPercent:  5,
			DepositAmount:  10,
			VotingPeriod:   7 * 24 * time.Hour,
			TimelockPeriod: 24 * time.Hour,
		},
		Token: Token{
			Balances: map[string]uint64{},
		},
		Ledger: Ledger{
			DialUrl: "",
		},
		API: API{
			Port: 8881,
		},
	}
}
