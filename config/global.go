package config

import (
	"fmt"

	"stakeledger/native/staking"
)

// StakingPolicy resolves the configured accounting policy. CollectStake
// follows the accounting mode unless set explicitly.
func (c *Config) StakingPolicy() (staking.Policy, error) {
	accounting, err := staking.ParseAccounting(c.Staking.Accounting)
	if err != nil {
		return staking.Policy{}, fmt.Errorf("invalid staking.Accounting: %w", err)
	}
	policy := staking.DefaultPolicy()
	if accounting == staking.AccountingLiteral {
		policy = staking.LiteralPolicy()
	}
	early, err := staking.ParseEarlyReward(c.Staking.EarlyReward)
	if err != nil {
		return staking.Policy{}, fmt.Errorf("invalid staking.EarlyReward: %w", err)
	}
	policy.EarlyReward = early
	policy.EnforceWindows = c.Staking.EnforceWindows
	if c.Staking.CollectStake != nil {
		policy.CollectStake = *c.Staking.CollectStake
	}
	return policy, nil
}

// PausedModules lists the modules configured to start paused.
func (c *Config) PausedModules() []string {
	var out []string
	if c.Pauses.Staking {
		out = append(out, staking.ModuleName)
	}
	return out
}
