package staking

import (
	"fmt"
	"strings"
)

// Accounting selects how stake() books accepted principal.
type Accounting string

const (
	// AccountingCapacity clamps to the remaining capacity, credits once and
	// keeps staked_total equal to the ledger sum.
	AccountingCapacity Accounting = "capacity"
	// AccountingLiteral reproduces the deployed contract: the clamp compares
	// against staking_total - amount, the cap itself grows by the credited
	// amount and the ledger is credited twice.
	AccountingLiteral Accounting = "literal"
)

// EarlyReward selects how a negative elapsed time on the early path is handled.
type EarlyReward string

const (
	// EarlyRewardStrict fails with InvalidState when the withdrawal happens
	// before staking_ends, mirroring unsigned underflow.
	EarlyRewardStrict EarlyReward = "strict"
	// EarlyRewardSaturate clamps the elapsed time to zero so the staker gets
	// principal back without reward.
	EarlyRewardSaturate EarlyReward = "saturate"
)

// Policy groups the accounting choices an operator makes at deployment.
type Policy struct {
	Accounting Accounting
	// CollectStake pulls the requested amount from the staker into the
	// vault before any refund is paid.
	CollectStake bool
	EarlyReward  EarlyReward
	// EnforceWindows rejects stakes outside [staking_starts, staking_ends)
	// and withdrawals before withdraw_starts with BadTiming.
	EnforceWindows bool
}

// DefaultPolicy returns the corrected accounting.
func DefaultPolicy() Policy {
	return Policy{
		Accounting:   AccountingCapacity,
		CollectStake: true,
		EarlyReward:  EarlyRewardStrict,
	}
}

// LiteralPolicy returns the accounting of the deployed contract.
func LiteralPolicy() Policy {
	return Policy{
		Accounting:  AccountingLiteral,
		EarlyReward: EarlyRewardStrict,
	}
}

// Validate rejects unknown modes.
func (p Policy) Validate() error {
	if _, err := ParseAccounting(string(p.Accounting)); err != nil {
		return err
	}
	if _, err := ParseEarlyReward(string(p.EarlyReward)); err != nil {
		return err
	}
	return nil
}

// ParseAccounting normalises an accounting mode name.
func ParseAccounting(s string) (Accounting, error) {
	switch Accounting(strings.ToLower(strings.TrimSpace(s))) {
	case AccountingCapacity:
		return AccountingCapacity, nil
	case AccountingLiteral:
		return AccountingLiteral, nil
	default:
		return "", fmt.Errorf("staking: unknown accounting mode %q", s)
	}
}

// ParseEarlyReward normalises an early reward mode name.
func ParseEarlyReward(s string) (EarlyReward, error) {
	switch EarlyReward(strings.ToLower(strings.TrimSpace(s))) {
	case EarlyRewardStrict:
		return EarlyRewardStrict, nil
	case EarlyRewardSaturate:
		return EarlyRewardSaturate, nil
	default:
		return "", fmt.Errorf("staking: unknown early reward mode %q", s)
	}
}
