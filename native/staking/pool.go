package staking

import (
	"github.com/holiman/uint256"

	"stakeledger/storage"
)

// RewardPool exposes the module-wide counters. Unset counters read as zero.
type RewardPool struct {
	kv storage.KV
}

// NewRewardPool binds a counter view to the supplied store.
func NewRewardPool(kv storage.KV) *RewardPool {
	return &RewardPool{kv: kv}
}

func (p *RewardPool) get(name string) (*uint256.Int, error) {
	return readAmount(p.kv, counterKey(name))
}

func (p *RewardPool) set(name string, v *uint256.Int) error {
	return writeAmount(p.kv, counterKey(name), v)
}

// StakingTotal is the live cap.
func (p *RewardPool) StakingTotal() (*uint256.Int, error) { return p.get(counterStakingTotal) }

func (p *RewardPool) SetStakingTotal(v *uint256.Int) error { return p.set(counterStakingTotal, v) }

func (p *RewardPool) StakedTotal() (*uint256.Int, error) { return p.get(counterStakedTotal) }

func (p *RewardPool) SetStakedTotal(v *uint256.Int) error { return p.set(counterStakedTotal, v) }

// StakedBalance is the denominator of the after-close reward share.
func (p *RewardPool) StakedBalance() (*uint256.Int, error) { return p.get(counterStakedBalance) }

func (p *RewardPool) SetStakedBalance(v *uint256.Int) error { return p.set(counterStakedBalance, v) }

func (p *RewardPool) RewardBalance() (*uint256.Int, error) { return p.get(counterRewardBalance) }

func (p *RewardPool) SetRewardBalance(v *uint256.Int) error { return p.set(counterRewardBalance, v) }

func (p *RewardPool) TotalReward() (*uint256.Int, error) { return p.get(counterTotalReward) }

func (p *RewardPool) SetTotalReward(v *uint256.Int) error { return p.set(counterTotalReward, v) }

// EarlyWithdrawReward accumulates the withdrawable share declared on each
// funding. It is recorded but no payout path reads it.
func (p *RewardPool) EarlyWithdrawReward() (*uint256.Int, error) {
	return p.get(counterEarlyWithdrawReward)
}

func (p *RewardPool) SetEarlyWithdrawReward(v *uint256.Int) error {
	return p.set(counterEarlyWithdrawReward, v)
}
