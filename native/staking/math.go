package staking

import "github.com/holiman/uint256"

// literalRemaining reproduces the deployed clamp: the requested amount is
// compared against staking_total - amount rather than the unfilled capacity.
func literalRemaining(amount, stakingTotal, stakedTotal *uint256.Int) (*uint256.Int, error) {
	remaining := cloneAmount(amount)
	headroom, underflow := new(uint256.Int).SubOverflow(stakingTotal, remaining)
	if underflow {
		return nil, errorf(ErrInvalidState, "amount %s exceeds staking_total %s", amount.Dec(), stakingTotal.Dec())
	}
	if remaining.Gt(headroom) {
		remaining = headroom
	}
	if remaining.IsZero() {
		return nil, errorf(ErrNotRequiredStake, "nothing left to stake")
	}
	projected, overflow := new(uint256.Int).AddOverflow(remaining, stakedTotal)
	if overflow {
		return nil, errorf(ErrInvalidState, "staked_total overflow")
	}
	if projected.Gt(stakingTotal) {
		return nil, errorf(ErrNotRequiredStake, "stake of %s would exceed staking_total %s", remaining.Dec(), stakingTotal.Dec())
	}
	return remaining, nil
}

// capacityRemaining clamps the requested amount to the unfilled capacity.
func capacityRemaining(amount, stakingTotal, stakedTotal *uint256.Int) (*uint256.Int, error) {
	capacity := new(uint256.Int)
	if stakingTotal.Gt(stakedTotal) {
		capacity.Sub(stakingTotal, stakedTotal)
	}
	remaining := cloneAmount(amount)
	if remaining.Gt(capacity) {
		remaining = capacity
	}
	if remaining.IsZero() {
		return nil, errorf(ErrNotRequiredStake, "staking capacity exhausted")
	}
	return remaining, nil
}

// earlyReward computes (now - staking_ends) * amount / ((withdraw_ends -
// staking_ends) * staking_total) with integer floor division.
func earlyReward(now, stakingEnds, withdrawEnds uint64, stakingTotal, amount *uint256.Int, mode EarlyReward) (*uint256.Int, error) {
	if withdrawEnds < stakingEnds {
		return nil, errorf(ErrInvalidState, "withdraw_ends %d before staking_ends %d", withdrawEnds, stakingEnds)
	}
	span := uint256.NewInt(withdrawEnds - stakingEnds)
	denom, overflow := new(uint256.Int).MulOverflow(span, stakingTotal)
	if overflow {
		return nil, errorf(ErrInvalidState, "early reward denominator overflow")
	}
	elapsed := new(uint256.Int)
	if now >= stakingEnds {
		elapsed.SetUint64(now - stakingEnds)
	} else if mode != EarlyRewardSaturate {
		return nil, errorf(ErrInvalidState, "elapsed time negative: now %d before staking_ends %d", now, stakingEnds)
	}
	if denom.IsZero() {
		return nil, errorf(ErrInvalidState, "early reward denominator is zero")
	}
	num, overflow := new(uint256.Int).MulOverflow(elapsed, amount)
	if overflow {
		return nil, errorf(ErrInvalidState, "early reward numerator overflow")
	}
	return num.Div(num, denom), nil
}

// afterCloseReward computes reward_balance * amount / staked_balance.
func afterCloseReward(rewardBalance, amount, stakedBalance *uint256.Int) (*uint256.Int, error) {
	if stakedBalance.IsZero() {
		return nil, errorf(ErrInvalidState, "staked_balance is zero")
	}
	num, overflow := new(uint256.Int).MulOverflow(rewardBalance, amount)
	if overflow {
		return nil, errorf(ErrInvalidState, "reward numerator overflow")
	}
	return num.Div(num, stakedBalance), nil
}
