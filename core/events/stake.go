package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"stakeledger/core/types"
	"stakeledger/crypto"
)

const (
	// TypeStakingInitialized is emitted once when the staking parameters are fixed.
	TypeStakingInitialized = "staking.initialized"
	// TypeStake is emitted when principal is accepted. Amount carries the
	// requested amount, not the credited one.
	TypeStake = "staking.stake"
	// TypeWithdraw is emitted when principal is withdrawn. Amount carries the
	// requested principal, not the payout.
	TypeWithdraw = "staking.withdraw"
	// TypeRewardAdded is emitted when the reward pool is funded.
	TypeRewardAdded = "staking.rewardAdded"
)

// StakingInitialized captures the one-time parameter fix.
type StakingInitialized struct {
	Owner        crypto.Address
	Vault        crypto.Address
	Name         string
	StakingEnds  uint64
	WithdrawEnds uint64
	StakingTotal *uint256.Int
}

// EventType satisfies the Event interface.
func (StakingInitialized) EventType() string { return TypeStakingInitialized }

// Event converts the structured payload into a broadcastable event.
func (e StakingInitialized) Event() *types.Event {
	return &types.Event{Type: TypeStakingInitialized, Attributes: map[string]string{
		"owner":        formatAddress(e.Owner),
		"vault":        formatAddress(e.Vault),
		"name":         e.Name,
		"stakingEnds":  strconv.FormatUint(e.StakingEnds, 10),
		"withdrawEnds": strconv.FormatUint(e.WithdrawEnds, 10),
		"stakingTotal": formatAmount(e.StakingTotal),
	}}
}

// Stake captures an accepted stake.
type Stake struct {
	Staker   crypto.Address
	Amount   *uint256.Int
	Credited *uint256.Int
	Refund   *uint256.Int
}

// EventType satisfies the Event interface.
func (Stake) EventType() string { return TypeStake }

// Event converts the structured payload into a broadcastable event.
func (e Stake) Event() *types.Event {
	attrs := map[string]string{
		"staker": formatAddress(e.Staker),
		"amount": formatAmount(e.Amount),
	}
	if e.Credited != nil {
		attrs["credited"] = formatAmount(e.Credited)
	}
	if e.Refund != nil && !e.Refund.IsZero() {
		attrs["refund"] = formatAmount(e.Refund)
	}
	return &types.Event{Type: TypeStake, Attributes: attrs}
}

// Withdraw captures a principal withdrawal and the reward paid with it.
type Withdraw struct {
	Staker crypto.Address
	Amount *uint256.Int
	Reward *uint256.Int
	Payout *uint256.Int
	Early  bool
}

// EventType satisfies the Event interface.
func (Withdraw) EventType() string { return TypeWithdraw }

// Event converts the structured payload into a broadcastable event.
func (e Withdraw) Event() *types.Event {
	return &types.Event{Type: TypeWithdraw, Attributes: map[string]string{
		"staker": formatAddress(e.Staker),
		"amount": formatAmount(e.Amount),
		"reward": formatAmount(e.Reward),
		"payout": formatAmount(e.Payout),
		"early":  strconv.FormatBool(e.Early),
	}}
}

// RewardAdded captures a reward pool funding.
type RewardAdded struct {
	Funder       crypto.Address
	Reward       *uint256.Int
	Withdrawable *uint256.Int
	TotalReward  *uint256.Int
}

// EventType satisfies the Event interface.
func (RewardAdded) EventType() string { return TypeRewardAdded }

// Event converts the structured payload into a broadcastable event.
func (e RewardAdded) Event() *types.Event {
	return &types.Event{Type: TypeRewardAdded, Attributes: map[string]string{
		"funder":       formatAddress(e.Funder),
		"reward":       formatAmount(e.Reward),
		"withdrawable": formatAmount(e.Withdrawable),
		"totalReward":  formatAmount(e.TotalReward),
	}}
}
