package rpc

import (
	"encoding/json"

	"stakeledger/core/types"
	"stakeledger/eventlog"
	"stakeledger/native/staking"
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id,omitempty"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// StakingErrorData is attached to errors raised by the staking engine.
type StakingErrorData struct {
	Code uint16 `json:"code"`
	Kind string `json:"kind"`
}

// InitializeParams mirrors the initialize arguments. Amounts are decimal
// strings.
type InitializeParams struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	StakingStarts  uint64 `json:"stakingStarts"`
	StakingEnds    uint64 `json:"stakingEnds"`
	WithdrawStarts uint64 `json:"withdrawStarts"`
	WithdrawEnds   uint64 `json:"withdrawEnds"`
	StakingTotal   string `json:"stakingTotal"`
}

type AmountParams struct {
	Amount string `json:"amount"`
}

type AddRewardParams struct {
	Reward       string `json:"reward"`
	Withdrawable string `json:"withdrawable"`
}

type AddressParams struct {
	Address string `json:"address"`
}

type MintParams struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type ListEventsParams struct {
	Type   string `json:"type,omitempty"`
	Staker string `json:"staker,omitempty"`
	After  uint64 `json:"after,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type AmountResult struct {
	Amount string `json:"amount"`
}

type InitializeResult struct {
	Initialized bool   `json:"initialized"`
	Vault       string `json:"vault"`
}

type BalanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type StakerResult struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type StakersResult struct {
	Stakers []StakerResult `json:"stakers"`
}

// StateResult reports every parameter and counter.
type StateResult struct {
	Initialized         bool   `json:"initialized"`
	Name                string `json:"name,omitempty"`
	AddressLabel        string `json:"address,omitempty"`
	Owner               string `json:"owner,omitempty"`
	Vault               string `json:"vault,omitempty"`
	StakingStarts       uint64 `json:"stakingStarts"`
	StakingEnds         uint64 `json:"stakingEnds"`
	WithdrawStarts      uint64 `json:"withdrawStarts"`
	WithdrawEnds        uint64 `json:"withdrawEnds"`
	InitialStakingTotal string `json:"initialStakingTotal,omitempty"`
	StakingTotal        string `json:"stakingTotal,omitempty"`
	StakedTotal         string `json:"stakedTotal,omitempty"`
	StakedBalance       string `json:"stakedBalance,omitempty"`
	RewardBalance       string `json:"rewardBalance,omitempty"`
	TotalReward         string `json:"totalReward,omitempty"`
	EarlyWithdrawReward string `json:"earlyWithdrawReward,omitempty"`
	Stakers             int    `json:"stakers"`
	InitializedAt       uint64 `json:"initializedAt,omitempty"`
	Accounting          string `json:"accounting"`
	EarlyReward         string `json:"earlyReward"`
	EnforceWindows      bool   `json:"enforceWindows"`
	CollectStake        bool   `json:"collectStake"`
}

func stateResultFrom(snap *staking.Snapshot, policy staking.Policy) StateResult {
	out := StateResult{
		Accounting:     string(policy.Accounting),
		EarlyReward:    string(policy.EarlyReward),
		EnforceWindows: policy.EnforceWindows,
		CollectStake:   policy.CollectStake,
	}
	if snap == nil {
		return out
	}
	out.Initialized = true
	out.Name = snap.Name
	out.AddressLabel = snap.AddressLabel
	out.Owner = snap.Owner.String()
	out.Vault = snap.Vault.String()
	out.StakingStarts = snap.StakingStarts
	out.StakingEnds = snap.StakingEnds
	out.WithdrawStarts = snap.WithdrawStarts
	out.WithdrawEnds = snap.WithdrawEnds
	out.InitialStakingTotal = snap.InitialStakingTotal.Dec()
	out.StakingTotal = snap.StakingTotal.Dec()
	out.StakedTotal = snap.StakedTotal.Dec()
	out.StakedBalance = snap.StakedBalance.Dec()
	out.RewardBalance = snap.RewardBalance.Dec()
	out.TotalReward = snap.TotalReward.Dec()
	out.EarlyWithdrawReward = snap.EarlyWithdrawReward.Dec()
	out.Stakers = snap.Stakers
	out.InitializedAt = snap.InitializedAt
	return out
}

// EventResult is an archived event.
type EventResult struct {
	ID        string       `json:"id"`
	Sequence  uint64       `json:"sequence"`
	Timestamp int64        `json:"timestamp"`
	Event     *types.Event `json:"event"`
}

type EventsResult struct {
	Events []EventResult `json:"events"`
}

func eventResultFrom(rec eventlog.Record) (EventResult, error) {
	evt, err := rec.Event()
	if err != nil {
		return EventResult{}, err
	}
	return EventResult{
		ID:        rec.ID.String(),
		Sequence:  rec.Sequence,
		Timestamp: rec.CreatedAt.Unix(),
		Event:     evt,
	}, nil
}
