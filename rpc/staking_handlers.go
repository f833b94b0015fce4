package rpc

import (
	"net/http"
	"strings"

	"github.com/holiman/uint256"

	"stakeledger/crypto"
	"stakeledger/eventlog"
	"stakeledger/native/staking"
)

// parseAmount reads a decimal amount. A well-formed value below zero is
// reported as negErr so callers see the same failure the engine would raise;
// "-0" reads as zero.
func (s *Server) parseAmount(field, value string, negErr *staking.Error) (*uint256.Int, *methodError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, invalidParams("%s required", field)
	}
	magnitude, negative := strings.CutPrefix(trimmed, "-")
	amount, err := uint256.FromDecimal(magnitude)
	if err != nil {
		return nil, invalidParams("invalid %s: %v", field, err)
	}
	if negative && !amount.IsZero() {
		return nil, s.mapError(negErr)
	}
	return amount, nil
}

func parseAddress(field, value string) (crypto.Address, *methodError) {
	if strings.TrimSpace(value) == "" {
		return crypto.Address{}, invalidParams("%s required", field)
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return crypto.Address{}, invalidParams("invalid %s: %v", field, err)
	}
	return addr, nil
}

func (s *Server) handleStakingInitialize(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	caller, failure := s.requireCaller(r)
	if failure != nil {
		return nil, failure
	}
	var params InitializeParams
	if failure := decodeParams(req, &params); failure != nil {
		return nil, failure
	}
	total, failure := s.parseAmount("stakingTotal", params.StakingTotal, staking.ErrWrongArguments)
	if failure != nil {
		return nil, failure
	}
	init := staking.InitParams{
		Name:           params.Name,
		AddressLabel:   params.Address,
		StakingStarts:  params.StakingStarts,
		StakingEnds:    params.StakingEnds,
		WithdrawStarts: params.WithdrawStarts,
		WithdrawEnds:   params.WithdrawEnds,
		StakingTotal:   total,
	}
	if err := s.node.StakingInitialize(r.Context(), caller, init); err != nil {
		return nil, s.mapError(err)
	}
	return InitializeResult{Initialized: true, Vault: crypto.ContractPackageFromName(params.Name).String()}, nil
}

func (s *Server) handleStakingStake(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	caller, failure := s.requireCaller(r)
	if failure != nil {
		return nil, failure
	}
	var params AmountParams
	if failure := decodeParams(req, &params); failure != nil {
		return nil, failure
	}
	amount, failure := s.parseAmount("amount", params.Amount, staking.ErrNotRequiredStake)
	if failure != nil {
		return nil, failure
	}
	out, err := s.node.StakingStake(r.Context(), caller, amount)
	if err != nil {
		return nil, s.mapError(err)
	}
	return AmountResult{Amount: out.Dec()}, nil
}

func (s *Server) handleStakingWithdraw(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	caller, failure := s.requireCaller(r)
	if failure != nil {
		return nil, failure
	}
	var params AmountParams
	if failure := decodeParams(req, &params); failure != nil {
		return nil, failure
	}
	amount, failure := s.parseAmount("amount", params.Amount, staking.ErrNegativeAmount)
	if failure != nil {
		return nil, failure
	}
	out, err := s.node.StakingWithdraw(r.Context(), caller, amount)
	if err != nil {
		return nil, s.mapError(err)
	}
	return AmountResult{Amount: out.Dec()}, nil
}

func (s *Server) handleStakingAddReward(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	caller, failure := s.requireCaller(r)
	if failure != nil {
		return nil, failure
	}
	var params AddRewardParams
	if failure := decodeParams(req, &params); failure != nil {
		return nil, failure
	}
	reward, failure := s.parseAmount("reward", params.Reward, staking.ErrNegativeReward)
	if failure != nil {
		return nil, failure
	}
	withdrawable, failure := s.parseAmount("withdrawable", params.Withdrawable, staking.ErrNegativeWithdrawableReward)
	if failure != nil {
		return nil, failure
	}
	out, err := s.node.StakingAddReward(r.Context(), caller, reward, withdrawable)
	if err != nil {
		return nil, s.mapError(err)
	}
	return AmountResult{Amount: out.Dec()}, nil
}

func (s *Server) handleStakingGetState(r *http.Request, _ *RPCRequest) (interface{}, *methodError) {
	policy := s.node.Policy()
	ok, err := s.node.StakingInitialized(r.Context())
	if err != nil {
		return nil, s.mapError(err)
	}
	if !ok {
		return stateResultFrom(nil, policy), nil
	}
	snap, err := s.node.StakingSnapshot(r.Context())
	if err != nil {
		return nil, s.mapError(err)
	}
	return stateResultFrom(snap, policy), nil
}

func (s *Server) handleStakingAmountStaked(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	var params AddressParams
	if failure := decodeParams(req, &params); failure != nil {
		return nil, failure
	}
	addr, failure := parseAddress("address", params.Address)
	if failure != nil {
		return nil, failure
	}
	amount, err := s.node.StakingAmountStaked(r.Context(), addr)
	if err != nil {
		return nil, s.mapError(err)
	}
	return AmountResult{Amount: amount.Dec()}, nil
}

func (s *Server) handleStakingListStakers(r *http.Request, _ *RPCRequest) (interface{}, *methodError) {
	stakers, err := s.node.StakingStakers(r.Context())
	if err != nil {
		return nil, s.mapError(err)
	}
	out := StakersResult{Stakers: make([]StakerResult, 0, len(stakers))}
	for _, addr := range stakers {
		amount, err := s.node.StakingAmountStaked(r.Context(), addr)
		if err != nil {
			return nil, s.mapError(err)
		}
		out.Stakers = append(out.Stakers, StakerResult{Address: addr.String(), Amount: amount.Dec()})
	}
	return out, nil
}

func (s *Server) handleStakingListEvents(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	if s.archive == nil {
		return nil, newMethodError(http.StatusServiceUnavailable, codeArchiveOff, "event archive disabled", nil)
	}
	var params ListEventsParams
	if len(req.Params) > 0 {
		if failure := decodeParams(req, &params); failure != nil {
			return nil, failure
		}
	}
	records, err := s.archive.List(r.Context(), eventlog.Query{
		Type:   params.Type,
		Staker: params.Staker,
		After:  params.After,
		Limit:  params.Limit,
	})
	if err != nil {
		return nil, s.mapError(err)
	}
	out := EventsResult{Events: make([]EventResult, 0, len(records))}
	for _, rec := range records {
		evt, err := eventResultFrom(rec)
		if err != nil {
			return nil, s.mapError(err)
		}
		out.Events = append(out.Events, evt)
	}
	return out, nil
}
