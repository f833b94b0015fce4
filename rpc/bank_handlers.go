package rpc

import (
	"net/http"

	"stakeledger/native/staking"
)

func (s *Server) handleBankBalanceOf(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	var params AddressParams
	if failure := decodeParams(req, &params); failure != nil {
		return nil, failure
	}
	addr, failure := parseAddress("address", params.Address)
	if failure != nil {
		return nil, failure
	}
	balance, err := s.node.BankBalanceOf(r.Context(), addr)
	if err != nil {
		return nil, s.mapError(err)
	}
	return BalanceResult{Address: addr.String(), Balance: balance.Dec()}, nil
}

// handleBankMint is registered only when the faucet is enabled.
func (s *Server) handleBankMint(r *http.Request, req *RPCRequest) (interface{}, *methodError) {
	if _, failure := s.requireCaller(r); failure != nil {
		return nil, failure
	}
	var params MintParams
	if failure := decodeParams(req, &params); failure != nil {
		return nil, failure
	}
	to, failure := parseAddress("to", params.To)
	if failure != nil {
		return nil, failure
	}
	amount, failure := s.parseAmount("amount", params.Amount, staking.ErrNegativeAmount)
	if failure != nil {
		return nil, failure
	}
	if err := s.node.BankMint(r.Context(), to, amount); err != nil {
		return nil, s.mapError(err)
	}
	balance, err := s.node.BankBalanceOf(r.Context(), to)
	if err != nil {
		return nil, s.mapError(err)
	}
	return BalanceResult{Address: to.String(), Balance: balance.Dec()}, nil
}
