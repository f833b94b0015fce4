package staking

import (
	"github.com/holiman/uint256"

	"stakeledger/crypto"
)

// TransferGateway moves fungible tokens on behalf of the module. Any error
// aborts the enclosing operation.
type TransferGateway interface {
	Transfer(from, to crypto.Address, amount *uint256.Int) error
	Approve(owner, spender crypto.Address, amount *uint256.Int) error
	TransferFrom(spender, owner, to crypto.Address, amount *uint256.Int) error
}
