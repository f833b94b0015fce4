package staking

import (
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"stakeledger/crypto"
	"stakeledger/storage"
)

// InitParams are the construction arguments supplied by the operator.
type InitParams struct {
	Name           string
	AddressLabel   string
	StakingStarts  uint64
	StakingEnds    uint64
	WithdrawStarts uint64
	WithdrawEnds   uint64
	StakingTotal   *uint256.Int
}

// Validate checks the window ordering and the presence of required fields.
func (p InitParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errorf(ErrWrongArguments, "name must not be empty")
	}
	if p.StakingTotal == nil {
		return errorf(ErrWrongArguments, "staking_total must be provided")
	}
	if p.StakingStarts > p.StakingEnds {
		return errorf(ErrWrongArguments, "staking_starts %d after staking_ends %d", p.StakingStarts, p.StakingEnds)
	}
	if p.StakingEnds > p.WithdrawEnds {
		return errorf(ErrWrongArguments, "staking_ends %d after withdraw_ends %d", p.StakingEnds, p.WithdrawEnds)
	}
	return nil
}

// Params is the persisted parameter record. StakingTotal holds the cap fixed
// at initialisation; the live cap is a pool counter because the literal
// accounting grows it.
type Params struct {
	Name           string
	AddressLabel   string
	StakingStarts  uint64
	StakingEnds    uint64
	WithdrawStarts uint64
	WithdrawEnds   uint64
	StakingTotal   *uint256.Int
	Owner          []byte
	InitializedAt  uint64
}

// OwnerAddress decodes the recorded owner.
func (p *Params) OwnerAddress() (crypto.Address, error) {
	return crypto.AddressFromKey(p.Owner)
}

// Vault returns the module address derived from the deployment name.
func (p *Params) Vault() crypto.Address {
	return crypto.ContractPackageFromName(p.Name)
}

func loadParams(kv storage.Reader) (*Params, bool, error) {
	raw, err := kv.Get(paramsKey())
	if storage.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "read staking params")
	}
	var p Params
	if err := rlp.DecodeBytes(raw, &p); err != nil {
		return nil, false, errors.Wrap(err, "decode staking params")
	}
	if p.StakingTotal == nil {
		p.StakingTotal = new(uint256.Int)
	}
	return &p, true, nil
}

func storeParams(kv storage.Writer, p *Params) error {
	raw, err := rlp.EncodeToBytes(p)
	if err != nil {
		return errors.Wrap(err, "encode staking params")
	}
	return errors.Wrap(kv.Put(paramsKey(), raw), "write staking params")
}
