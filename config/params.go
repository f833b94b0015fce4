package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"stakeledger/native/staking"
)

// InitParamsFile is the YAML form of the initialize arguments.
type InitParamsFile struct {
	Name           string `yaml:"name"`
	Address        string `yaml:"address"`
	StakingStarts  uint64 `yaml:"staking_starts"`
	StakingEnds    uint64 `yaml:"staking_ends"`
	WithdrawStarts uint64 `yaml:"withdraw_starts"`
	WithdrawEnds   uint64 `yaml:"withdraw_ends"`
	// StakingTotal is a decimal string so values above 2^64 survive YAML.
	StakingTotal string `yaml:"staking_total"`
}

// LoadInitParams reads initialize arguments from a YAML file.
func LoadInitParams(path string) (staking.InitParams, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return staking.InitParams{}, err
	}
	return ParseInitParams(raw)
}

// ParseInitParams decodes initialize arguments from YAML bytes.
func ParseInitParams(raw []byte) (staking.InitParams, error) {
	var file InitParamsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return staking.InitParams{}, fmt.Errorf("decode init params: %w", err)
	}
	return file.Params()
}

// Params converts the file form into engine arguments.
func (f InitParamsFile) Params() (staking.InitParams, error) {
	total, err := uint256.FromDecimal(strings.TrimSpace(f.StakingTotal))
	if err != nil {
		return staking.InitParams{}, fmt.Errorf("invalid staking_total %q: %w", f.StakingTotal, err)
	}
	params := staking.InitParams{
		Name:           strings.TrimSpace(f.Name),
		AddressLabel:   strings.TrimSpace(f.Address),
		StakingStarts:  f.StakingStarts,
		StakingEnds:    f.StakingEnds,
		WithdrawStarts: f.WithdrawStarts,
		WithdrawEnds:   f.WithdrawEnds,
		StakingTotal:   total,
	}
	if err := params.Validate(); err != nil {
		return staking.InitParams{}, err
	}
	return params, nil
}
