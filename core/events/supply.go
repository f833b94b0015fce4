package events

import (
	"strings"

	"github.com/holiman/uint256"

	"stakeledger/core/types"
	"stakeledger/crypto"
)

const (
	// TypeTokenSupply is emitted whenever the token supply changes.
	TypeTokenSupply = "bank.supply"

	// SupplyReasonMint identifies mint driven supply increases.
	SupplyReasonMint = "mint"
)

// TokenSupply captures a supply delta.
type TokenSupply struct {
	Recipient crypto.Address
	Total     *uint256.Int
	Delta     *uint256.Int
	Reason    string
}

func (TokenSupply) EventType() string { return TypeTokenSupply }

// Event renders the structured supply change event for downstream consumers.
func (e TokenSupply) Event() *types.Event {
	attrs := map[string]string{
		"total": formatAmount(e.Total),
	}
	if e.Delta != nil {
		attrs["delta"] = e.Delta.Dec()
	}
	if !e.Recipient.IsZero() {
		attrs["recipient"] = e.Recipient.String()
	}
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeTokenSupply, Attributes: attrs}
}
