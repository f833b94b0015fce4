package events

import (
	"github.com/holiman/uint256"

	"stakeledger/core/types"
	"stakeledger/crypto"
)

const (
	// TypeTransfer is emitted for token balance movements.
	TypeTransfer = "bank.transfer"
)

// Transfer records a token movement. Spender is set when the movement was
// pulled through an allowance.
type Transfer struct {
	From    crypto.Address
	To      crypto.Address
	Spender crypto.Address
	Amount  *uint256.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
	if !e.Spender.IsZero() {
		attrs["spender"] = e.Spender.String()
	}
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}
