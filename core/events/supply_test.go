package events

import (
	"testing"

	"github.com/holiman/uint256"

	"stakeledger/crypto"
)

func TestTokenSupplyEvent(t *testing.T) {
	evt := TokenSupply{
		Recipient: testStaker(),
		Total:     uint256.NewInt(5000),
		Delta:     uint256.NewInt(250),
		Reason:    SupplyReasonMint,
	}.Event()
	if evt == nil {
		t.Fatalf("expected event")
	}
	if evt.Type != TypeTokenSupply {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["total"] != "5000" || evt.Attributes["delta"] != "250" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
	if evt.Attributes["reason"] != SupplyReasonMint {
		t.Fatalf("unexpected reason: %s", evt.Attributes["reason"])
	}
	if evt.Attributes["recipient"] != testStaker().String() {
		t.Fatalf("unexpected recipient: %s", evt.Attributes["recipient"])
	}
}

func TestTransferEventSpender(t *testing.T) {
	var h [32]byte
	h[0] = 0x99
	vault := crypto.NewContractPackage(h)

	direct := Transfer{From: vault, To: testStaker(), Amount: uint256.NewInt(3)}.Event()
	if _, ok := direct.Attributes["spender"]; ok {
		t.Fatalf("direct transfer should not carry a spender")
	}
	pulled := Transfer{From: testStaker(), To: vault, Spender: vault, Amount: uint256.NewInt(3)}.Event()
	if pulled.Attr("spender") != vault.String() || pulled.Attr("amount") != "3" {
		t.Fatalf("unexpected attrs: %+v", pulled.Attributes)
	}
}
