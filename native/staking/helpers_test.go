package staking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/holiman/uint256"

	"stakeledger/core/events"
	"stakeledger/crypto"
	"stakeledger/storage"
)

type transferCall struct {
	kind   string
	from   crypto.Address
	to     crypto.Address
	amount *uint256.Int
}

// mockGateway keeps balances and allowances in memory and records every call.
type mockGateway struct {
	balances   map[string]*uint256.Int
	allowances map[string]*uint256.Int
	calls      []transferCall
	failWith   error
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		balances:   make(map[string]*uint256.Int),
		allowances: make(map[string]*uint256.Int),
	}
}

func (g *mockGateway) balance(addr crypto.Address) *uint256.Int {
	if v, ok := g.balances[string(addr.Key())]; ok {
		return new(uint256.Int).Set(v)
	}
	return new(uint256.Int)
}

func (g *mockGateway) credit(addr crypto.Address, amount uint64) {
	next := g.balance(addr)
	next.Add(next, uint256.NewInt(amount))
	g.balances[string(addr.Key())] = next
}

func (g *mockGateway) move(from, to crypto.Address, amount *uint256.Int) error {
	src := g.balance(from)
	if src.Lt(amount) {
		return fmt.Errorf("insufficient balance: have %s, need %s", src.Dec(), amount.Dec())
	}
	g.balances[string(from.Key())] = src.Sub(src, amount)
	dst := g.balance(to)
	g.balances[string(to.Key())] = dst.Add(dst, amount)
	return nil
}

func (g *mockGateway) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	g.calls = append(g.calls, transferCall{kind: "transfer", from: from, to: to, amount: new(uint256.Int).Set(amount)})
	if g.failWith != nil {
		return g.failWith
	}
	return g.move(from, to, amount)
}

func (g *mockGateway) Approve(owner, spender crypto.Address, amount *uint256.Int) error {
	g.calls = append(g.calls, transferCall{kind: "approve", from: owner, to: spender, amount: new(uint256.Int).Set(amount)})
	if g.failWith != nil {
		return g.failWith
	}
	g.allowances[string(owner.Key())+string(spender.Key())] = new(uint256.Int).Set(amount)
	return nil
}

func (g *mockGateway) TransferFrom(spender, owner, to crypto.Address, amount *uint256.Int) error {
	g.calls = append(g.calls, transferCall{kind: "transferFrom", from: owner, to: to, amount: new(uint256.Int).Set(amount)})
	if g.failWith != nil {
		return g.failWith
	}
	key := string(owner.Key()) + string(spender.Key())
	allowed, ok := g.allowances[key]
	if !ok || allowed.Lt(amount) {
		return errors.New("allowance exceeded")
	}
	g.allowances[key] = new(uint256.Int).Sub(allowed, amount)
	return g.move(owner, to, amount)
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

type testEnv struct {
	engine  *Engine
	db      *storage.MemDB
	gateway *mockGateway
	emitter *capturingEmitter
	now     uint64
}

func account(b byte) crypto.Address {
	var h [crypto.HashLength]byte
	h[0] = b
	h[crypto.HashLength-1] = b
	return crypto.NewAccount(h)
}

var (
	owner   = account(0x01)
	alice   = account(0x0a)
	bob     = account(0x0b)
	funder  = account(0x0f)
	nobody  crypto.Address
	initArg = InitParams{
		Name:           "pool",
		AddressLabel:   "pool-label",
		StakingStarts:  0,
		StakingEnds:    1_000_000,
		WithdrawStarts: 0,
		WithdrawEnds:   2_000_000,
		StakingTotal:   uint256.NewInt(100_000),
	}
)

func newTestEnv(t *testing.T, policy Policy) *testEnv {
	t.Helper()
	env := &testEnv{
		engine:  NewEngine(policy),
		db:      storage.NewMemDB(),
		gateway: newMockGateway(),
		emitter: &capturingEmitter{},
		now:     10,
	}
	env.engine.SetState(env.db)
	env.engine.SetGateway(env.gateway)
	env.engine.SetEmitter(env.emitter)
	env.engine.SetNowFunc(func() uint64 { return env.now })
	return env
}

func newInitializedEnv(t *testing.T, policy Policy) *testEnv {
	t.Helper()
	env := newTestEnv(t, policy)
	if err := env.engine.Initialize(owner, initArg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	env.gateway.credit(alice, 1_000_000)
	env.gateway.credit(bob, 1_000_000)
	env.gateway.credit(funder, 1_000_000)
	return env
}

func (env *testEnv) vault() crypto.Address {
	return crypto.ContractPackageFromName(initArg.Name)
}

func expectCode(t *testing.T, err error, want *Error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want.Code)
	}
	if !errors.Is(err, want) {
		code, _ := CodeOf(err)
		t.Fatalf("expected %s, got %s (%v)", want.Code, code, err)
	}
}

func mustAmount(t *testing.T, v *uint256.Int, err error) uint64 {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsUint64() {
		t.Fatalf("amount %s does not fit uint64", v.Dec())
	}
	return v.Uint64()
}
