package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stakeledger/core"
	"stakeledger/core/events"
	"stakeledger/crypto"
	"stakeledger/eventlog"
	"stakeledger/native/staking"
	"stakeledger/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func account(b byte) crypto.Address {
	var h [crypto.HashLength]byte
	h[0] = b
	return crypto.NewAccount(h)
}

var (
	owner  = account(0x01)
	alice  = account(0x0a)
	funder = account(0x0f)
)

type testServer struct {
	server  *Server
	http    *httptest.Server
	archive *eventlog.Store
	stream  *events.Broadcaster
	now     atomic.Uint64
}

type serverOption func(*ServerConfig)

func withRateLimit(rps float64, burst int) serverOption {
	return func(cfg *ServerConfig) {
		cfg.RateLimit = RateLimitConfig{RequestsPerSecond: rps, Burst: burst}
	}
}

func withoutFaucet() serverOption {
	return func(cfg *ServerConfig) { cfg.FaucetEnabled = false }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	ts := &testServer{stream: events.NewBroadcaster()}
	ts.now.Store(10)

	db, err := eventlog.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	ts.archive, err = eventlog.NewStore(db, nil)
	require.NoError(t, err)

	node, err := core.NewNode(storage.NewMemDB(), staking.DefaultPolicy(),
		core.WithEmitter(events.Fanout{ts.stream, ts.archive}),
		core.WithNowFunc(func() uint64 { return ts.now.Load() }),
	)
	require.NoError(t, err)

	cfg := ServerConfig{
		Auth:          AuthConfig{HMACSecret: testSecret, Issuer: "stakeledger", MaxTTL: time.Hour},
		FaucetEnabled: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ts.server, err = NewServer(node, ts.archive, ts.stream, cfg, nil)
	require.NoError(t, err)
	ts.http = httptest.NewServer(ts.server.Handler())
	t.Cleanup(ts.http.Close)
	return ts
}

func (ts *testServer) client(t *testing.T, caller crypto.Address) *Client {
	t.Helper()
	if caller.IsZero() {
		return NewClient(ts.http.URL, "")
	}
	token, err := IssueToken(TokenRequest{
		Secret:  testSecret,
		Issuer:  "stakeledger",
		Subject: caller,
		TTL:     10 * time.Minute,
	})
	require.NoError(t, err)
	return NewClient(ts.http.URL, token)
}

var testInit = InitializeParams{
	Name:           "pool",
	Address:        "pool-label",
	StakingStarts:  0,
	StakingEnds:    1_000,
	WithdrawStarts: 0,
	WithdrawEnds:   2_000,
	StakingTotal:   "100000",
}

// bootstrap initializes the pool and funds alice and funder.
func (ts *testServer) bootstrap(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := ts.client(t, owner).Initialize(ctx, testInit)
	require.NoError(t, err)
	faucet := ts.client(t, owner)
	for _, addr := range []crypto.Address{alice, funder} {
		_, err := faucet.Mint(ctx, addr.String(), "1000")
		require.NoError(t, err)
	}
}

func requireStakingKind(t *testing.T, err error, kind staking.Code) *RPCError {
	t.Helper()
	require.Error(t, err)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr), "expected RPC error, got %v", err)
	require.Equal(t, codeStakingError, rpcErr.Code)
	data, ok := rpcErr.Data.(map[string]interface{})
	require.True(t, ok, "unexpected error data %#v", rpcErr.Data)
	require.Equal(t, kind.String(), data["kind"])
	require.EqualValues(t, kind, data["code"])
	return rpcErr
}
