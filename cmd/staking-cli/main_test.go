package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stakeledger/crypto"
	"stakeledger/rpc"
)

const cliSecret = "0123456789abcdef0123456789abcdef"

func testAddress() crypto.Address {
	var h [crypto.HashLength]byte
	h[0] = 0x0a
	return crypto.NewAccount(h)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(&out)
	err := app.Run(append([]string{"staking-cli"}, args...))
	return out.String(), err
}

type recordedCall struct {
	Method string
	Params []json.RawMessage
	Auth   string
}

// fakeNode answers every call with result and records what it saw.
func fakeNode(t *testing.T, result interface{}) (*httptest.Server, *[]recordedCall) {
	t.Helper()
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req rpc.RPCRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		calls = append(calls, recordedCall{Method: req.Method, Params: req.Params, Auth: r.Header.Get("Authorization")})
		_ = json.NewEncoder(w).Encode(rpc.RPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	t.Setenv(envSecret, cliSecret)
	out, err := runCLI(t, "token", "--subject", testAddress().String(), "--ttl", "5m")
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	auth := rpc.NewAuthenticator(rpc.AuthConfig{HMACSecret: cliSecret, Issuer: "stakeledger"})
	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	caller, err := auth.Caller(req)
	require.NoError(t, err)
	require.True(t, caller.Equal(testAddress()))
}

func TestTokenCommandRejectsBadSubject(t *testing.T) {
	t.Setenv(envSecret, cliSecret)
	_, err := runCLI(t, "token", "--subject", "nope")
	require.Error(t, err)
}

func TestVaultCommand(t *testing.T) {
	out, err := runCLI(t, "vault", "pool")
	require.NoError(t, err)
	require.Equal(t, crypto.ContractPackageFromName("pool").String(), strings.TrimSpace(out))

	_, err = runCLI(t, "vault")
	require.Error(t, err)
}

func TestStakeCommandSendsToken(t *testing.T) {
	srv, calls := fakeNode(t, rpc.AmountResult{Amount: "10"})
	out, err := runCLI(t, "--rpc", srv.URL, "--token", "tkn", "stake", "10")
	require.NoError(t, err)
	require.Equal(t, "10", strings.TrimSpace(out))
	require.Len(t, *calls, 1)
	call := (*calls)[0]
	require.Equal(t, "staking_stake", call.Method)
	require.Equal(t, "Bearer tkn", call.Auth)
	require.JSONEq(t, `{"amount":"10"}`, string(call.Params[0]))
}

func TestInitCommandReadsYAML(t *testing.T) {
	srv, calls := fakeNode(t, rpc.InitializeResult{Initialized: true, Vault: "pkg1"})
	path := filepath.Join(t.TempDir(), "params.yaml")
	yaml := "name: pool\naddress: pool-label\nstaking_starts: 0\nstaking_ends: 1000\nwithdraw_starts: 0\nwithdraw_ends: 2000\nstaking_total: \"100000\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	_, err := runCLI(t, "--rpc", srv.URL, "init", path)
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	var sent rpc.InitializeParams
	require.NoError(t, json.Unmarshal((*calls)[0].Params[0], &sent))
	require.Equal(t, "pool", sent.Name)
	require.Equal(t, "pool-label", sent.Address)
	require.Equal(t, uint64(2000), sent.WithdrawEnds)
	require.Equal(t, "100000", sent.StakingTotal)
}

func TestEventsCommandPassesFilters(t *testing.T) {
	srv, calls := fakeNode(t, rpc.EventsResult{})
	_, err := runCLI(t, "--rpc", srv.URL, "events", "--type", "staking.stake", "--limit", "5")
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"staking.stake","limit":5}`, string((*calls)[0].Params[0]))
}
