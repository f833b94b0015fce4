package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a minimal JSON-RPC client for the staking node.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient swaps the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.http = hc
	}
	return c
}

// Call invokes method with an optional single parameter object and decodes the
// result into out. Node failures are returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, param, out interface{}) error {
	params := []interface{}{}
	if param != nil {
		params = append(params, param)
	}
	id, err := json.Marshal(uuid.NewString())
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      json.RawMessage(id),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/rpc", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to decode response from node (status %d)", resp.StatusCode)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, out)
}

func (c *Client) Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	var out InitializeResult
	if err := c.Call(ctx, "staking_initialize", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Stake(ctx context.Context, amount string) (string, error) {
	var out AmountResult
	err := c.Call(ctx, "staking_stake", AmountParams{Amount: amount}, &out)
	return out.Amount, err
}

func (c *Client) Withdraw(ctx context.Context, amount string) (string, error) {
	var out AmountResult
	err := c.Call(ctx, "staking_withdraw", AmountParams{Amount: amount}, &out)
	return out.Amount, err
}

func (c *Client) AddReward(ctx context.Context, reward, withdrawable string) (string, error) {
	var out AmountResult
	err := c.Call(ctx, "staking_addReward", AddRewardParams{Reward: reward, Withdrawable: withdrawable}, &out)
	return out.Amount, err
}

func (c *Client) State(ctx context.Context) (*StateResult, error) {
	var out StateResult
	if err := c.Call(ctx, "staking_getState", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AmountStaked(ctx context.Context, addr string) (string, error) {
	var out AmountResult
	err := c.Call(ctx, "staking_amountStaked", AddressParams{Address: addr}, &out)
	return out.Amount, err
}

func (c *Client) Stakers(ctx context.Context) ([]StakerResult, error) {
	var out StakersResult
	if err := c.Call(ctx, "staking_listStakers", nil, &out); err != nil {
		return nil, err
	}
	return out.Stakers, nil
}

func (c *Client) Events(ctx context.Context, q ListEventsParams) ([]EventResult, error) {
	var out EventsResult
	if err := c.Call(ctx, "staking_listEvents", q, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) BalanceOf(ctx context.Context, addr string) (string, error) {
	var out BalanceResult
	err := c.Call(ctx, "bank_balanceOf", AddressParams{Address: addr}, &out)
	return out.Balance, err
}

func (c *Client) Mint(ctx context.Context, to, amount string) (string, error) {
	var out BalanceResult
	err := c.Call(ctx, "bank_mint", MintParams{To: to, Amount: amount}, &out)
	return out.Balance, err
}
