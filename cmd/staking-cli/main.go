package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"stakeledger/cmd/internal/passphrase"
	"stakeledger/config"
	"stakeledger/crypto"
	"stakeledger/rpc"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultTokenTTL = 30 * time.Minute
)

func main() {
	app := newApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "staking-cli"
	app.Usage = "client for the staking ledger node"
	app.Writer = out
	app.Flags = []cli.Flag{rpcURLFlag, tokenFlag, timeoutFlag}
	app.Commands = []cli.Command{
		{
			Name:      "token",
			Usage:     "mint a caller token signed with the node's JWT secret",
			ArgsUsage: " ",
			Flags:     []cli.Flag{subjectFlag, issuerFlag, audienceFlag, ttlFlag},
			Action:    tokenAction,
		},
		{
			Name:      "vault",
			Usage:     "print the vault address derived from a deployment name",
			ArgsUsage: "<name>",
			Action:    vaultAction,
		},
		{
			Name:      "init",
			Usage:     "initialize the pool from a YAML parameter file",
			ArgsUsage: "<params.yaml>",
			Action:    initAction,
		},
		{
			Name:      "stake",
			Usage:     "stake principal",
			ArgsUsage: "<amount>",
			Action:    amountAction((*rpc.Client).Stake),
		},
		{
			Name:      "withdraw",
			Usage:     "withdraw principal plus reward",
			ArgsUsage: "<amount>",
			Action:    amountAction((*rpc.Client).Withdraw),
		},
		{
			Name:      "add-reward",
			Usage:     "fund the reward pool",
			ArgsUsage: "<reward> <withdrawable>",
			Action:    addRewardAction,
		},
		{
			Name:   "state",
			Usage:  "show parameters and counters",
			Action: stateAction,
		},
		{
			Name:      "staked",
			Usage:     "show the amount staked by an address",
			ArgsUsage: "<address>",
			Action:    addressAction((*rpc.Client).AmountStaked),
		},
		{
			Name:   "stakers",
			Usage:  "list stakers and their balances",
			Action: stakersAction,
		},
		{
			Name:   "events",
			Usage:  "list archived events, newest first",
			Flags:  []cli.Flag{typeFlag, stakerFlag, afterFlag, limitFlag},
			Action: eventsAction,
		},
		{
			Name:      "balance",
			Usage:     "show the token balance of an address",
			ArgsUsage: "<address>",
			Action:    addressAction((*rpc.Client).BalanceOf),
		},
		{
			Name:      "mint",
			Usage:     "credit test tokens (faucet-enabled nodes only)",
			ArgsUsage: "<address> <amount>",
			Action:    mintAction,
		},
	}
	return app
}

func newClient(ctx *cli.Context) *rpc.Client {
	return rpc.NewClient(ctx.GlobalString(rpcURLFlag.Name), ctx.GlobalString(tokenFlag.Name))
}

func callContext(ctx *cli.Context) (context.Context, context.CancelFunc) {
	timeout := ctx.GlobalDuration(timeoutFlag.Name)
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

func requireArgs(ctx *cli.Context, n int) error {
	if ctx.NArg() != n {
		return fmt.Errorf("%s: expected %d argument(s): %s", ctx.Command.Name, n, ctx.Command.ArgsUsage)
	}
	return nil
}

func printJSON(ctx *cli.Context, v interface{}) error {
	enc := json.NewEncoder(ctx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tokenAction(ctx *cli.Context) error {
	subject, err := crypto.DecodeAddress(ctx.String(subjectFlag.Name))
	if err != nil {
		return errors.Wrap(err, "-subject")
	}
	secret, err := passphrase.NewSource(envSecret, "JWT secret").Get()
	if err != nil {
		return err
	}
	token, err := rpc.IssueToken(rpc.TokenRequest{
		Secret:   secret,
		Issuer:   ctx.String(issuerFlag.Name),
		Audience: ctx.String(audienceFlag.Name),
		Subject:  subject,
		TTL:      ctx.Duration(ttlFlag.Name),
	})
	if err != nil {
		return errors.Wrap(err, "issue token")
	}
	fmt.Fprintln(ctx.App.Writer, token)
	return nil
}

func vaultAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, crypto.ContractPackageFromName(ctx.Args().Get(0)).String())
	return nil
}

func initAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	params, err := config.LoadInitParams(ctx.Args().Get(0))
	if err != nil {
		return errors.Wrap(err, "load init params")
	}
	callCtx, cancel := callContext(ctx)
	defer cancel()
	res, err := newClient(ctx).Initialize(callCtx, rpc.InitializeParams{
		Name:           params.Name,
		Address:        params.AddressLabel,
		StakingStarts:  params.StakingStarts,
		StakingEnds:    params.StakingEnds,
		WithdrawStarts: params.WithdrawStarts,
		WithdrawEnds:   params.WithdrawEnds,
		StakingTotal:   params.StakingTotal.Dec(),
	})
	if err != nil {
		return err
	}
	return printJSON(ctx, res)
}

func amountAction(call func(*rpc.Client, context.Context, string) (string, error)) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		if err := requireArgs(ctx, 1); err != nil {
			return err
		}
		callCtx, cancel := callContext(ctx)
		defer cancel()
		out, err := call(newClient(ctx), callCtx, strings.TrimSpace(ctx.Args().Get(0)))
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, out)
		return nil
	}
}

func addressAction(call func(*rpc.Client, context.Context, string) (string, error)) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		if err := requireArgs(ctx, 1); err != nil {
			return err
		}
		addr, err := crypto.DecodeAddress(ctx.Args().Get(0))
		if err != nil {
			return errors.Wrap(err, "address")
		}
		callCtx, cancel := callContext(ctx)
		defer cancel()
		out, err := call(newClient(ctx), callCtx, addr.String())
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, out)
		return nil
	}
}

func addRewardAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2); err != nil {
		return err
	}
	callCtx, cancel := callContext(ctx)
	defer cancel()
	out, err := newClient(ctx).AddReward(callCtx, ctx.Args().Get(0), ctx.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, out)
	return nil
}

func stateAction(ctx *cli.Context) error {
	callCtx, cancel := callContext(ctx)
	defer cancel()
	state, err := newClient(ctx).State(callCtx)
	if err != nil {
		return err
	}
	return printJSON(ctx, state)
}

func stakersAction(ctx *cli.Context) error {
	callCtx, cancel := callContext(ctx)
	defer cancel()
	stakers, err := newClient(ctx).Stakers(callCtx)
	if err != nil {
		return err
	}
	for _, s := range stakers {
		fmt.Fprintf(ctx.App.Writer, "%s\t%s\n", s.Address, s.Amount)
	}
	return nil
}

func eventsAction(ctx *cli.Context) error {
	callCtx, cancel := callContext(ctx)
	defer cancel()
	evts, err := newClient(ctx).Events(callCtx, rpc.ListEventsParams{
		Type:   ctx.String(typeFlag.Name),
		Staker: ctx.String(stakerFlag.Name),
		After:  ctx.Uint64(afterFlag.Name),
		Limit:  ctx.Int(limitFlag.Name),
	})
	if err != nil {
		return err
	}
	return printJSON(ctx, evts)
}

func mintAction(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2); err != nil {
		return err
	}
	to, err := crypto.DecodeAddress(ctx.Args().Get(0))
	if err != nil {
		return errors.Wrap(err, "address")
	}
	callCtx, cancel := callContext(ctx)
	defer cancel()
	balance, err := newClient(ctx).Mint(callCtx, to.String(), ctx.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, balance)
	return nil
}
