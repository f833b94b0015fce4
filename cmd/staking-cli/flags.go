package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

const (
	envRPCURL   = "STAKING_RPC_URL"
	envRPCToken = "STAKING_RPC_TOKEN"
	envSecret   = "STAKING_JWT_SECRET"
)

var (
	rpcURLFlag = cli.StringFlag{
		Name:   "rpc",
		Value:  "http://127.0.0.1:8645",
		Usage:  "staking node RPC endpoint",
		EnvVar: envRPCURL,
	}
	tokenFlag = cli.StringFlag{
		Name:   "token",
		Usage:  "bearer token for mutating calls",
		EnvVar: envRPCToken,
	}
	timeoutFlag = cli.DurationFlag{
		Name:  "timeout",
		Value: defaultTimeout,
		Usage: "per-call timeout",
	}
	subjectFlag = cli.StringFlag{
		Name:  "subject",
		Usage: "caller address (bech32) named in the token",
	}
	issuerFlag = cli.StringFlag{
		Name:  "issuer",
		Value: "stakeledger",
		Usage: "token issuer",
	}
	audienceFlag = cli.StringFlag{
		Name:  "audience",
		Usage: "token audience",
	}
	ttlFlag = cli.DurationFlag{
		Name:  "ttl",
		Value: defaultTokenTTL,
		Usage: "token lifetime",
	}
	typeFlag = cli.StringFlag{
		Name:  "type",
		Usage: "filter by event type",
	}
	stakerFlag = cli.StringFlag{
		Name:  "staker",
		Usage: "filter by staker address",
	}
	afterFlag = cli.Uint64Flag{
		Name:  "after",
		Usage: "only events with a larger sequence",
	}
	limitFlag = cli.IntFlag{
		Name:  "limit",
		Value: 20,
		Usage: "maximum events returned",
	}
)
