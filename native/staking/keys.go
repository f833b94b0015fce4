package staking

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"

	"stakeledger/crypto"
)

const keyPrefix = "stk/"

const (
	counterStakingTotal        = "staking_total"
	counterStakedTotal         = "staked_total"
	counterStakedBalance       = "staked_balance"
	counterRewardBalance       = "reward_balance"
	counterTotalReward         = "total_reward"
	counterEarlyWithdrawReward = "early_withdraw_reward"
)

func paramsKey() []byte {
	return []byte(keyPrefix + "params")
}

func counterKey(name string) []byte {
	return []byte(keyPrefix + "pool/" + name)
}

// stakedTokensKey hashes the staker key so the dictionary item key stays a
// fixed-length hex string regardless of address kind.
func stakedTokensKey(addr crypto.Address) []byte {
	sum := blake3.Sum256(addr.Key())
	return []byte(keyPrefix + "staked_tokens/" + hex.EncodeToString(sum[:]))
}

func stakerCountKey() []byte {
	return []byte(keyPrefix + "stakers/count")
}

func stakerIndexKey(i uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], i)
	return append([]byte(keyPrefix+"stakers/i/"), buf[:]...)
}
