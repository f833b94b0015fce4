package staking

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"stakeledger/storage"
)

// readAmount returns the counter stored under key, or zero when absent.
func readAmount(kv storage.Reader, key []byte) (*uint256.Int, error) {
	raw, err := kv.Get(key)
	if storage.IsNotFound(err) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", key)
	}
	out := new(uint256.Int)
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return nil, errors.Wrapf(err, "decode %s", key)
	}
	return out, nil
}

func writeAmount(kv storage.Writer, key []byte, v *uint256.Int) error {
	if v == nil {
		v = new(uint256.Int)
	}
	raw, err := rlp.EncodeToBytes(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return errors.Wrapf(kv.Put(key, raw), "write %s", key)
}

func readUint64(kv storage.Reader, key []byte) (uint64, error) {
	raw, err := kv.Get(key)
	if storage.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", key)
	}
	var out uint64
	if err := rlp.DecodeBytes(raw, &out); err != nil {
		return 0, errors.Wrapf(err, "decode %s", key)
	}
	return out, nil
}

func writeUint64(kv storage.Writer, key []byte, v uint64) error {
	raw, err := rlp.EncodeToBytes(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return errors.Wrapf(kv.Put(key, raw), "write %s", key)
}

func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
