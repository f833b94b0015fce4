package crypto

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// HashLength is the size of the hash carried by every address kind.
const HashLength = 32

// Kind distinguishes the identities a caller can present.
type Kind uint8

const (
	// KindAccount identifies an externally owned account.
	KindAccount Kind = iota
	// KindContractPackage identifies a versioned contract package.
	KindContractPackage
	// KindContractInstance identifies a single deployed contract.
	KindContractInstance
)

// Key tags used in the persisted representation. Both contract kinds collapse
// onto the same tag so a package and an instance sharing a hash resolve to the
// same ledger entry.
const (
	keyTagAccount byte = 0x00
	keyTagHash    byte = 0x01
)

// KeyLength is the size of the byte form returned by Address.Key.
const KeyLength = 1 + HashLength

var kindPrefixes = map[Kind]string{
	KindAccount:          "acct",
	KindContractPackage:  "pkg",
	KindContractInstance: "ctr",
}

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindContractPackage:
		return "contract-package"
	case KindContractInstance:
		return "contract"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Address is the caller identity threaded through every staking operation.
// The zero value is not a valid identity.
type Address struct {
	kind Kind
	hash [HashLength]byte
	set  bool
}

// NewAccount returns an account identity for the supplied hash.
func NewAccount(hash [HashLength]byte) Address {
	return Address{kind: KindAccount, hash: hash, set: true}
}

// NewContractPackage returns a contract package identity for the supplied hash.
func NewContractPackage(hash [HashLength]byte) Address {
	return Address{kind: KindContractPackage, hash: hash, set: true}
}

// NewContractInstance returns a contract instance identity for the supplied hash.
func NewContractInstance(hash [HashLength]byte) Address {
	return Address{kind: KindContractInstance, hash: hash, set: true}
}

// NewAddress builds an identity of the given kind from a raw hash slice.
func NewAddress(kind Kind, b []byte) (Address, error) {
	if len(b) != HashLength {
		return Address{}, fmt.Errorf("address hash must be %d bytes, got %d", HashLength, len(b))
	}
	if _, ok := kindPrefixes[kind]; !ok {
		return Address{}, fmt.Errorf("unknown address kind %d", uint8(kind))
	}
	var hash [HashLength]byte
	copy(hash[:], b)
	return Address{kind: kind, hash: hash, set: true}, nil
}

// ContractPackageFromName derives the deterministic package identity used as a
// module vault for the named deployment.
func ContractPackageFromName(name string) Address {
	var hash [HashLength]byte
	copy(hash[:], ethcrypto.Keccak256([]byte("stakeledger:"+strings.TrimSpace(name))))
	return NewContractPackage(hash)
}

// Kind reports the identity kind.
func (a Address) Kind() Kind { return a.kind }

// Hash returns the raw hash.
func (a Address) Hash() [HashLength]byte { return a.hash }

// IsZero reports whether the address was never assigned.
func (a Address) IsZero() bool { return !a.set }

// Equal compares both kind and hash.
func (a Address) Equal(other Address) bool {
	return a.set == other.set && a.kind == other.kind && a.hash == other.hash
}

// Key returns the persisted form: a tag byte followed by the hash.
func (a Address) Key() []byte {
	out := make([]byte, KeyLength)
	switch a.kind {
	case KindAccount:
		out[0] = keyTagAccount
	default:
		out[0] = keyTagHash
	}
	copy(out[1:], a.hash[:])
	return out
}

// AddressFromKey reverses Key. Contract hashes decode as packages.
func AddressFromKey(b []byte) (Address, error) {
	if len(b) != KeyLength {
		return Address{}, fmt.Errorf("address key must be %d bytes, got %d", KeyLength, len(b))
	}
	switch b[0] {
	case keyTagAccount:
		return NewAddress(KindAccount, b[1:])
	case keyTagHash:
		return NewAddress(KindContractPackage, b[1:])
	default:
		return Address{}, fmt.Errorf("unknown address key tag 0x%02x", b[0])
	}
}

// String renders the bech32 text form.
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	conv, err := bech32.ConvertBits(a.hash[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(kindPrefixes[a.kind], conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Hex renders the kind-qualified hex form used in logs.
func (a Address) Hex() string {
	if a.IsZero() {
		return ""
	}
	return kindPrefixes[a.kind] + "-" + hex.EncodeToString(a.hash[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	if len(bytes.TrimSpace(text)) == 0 {
		*a = Address{}
		return nil
	}
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// DecodeAddress parses the bech32 text form.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	for kind, p := range kindPrefixes {
		if p == prefix {
			return NewAddress(kind, conv)
		}
	}
	return Address{}, fmt.Errorf("unknown address prefix %q", prefix)
}

// MustDecodeAddress is DecodeAddress for constants and tests.
func MustDecodeAddress(addrStr string) Address {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		panic(err)
	}
	return addr
}
