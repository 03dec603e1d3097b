package crypto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the bech32 human-readable part of a principal.
const AddressPrefix = "rwd"

var ErrInvalidAddress = errors.New("crypto: invalid address")

// Address is a 20-byte ledger principal.
type Address [20]byte

// String renders the address in bech32 with AddressPrefix.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Hex renders the address as 0x-prefixed hex.
func (a Address) Hex() string {
	return ethcommon.Address(a).Hex()
}

func (a Address) IsZero() bool { return a == Address{} }

// MarshalText encodes the address in bech32.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts either bech32 or 0x hex.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a bech32 address carrying AddressPrefix or a 0x hex
// address.
func ParseAddress(raw string) (Address, error) {
	var out Address
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		if !ethcommon.IsHexAddress(raw) {
			return out, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
		}
		return Address(ethcommon.HexToAddress(raw)), nil
	}
	hrp, data, err := bech32.Decode(raw)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if hrp != AddressPrefix {
		return out, fmt.Errorf("%w: unsupported hrp %q", ErrInvalidAddress, hrp)
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != len(out) {
		return out, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(raw string) Address {
	addr, err := ParseAddress(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

// DeriveAddress returns a deterministic principal for a service label, used
// for module accounts such as the local oracle host.
func DeriveAddress(label string) Address {
	var out Address
	copy(out[:], ethcrypto.Keccak256([]byte("rewardhub/principal/" + label))[12:])
	return out
}
