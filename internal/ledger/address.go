package ledger

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the fixed byte width of an account identifier.
const AddressLength = 20

// Address is an opaque fixed-width account identifier.
// The zero value is a sentinel that can never belong to a live account.
type Address [AddressLength]byte

// ZeroAddress is the null sentinel. It is never a valid participant;
// it only appears in transfer events to denote mint (from) and burn (to).
var ZeroAddress = Address{}

// IsZero reports whether a is the null sentinel.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler so addresses serialize
// as hex strings in JSON payloads and snapshots.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a hex account identifier, with or without the
// 0x prefix. The input must encode exactly AddressLength bytes.
func ParseAddress(s string) (Address, error) {
	var a Address

	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("parse address %q: %w", s, err)
	}
	if len(raw) != AddressLength {
		return a, fmt.Errorf("parse address %q: got %d bytes, want %d", s, len(raw), AddressLength)
	}

	copy(a[:], raw)
	return a, nil
}

// AddressFromBytes copies b into an Address. Inputs longer than
// AddressLength are truncated from the left (keeping the low-order bytes),
// shorter inputs are left-padded with zeros.
func AddressFromBytes(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}
