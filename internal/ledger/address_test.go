package ledger_test

import (
	"encoding/json"
	"strings"
	"testing"

	"TokenLedger/internal/ledger"
)

func TestParseAddress_RoundTrip(t *testing.T) {
	want := addr(0x42)

	got, err := ledger.ParseAddress(want.String())
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if got != want {
		t.Errorf("round trip: got %s, want %s", got, want)
	}
}

func TestParseAddress_NoPrefix(t *testing.T) {
	want := addr(0x42)
	raw := strings.TrimPrefix(want.String(), "0x")

	got, err := ledger.ParseAddress(raw)
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"odd length", "0xabc"},
		{"not hex", "0xzz00000000000000000000000000000000000000"},
		{"too short", "0xabcd"},
		{"too long", "0x" + strings.Repeat("ab", ledger.AddressLength+1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ledger.ParseAddress(tc.in); err == nil {
				t.Errorf("ParseAddress(%q) succeeded, want error", tc.in)
			}
		})
	}
}

func TestParseAddress_ZeroSentinel(t *testing.T) {
	got, err := ledger.ParseAddress(ledger.ZeroAddress.String())
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if !got.IsZero() {
		t.Error("expected zero sentinel")
	}
}

func TestAddress_JSON(t *testing.T) {
	in := addr(0x99)

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"`+in.String()+`"` {
		t.Errorf("marshal: got %s", data)
	}

	var out ledger.Address
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip: got %s, want %s", out, in)
	}
}

func TestAddressFromBytes(t *testing.T) {
	short := ledger.AddressFromBytes([]byte{0x01, 0x02})
	if short[ledger.AddressLength-1] != 0x02 || short[ledger.AddressLength-2] != 0x01 {
		t.Errorf("short input not right-aligned: %s", short)
	}

	long := make([]byte, ledger.AddressLength+4)
	for i := range long {
		long[i] = byte(i)
	}
	got := ledger.AddressFromBytes(long)
	if got[0] != long[4] || got[ledger.AddressLength-1] != long[len(long)-1] {
		t.Errorf("long input not truncated from the left: %s", got)
	}
}
