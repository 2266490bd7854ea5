package ledger

import (
	"fmt"
	"strings"
	"time"
)

// AllowanceKey identifies one (owner, spender) allowance entry.
type AllowanceKey struct {
	Owner   Address
	Spender Address
}

// Path returns the storage key form "owner:spender".
func (k AllowanceKey) Path() string {
	return k.Owner.String() + ":" + k.Spender.String()
}

// ParseAllowanceKey parses the "owner:spender" storage form.
func ParseAllowanceKey(s string) (AllowanceKey, error) {
	var k AllowanceKey

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return k, fmt.Errorf("parse allowance key %q: want owner:spender", s)
	}

	owner, err := ParseAddress(parts[0])
	if err != nil {
		return k, err
	}
	spender, err := ParseAddress(parts[1])
	if err != nil {
		return k, err
	}

	return AllowanceKey{Owner: owner, Spender: spender}, nil
}

// Changeset carries the new values of every field touched by one operation.
// A backend must apply it in a single all-or-nothing transaction. Zero
// balance or allowance values mean the entry may be deleted.
type Changeset struct {
	Sequence    uint64
	TotalSupply *uint64
	Paused      *bool
	Balances    map[Address]uint64
	Allowances  map[AllowanceKey]uint64
	Blacklist   map[Address]bool
}

// Snapshot is the full serializable ledger state. Map keys use the string
// path forms so snapshots survive JSON round-trips and SQL rows unchanged.
type Snapshot struct {
	Admin       string            `json:"admin"`
	TotalSupply uint64            `json:"total_supply"`
	Paused      bool              `json:"paused"`
	Sequence    uint64            `json:"sequence"`
	Balances    map[string]uint64 `json:"balances"`
	Allowances  map[string]uint64 `json:"allowances"`
	Blacklist   []string          `json:"blacklist"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Snapshot copies the current state under the read lock.
func (s *State) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Admin:       s.admin.String(),
		TotalSupply: s.totalSupply,
		Paused:      s.paused,
		Sequence:    s.sequence,
		Balances:    make(map[string]uint64, len(s.balances)),
		Allowances:  make(map[string]uint64, len(s.allowances)),
		Blacklist:   make([]string, 0, len(s.blacklist)),
		CreatedAt:   time.Now().UTC(),
	}

	for addr, bal := range s.balances {
		snap.Balances[addr.String()] = bal
	}
	for key, amount := range s.allowances {
		snap.Allowances[key.Path()] = amount
	}
	for addr := range s.blacklist {
		snap.Blacklist = append(snap.Blacklist, addr.String())
	}

	return snap
}
