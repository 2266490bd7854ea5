package store

import (
	"context"
	"sync"
	"time"

	"TokenLedger/internal/ledger"
)

// Memory is an in-process Store for tests and storeless deployments.
// Commits are applied under a single mutex, so the all-or-nothing contract
// holds trivially.
type Memory struct {
	mu          sync.Mutex
	initialized bool

	admin       string
	totalSupply uint64
	paused      bool
	sequence    uint64
	balances    map[string]uint64
	allowances  map[string]uint64
	blacklist   map[string]struct{}

	// CommitErr, when set, makes the next Commit fail. Test hook for
	// exercising abort paths.
	CommitErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[string]uint64),
		allowances: make(map[string]uint64),
		blacklist:  make(map[string]struct{}),
	}
}

// Load returns a copy of the stored state, or nil before Init.
func (m *Memory) Load(ctx context.Context) (*ledger.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, nil
	}
	return m.snapshotLocked(), nil
}

// Init seeds the store from a snapshot.
func (m *Memory) Init(ctx context.Context, snap *ledger.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initialized = true
	m.admin = snap.Admin
	m.totalSupply = snap.TotalSupply
	m.paused = snap.Paused
	m.sequence = snap.Sequence

	m.balances = make(map[string]uint64, len(snap.Balances))
	for addr, bal := range snap.Balances {
		m.balances[addr] = bal
	}
	m.allowances = make(map[string]uint64, len(snap.Allowances))
	for key, amount := range snap.Allowances {
		m.allowances[key] = amount
	}
	m.blacklist = make(map[string]struct{}, len(snap.Blacklist))
	for _, addr := range snap.Blacklist {
		m.blacklist[addr] = struct{}{}
	}

	return nil
}

// Commit applies one changeset.
func (m *Memory) Commit(ctx context.Context, cs *ledger.Changeset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CommitErr != nil {
		return m.CommitErr
	}

	m.initialized = true
	m.sequence = cs.Sequence
	if cs.TotalSupply != nil {
		m.totalSupply = *cs.TotalSupply
	}
	if cs.Paused != nil {
		m.paused = *cs.Paused
	}
	for addr, bal := range cs.Balances {
		if bal == 0 {
			delete(m.balances, addr.String())
		} else {
			m.balances[addr.String()] = bal
		}
	}
	for key, amount := range cs.Allowances {
		if amount == 0 {
			delete(m.allowances, key.Path())
		} else {
			m.allowances[key.Path()] = amount
		}
	}
	for addr, blocked := range cs.Blacklist {
		if blocked {
			m.blacklist[addr.String()] = struct{}{}
		} else {
			delete(m.blacklist, addr.String())
		}
	}

	return nil
}

func (m *Memory) Close() error { return nil }

// Sequence returns the last committed sequence. Test helper.
func (m *Memory) Sequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sequence
}

func (m *Memory) snapshotLocked() *ledger.Snapshot {
	snap := &ledger.Snapshot{
		Admin:       m.admin,
		TotalSupply: m.totalSupply,
		Paused:      m.paused,
		Sequence:    m.sequence,
		Balances:    make(map[string]uint64, len(m.balances)),
		Allowances:  make(map[string]uint64, len(m.allowances)),
		Blacklist:   make([]string, 0, len(m.blacklist)),
		CreatedAt:   time.Now().UTC(),
	}
	for addr, bal := range m.balances {
		snap.Balances[addr] = bal
	}
	for key, amount := range m.allowances {
		snap.Allowances[key] = amount
	}
	for addr := range m.blacklist {
		snap.Blacklist = append(snap.Blacklist, addr)
	}
	return snap
}
