package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"TokenLedger/internal/event"
	"TokenLedger/internal/observability"
)

// Backend persists committed changesets. Implementations must apply each
// changeset atomically; a returned error means nothing was written and the
// in-memory state is left untouched.
type Backend interface {
	Commit(ctx context.Context, cs *Changeset) error
}

// State is the ledger aggregate: total supply, per-account balances,
// per-(owner,spender) allowances, the blacklist, the pause flag, and the
// fixed administrator identity.
//
// Every mutating operation is one atomic check-then-mutate transaction
// under an exclusive lock: guards run first, the changeset commits to the
// backend, the in-memory state updates, and exactly one event is emitted —
// in that order. Reads take the read lock and observe consistent snapshots.
type State struct {
	mu sync.RWMutex

	admin       Address
	totalSupply uint64
	paused      bool
	balances    map[Address]uint64
	allowances  map[AllowanceKey]uint64
	blacklist   map[Address]struct{}

	// sequence numbers committed mutations; envelopes carry it so
	// consumers can reconstruct ledger history in commit order.
	sequence uint64

	backend Backend
	sink    event.Sink
	metrics *observability.Metrics
}

// NewState creates a ledger with the initial supply fully credited to the
// administrator. backend, sink, and metrics may each be nil.
func NewState(admin Address, initialSupply uint64, backend Backend, sink event.Sink, metrics *observability.Metrics) (*State, error) {
	if admin.IsZero() {
		return nil, fmt.Errorf("admin: %w", ErrZeroAddress)
	}

	s := &State{
		admin:       admin,
		totalSupply: initialSupply,
		balances:    make(map[Address]uint64),
		allowances:  make(map[AllowanceKey]uint64),
		blacklist:   make(map[Address]struct{}),
		backend:     backend,
		sink:        sink,
		metrics:     metrics,
	}
	if initialSupply > 0 {
		s.balances[admin] = initialSupply
	}

	s.updateGauges()
	return s, nil
}

// NewStateFromSnapshot restores a ledger from a stored snapshot.
func NewStateFromSnapshot(snap *Snapshot, backend Backend, sink event.Sink, metrics *observability.Metrics) (*State, error) {
	admin, err := ParseAddress(snap.Admin)
	if err != nil {
		return nil, fmt.Errorf("snapshot admin: %w", err)
	}
	if admin.IsZero() {
		return nil, fmt.Errorf("snapshot admin: %w", ErrZeroAddress)
	}

	s := &State{
		admin:       admin,
		totalSupply: snap.TotalSupply,
		paused:      snap.Paused,
		sequence:    snap.Sequence,
		balances:    make(map[Address]uint64, len(snap.Balances)),
		allowances:  make(map[AllowanceKey]uint64, len(snap.Allowances)),
		blacklist:   make(map[Address]struct{}, len(snap.Blacklist)),
		backend:     backend,
		sink:        sink,
		metrics:     metrics,
	}

	var sum uint64
	for raw, bal := range snap.Balances {
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot balance key: %w", err)
		}
		if bal == 0 {
			continue
		}
		s.balances[addr] = bal
		next := sum + bal
		if next < sum {
			return nil, fmt.Errorf("snapshot balances: %w", ErrArithmeticOverflow)
		}
		sum = next
	}
	if sum != snap.TotalSupply {
		return nil, fmt.Errorf("snapshot: balances sum %d != total supply %d", sum, snap.TotalSupply)
	}

	for raw, amount := range snap.Allowances {
		key, err := ParseAllowanceKey(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot allowance key: %w", err)
		}
		if amount == 0 {
			continue
		}
		s.allowances[key] = amount
	}

	for _, raw := range snap.Blacklist {
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot blacklist entry: %w", err)
		}
		s.blacklist[addr] = struct{}{}
	}

	s.updateGauges()
	return s, nil
}

// Admin returns the fixed administrator identity.
func (s *State) Admin() Address {
	return s.admin
}

// TotalSupply returns the current total supply.
func (s *State) TotalSupply() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalSupply
}

// Paused reports whether the pause flag is set.
func (s *State) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// Sequence returns the sequence of the last committed mutation.
func (s *State) Sequence() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sequence
}

// IsBlacklisted reports blacklist membership.
func (s *State) IsBlacklisted(account Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, blocked := s.blacklist[account]
	return blocked
}

// BalanceOf returns the balance of an account; never-seen accounts hold 0.
func (s *State) BalanceOf(account Address) (uint64, error) {
	if err := check(nonZeroAddress("account", account)); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account], nil
}

// AllowanceOf returns the allowance from owner to spender; unset pairs
// hold 0.
func (s *State) AllowanceOf(owner, spender Address) (uint64, error) {
	if err := check(
		nonZeroAddress("owner", owner),
		nonZeroAddress("spender", spender),
	); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowances[AllowanceKey{Owner: owner, Spender: spender}], nil
}

// commit assigns the next sequence and persists the changeset. Called with
// the write lock held, before any in-memory mutation.
func (s *State) commit(ctx context.Context, cs *Changeset) error {
	cs.Sequence = s.sequence + 1

	if s.backend == nil {
		return nil
	}

	start := time.Now()
	err := s.backend.Commit(ctx, cs)
	if s.metrics != nil {
		s.metrics.StoreCommitDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.StoreCommitErrors.Inc()
		}
		return fmt.Errorf("ledger: commit changeset: %w", err)
	}
	return nil
}

// apply folds a committed changeset into the in-memory maps. Zero-valued
// balance and allowance entries are dropped; absence means zero.
func (s *State) apply(cs *Changeset) {
	if cs.TotalSupply != nil {
		s.totalSupply = *cs.TotalSupply
	}
	if cs.Paused != nil {
		s.paused = *cs.Paused
	}
	for addr, bal := range cs.Balances {
		if bal == 0 {
			delete(s.balances, addr)
		} else {
			s.balances[addr] = bal
		}
	}
	for key, amount := range cs.Allowances {
		if amount == 0 {
			delete(s.allowances, key)
		} else {
			s.allowances[key] = amount
		}
	}
	for addr, blocked := range cs.Blacklist {
		if blocked {
			s.blacklist[addr] = struct{}{}
		} else {
			delete(s.blacklist, addr)
		}
	}
	s.sequence = cs.Sequence
	s.updateGauges()
}

// emit hands one envelope to the sink while the write lock is still held,
// so sink order always equals commit order.
func (s *State) emit(env event.Envelope) {
	env.EventID = uuid.New()
	env.Sequence = s.sequence
	env.Timestamp = time.Now().UTC()

	if s.metrics != nil {
		s.metrics.EventsEmitted.Inc()
	}
	if s.sink != nil {
		s.sink.Emit(env)
	}
}

// observe records the outcome of one operation.
func (s *State) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.OpsRejected.WithLabelValues(op, RejectReason(err)).Inc()
	} else {
		s.metrics.OpsApplied.WithLabelValues(op).Inc()
	}
}

func (s *State) updateGauges() {
	if s.metrics == nil {
		return
	}
	s.metrics.TotalSupply.Set(float64(s.totalSupply))
	if s.paused {
		s.metrics.PausedState.Set(1)
	} else {
		s.metrics.PausedState.Set(0)
	}
	s.metrics.BlacklistSize.Set(float64(len(s.blacklist)))
}
