package store

import (
	"context"

	"TokenLedger/internal/ledger"
)

// Store is the persistence backend for ledger state. Commit must be
// all-or-nothing: either every entry in the changeset is durable or none
// is. Load returns nil when the store holds no state yet.
type Store interface {
	ledger.Backend

	// Load reads the full persisted state, or nil on a cold start.
	Load(ctx context.Context) (*ledger.Snapshot, error)

	// Init writes the initial state on a cold start.
	Init(ctx context.Context, snap *ledger.Snapshot) error

	Close() error
}
