package store_test

import (
	"context"
	"errors"
	"testing"

	"TokenLedger/internal/event"
	"TokenLedger/internal/ledger"
	"TokenLedger/internal/store"
)

func addr(b byte) ledger.Address {
	var a ledger.Address
	a[ledger.AddressLength-1] = b
	return a
}

var (
	admin = addr(0xAA)
	user1 = addr(0x01)
	user2 = addr(0x02)
)

func TestMemory_LoadBeforeInit(t *testing.T) {
	m := store.NewMemory()

	snap, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap != nil {
		t.Error("expected nil snapshot on cold store")
	}
}

func TestMemory_InitLoadRoundTrip(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	state, err := ledger.NewState(admin, 1_000, m, nil, nil)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if err := m.Init(ctx, state.Snapshot()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	snap, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot after Init")
	}

	restored, err := ledger.NewStateFromSnapshot(snap, m, nil, nil)
	if err != nil {
		t.Fatalf("NewStateFromSnapshot: %v", err)
	}
	if restored.TotalSupply() != 1_000 {
		t.Errorf("restored supply: got %d, want 1_000", restored.TotalSupply())
	}
	if restored.Admin() != admin {
		t.Errorf("restored admin: got %s, want %s", restored.Admin(), admin)
	}
}

func TestMemory_CommitTracksState(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	state, err := ledger.NewState(admin, 1_000, m, nil, nil)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if err := m.Init(ctx, state.Snapshot()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := state.Transfer(ctx, admin, user1, 300); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if err := state.Blacklist(ctx, admin, user2); err != nil {
		t.Fatalf("Blacklist: %v", err)
	}

	if m.Sequence() != state.Sequence() {
		t.Errorf("store sequence %d != state sequence %d", m.Sequence(), state.Sequence())
	}

	snap, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := snap.Balances[user1.String()]; got != 300 {
		t.Errorf("stored user1 balance: got %d, want 300", got)
	}
	if got := snap.Balances[admin.String()]; got != 700 {
		t.Errorf("stored admin balance: got %d, want 700", got)
	}
	if len(snap.Blacklist) != 1 || snap.Blacklist[0] != user2.String() {
		t.Errorf("stored blacklist: got %v, want [%s]", snap.Blacklist, user2)
	}
}

// A changeset that zeroes a balance must delete the row, so absence keeps
// meaning zero on restore.
func TestMemory_CommitDeletesZeroEntries(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	state, err := ledger.NewState(admin, 500, m, nil, nil)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if err := m.Init(ctx, state.Snapshot()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Drain admin completely.
	if err := state.Transfer(ctx, admin, user1, 500); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	snap, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := snap.Balances[admin.String()]; ok {
		t.Error("drained balance row should be deleted, not stored as zero")
	}
}

// A failed commit must leave the in-memory aggregate untouched and emit
// nothing.
func TestMemory_CommitFailureAborts(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	var emitted int
	sink := event.SinkFunc(func(event.Envelope) { emitted++ })

	state, err := ledger.NewState(admin, 1_000, m, sink, nil)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if err := m.Init(ctx, state.Snapshot()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	boom := errors.New("disk full")
	m.CommitErr = boom

	err = state.Transfer(ctx, admin, user1, 100)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped commit error", err)
	}

	bal, err := state.BalanceOf(admin)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	if bal != 1_000 {
		t.Errorf("admin balance after aborted commit: got %d, want 1_000", bal)
	}
	if state.Sequence() != 0 {
		t.Errorf("sequence advanced on aborted commit: got %d", state.Sequence())
	}
	if emitted != 0 {
		t.Errorf("got %d events after aborted commit, want 0", emitted)
	}

	// Recovery: clearing the fault lets the same operation through.
	m.CommitErr = nil
	if err := state.Transfer(ctx, admin, user1, 100); err != nil {
		t.Fatalf("Transfer after recovery: %v", err)
	}
	if state.Sequence() != 1 {
		t.Errorf("sequence after recovery: got %d, want 1", state.Sequence())
	}
	if m.Sequence() != 1 {
		t.Errorf("store sequence after recovery: got %d, want 1", m.Sequence())
	}
}
