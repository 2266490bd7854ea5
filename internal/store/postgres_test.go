package store_test

import (
	"context"
	"testing"

	"TokenLedger/internal/ledger"
	"TokenLedger/internal/observability"
	"TokenLedger/internal/store"
	"TokenLedger/internal/testutil"
)

func TestPostgres_InitCommitLoad(t *testing.T) {
	testutil.RequireIntegration(t)

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	migrator := store.NewMigrator(db, "../../migrations", observability.NewLogger("test"))
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	pg := store.NewPostgres(db)

	// Cold store.
	snap, err := pg.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot before Init")
	}

	state, err := ledger.NewState(admin, 1_000_000, pg, nil, nil)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if err := pg.Init(ctx, state.Snapshot()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Mutations flow through Commit.
	if err := state.Transfer(ctx, admin, user1, 300); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if err := state.Approve(ctx, admin, user2, 55); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := state.Blacklist(ctx, admin, user2); err != nil {
		t.Fatalf("Blacklist: %v", err)
	}
	if err := state.Pause(ctx, admin); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	// A fresh load must restore an identical aggregate.
	snap, err = pg.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	restored, err := ledger.NewStateFromSnapshot(snap, pg, nil, nil)
	if err != nil {
		t.Fatalf("NewStateFromSnapshot: %v", err)
	}

	if restored.Sequence() != state.Sequence() {
		t.Errorf("sequence: got %d, want %d", restored.Sequence(), state.Sequence())
	}
	if restored.TotalSupply() != 1_000_000 {
		t.Errorf("supply: got %d, want 1_000_000", restored.TotalSupply())
	}
	if bal, _ := restored.BalanceOf(user1); bal != 300 {
		t.Errorf("user1 balance: got %d, want 300", bal)
	}
	if amount, _ := restored.AllowanceOf(admin, user2); amount != 55 {
		t.Errorf("allowance: got %d, want 55", amount)
	}
	if !restored.IsBlacklisted(user2) {
		t.Error("blacklist entry lost")
	}
	if !restored.Paused() {
		t.Error("pause flag lost")
	}
}

func TestPostgres_ZeroBalanceDeleted(t *testing.T) {
	testutil.RequireIntegration(t)

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	migrator := store.NewMigrator(db, "../../migrations", observability.NewLogger("test"))
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	pg := store.NewPostgres(db)
	state, err := ledger.NewState(admin, 500, pg, nil, nil)
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if err := pg.Init(ctx, state.Snapshot()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := state.Transfer(ctx, admin, user1, 500); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	var count int
	err = db.QueryRowContext(ctx,
		`SELECT count(*) FROM ledger.balances WHERE address = $1`, admin.String(),
	).Scan(&count)
	if err != nil {
		t.Fatalf("count balances: %v", err)
	}
	if count != 0 {
		t.Errorf("drained balance row still present")
	}
}
