package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"TokenLedger/internal/ledger"
)

// Postgres persists ledger state in the ledger.* tables (see migrations/).
// Each changeset commits in one transaction. Amounts are stored as
// NUMERIC(20,0) because BIGINT cannot hold the full uint64 range; they
// travel as decimal strings.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open connection pool. The caller owns migrations.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Load reads the full persisted state, or nil if the meta row is absent.
func (p *Postgres) Load(ctx context.Context) (*ledger.Snapshot, error) {
	snap := &ledger.Snapshot{
		Balances:   make(map[string]uint64),
		Allowances: make(map[string]uint64),
		CreatedAt:  time.Now().UTC(),
	}

	var supply string
	err := p.db.QueryRowContext(ctx,
		`SELECT admin, total_supply, paused, sequence FROM ledger.meta WHERE id = 1`,
	).Scan(&snap.Admin, &supply, &snap.Paused, &snap.Sequence)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	if snap.TotalSupply, err = parseAmount(supply); err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `SELECT address, balance FROM ledger.balances`)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var addr, raw string
		if err := rows.Scan(&addr, &raw); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		if snap.Balances[addr], err = parseAmount(raw); err != nil {
			return nil, fmt.Errorf("balance %s: %w", addr, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}

	arows, err := p.db.QueryContext(ctx, `SELECT owner, spender, amount FROM ledger.allowances`)
	if err != nil {
		return nil, fmt.Errorf("load allowances: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var owner, spender, raw string
		if err := arows.Scan(&owner, &spender, &raw); err != nil {
			return nil, fmt.Errorf("scan allowance: %w", err)
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("allowance %s:%s: %w", owner, spender, err)
		}
		snap.Allowances[owner+":"+spender] = amount
	}
	if err := arows.Err(); err != nil {
		return nil, fmt.Errorf("load allowances: %w", err)
	}

	brows, err := p.db.QueryContext(ctx, `SELECT address FROM ledger.blacklist`)
	if err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}
	defer brows.Close()
	for brows.Next() {
		var addr string
		if err := brows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan blacklist: %w", err)
		}
		snap.Blacklist = append(snap.Blacklist, addr)
	}
	if err := brows.Err(); err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}

	return snap, nil
}

// Init writes the initial state in one transaction. Fails if a meta row
// already exists.
func (p *Postgres) Init(ctx context.Context, snap *ledger.Snapshot) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin init: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger.meta (id, admin, total_supply, paused, sequence) VALUES (1, $1, $2, $3, $4)`,
		snap.Admin, formatAmount(snap.TotalSupply), snap.Paused, int64(snap.Sequence),
	); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	for addr, bal := range snap.Balances {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger.balances (address, balance) VALUES ($1, $2)`,
			addr, formatAmount(bal),
		); err != nil {
			return fmt.Errorf("insert balance %s: %w", addr, err)
		}
	}

	for key, amount := range snap.Allowances {
		parsed, err := ledger.ParseAllowanceKey(key)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger.allowances (owner, spender, amount) VALUES ($1, $2, $3)`,
			parsed.Owner.String(), parsed.Spender.String(), formatAmount(amount),
		); err != nil {
			return fmt.Errorf("insert allowance %s: %w", key, err)
		}
	}

	for _, addr := range snap.Blacklist {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger.blacklist (address) VALUES ($1)`, addr,
		); err != nil {
			return fmt.Errorf("insert blacklist %s: %w", addr, err)
		}
	}

	return tx.Commit()
}

// Commit applies one changeset transactionally.
func (p *Postgres) Commit(ctx context.Context, cs *ledger.Changeset) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE ledger.meta SET sequence = $1, updated_at = now() WHERE id = 1`,
		int64(cs.Sequence),
	); err != nil {
		return fmt.Errorf("update sequence: %w", err)
	}
	if cs.TotalSupply != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE ledger.meta SET total_supply = $1 WHERE id = 1`,
			formatAmount(*cs.TotalSupply),
		); err != nil {
			return fmt.Errorf("update total supply: %w", err)
		}
	}
	if cs.Paused != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE ledger.meta SET paused = $1 WHERE id = 1`, *cs.Paused,
		); err != nil {
			return fmt.Errorf("update paused: %w", err)
		}
	}

	for addr, bal := range cs.Balances {
		if bal == 0 {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM ledger.balances WHERE address = $1`, addr.String())
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO ledger.balances (address, balance) VALUES ($1, $2)
				 ON CONFLICT (address) DO UPDATE SET balance = EXCLUDED.balance`,
				addr.String(), formatAmount(bal))
		}
		if err != nil {
			return fmt.Errorf("write balance %s: %w", addr, err)
		}
	}

	for key, amount := range cs.Allowances {
		if amount == 0 {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM ledger.allowances WHERE owner = $1 AND spender = $2`,
				key.Owner.String(), key.Spender.String())
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO ledger.allowances (owner, spender, amount) VALUES ($1, $2, $3)
				 ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`,
				key.Owner.String(), key.Spender.String(), formatAmount(amount))
		}
		if err != nil {
			return fmt.Errorf("write allowance %s: %w", key.Path(), err)
		}
	}

	for addr, blocked := range cs.Blacklist {
		if blocked {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO ledger.blacklist (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`,
				addr.String())
		} else {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM ledger.blacklist WHERE address = $1`, addr.String())
		}
		if err != nil {
			return fmt.Errorf("write blacklist %s: %w", addr, err)
		}
	}

	return tx.Commit()
}

func (p *Postgres) Close() error { return p.db.Close() }

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}
