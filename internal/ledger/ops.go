package ledger

import (
	"context"
	"math"
	"time"

	"TokenLedger/internal/event"
)

// Mint expands supply by crediting target. Administrator only.
func (s *State) Mint(ctx context.Context, caller, target Address, amount uint64) (newTotalSupply uint64, err error) {
	start := time.Now()
	defer func() { s.observe("mint", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = check(
		s.ownerOnly(caller),
		s.notBlacklisted("target", target),
		nonZeroAddress("target", target),
		nonZeroAmount(amount),
	); err != nil {
		return 0, err
	}

	if s.totalSupply > math.MaxUint64-amount {
		return 0, ErrArithmeticOverflow
	}
	if s.balances[target] > math.MaxUint64-amount {
		return 0, ErrArithmeticOverflow
	}

	supply := s.totalSupply + amount
	cs := &Changeset{
		TotalSupply: &supply,
		Balances:    map[Address]uint64{target: s.balances[target] + amount},
	}
	if err = s.commit(ctx, cs); err != nil {
		return 0, err
	}
	s.apply(cs)

	s.emit(event.Envelope{
		Kind:   event.KindTransfer,
		From:   ZeroAddress.String(),
		To:     target.String(),
		Amount: amount,
	})
	return s.totalSupply, nil
}

// BurnFrom contracts supply by debiting source. Administrator only.
//
// Deliberate asymmetry with Mint: BurnFrom does not check the blacklist
// and accepts a zero amount, so the administrator can always retire
// funds from frozen accounts.
func (s *State) BurnFrom(ctx context.Context, caller, source Address, amount uint64) (newTotalSupply uint64, err error) {
	start := time.Now()
	defer func() { s.observe("burn_from", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = check(
		s.ownerOnly(caller),
		nonZeroAddress("source", source),
	); err != nil {
		return 0, err
	}

	if s.balances[source] < amount {
		return 0, ErrInsufficientBalance
	}

	supply := s.totalSupply - amount
	cs := &Changeset{
		TotalSupply: &supply,
		Balances:    map[Address]uint64{source: s.balances[source] - amount},
	}
	if err = s.commit(ctx, cs); err != nil {
		return 0, err
	}
	s.apply(cs)

	s.emit(event.Envelope{
		Kind:   event.KindTransfer,
		From:   source.String(),
		To:     ZeroAddress.String(),
		Amount: amount,
	})
	return s.totalSupply, nil
}

// Pause sets the global pause flag. Administrator only, idempotent.
func (s *State) Pause(ctx context.Context, caller Address) error {
	return s.setPaused(ctx, caller, true)
}

// Unpause clears the global pause flag. Administrator only, idempotent.
func (s *State) Unpause(ctx context.Context, caller Address) error {
	return s.setPaused(ctx, caller, false)
}

func (s *State) setPaused(ctx context.Context, caller Address, paused bool) (err error) {
	op := "pause"
	if !paused {
		op = "unpause"
	}
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = check(s.ownerOnly(caller)); err != nil {
		return err
	}

	cs := &Changeset{Paused: &paused}
	if err = s.commit(ctx, cs); err != nil {
		return err
	}
	s.apply(cs)

	s.emit(event.Envelope{
		Kind:  event.KindPauseToggle,
		State: paused,
	})
	return nil
}

// Blacklist blocks an account from all sender, receiver, and spender
// roles. Administrator only, idempotent.
func (s *State) Blacklist(ctx context.Context, caller, account Address) error {
	return s.setBlacklisted(ctx, caller, account, true)
}

// Unblacklist removes an account from the blacklist. Administrator only,
// idempotent.
func (s *State) Unblacklist(ctx context.Context, caller, account Address) error {
	return s.setBlacklisted(ctx, caller, account, false)
}

func (s *State) setBlacklisted(ctx context.Context, caller, account Address, blocked bool) (err error) {
	op := "blacklist"
	if !blocked {
		op = "unblacklist"
	}
	start := time.Now()
	defer func() { s.observe(op, start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = check(s.ownerOnly(caller)); err != nil {
		return err
	}

	cs := &Changeset{Blacklist: map[Address]bool{account: blocked}}
	if err = s.commit(ctx, cs); err != nil {
		return err
	}
	s.apply(cs)

	s.emit(event.Envelope{
		Kind:    event.KindBlacklistToggle,
		Account: account.String(),
		State:   blocked,
	})
	return nil
}

// Transfer moves amount from sender to receiver atomically. The sender is
// the caller; authorization is its own balance.
func (s *State) Transfer(ctx context.Context, sender, receiver Address, amount uint64) (err error) {
	start := time.Now()
	defer func() { s.observe("transfer", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = check(
		s.notBlacklisted("sender", sender),
		s.notBlacklisted("receiver", receiver),
		s.notPaused(),
		nonZeroAmount(amount),
		nonZeroAddress("receiver", receiver),
	); err != nil {
		return err
	}

	if s.balances[sender] < amount {
		return ErrInsufficientBalance
	}

	cs := &Changeset{Balances: movedBalances(s.balances, sender, receiver, amount)}
	if err = s.commit(ctx, cs); err != nil {
		return err
	}
	s.apply(cs)

	s.emit(event.Envelope{
		Kind:   event.KindTransfer,
		From:   sender.String(),
		To:     receiver.String(),
		Amount: amount,
	})
	return nil
}

// Approve sets (overwrites) the allowance from owner to spender. The owner
// is the caller. A zero amount is permitted and revokes the allowance.
func (s *State) Approve(ctx context.Context, owner, spender Address, amount uint64) (err error) {
	start := time.Now()
	defer func() { s.observe("approve", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkApproveGuards(owner, spender); err != nil {
		return err
	}

	return s.setAllowance(ctx, owner, spender, amount)
}

// IncreaseAllowance adds delta to the current allowance.
func (s *State) IncreaseAllowance(ctx context.Context, owner, spender Address, delta uint64) (err error) {
	start := time.Now()
	defer func() { s.observe("increase_allowance", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkApproveGuards(owner, spender); err != nil {
		return err
	}
	if err = check(nonZeroAmount(delta)); err != nil {
		return err
	}

	current := s.allowances[AllowanceKey{Owner: owner, Spender: spender}]
	if current > math.MaxUint64-delta {
		return ErrArithmeticOverflow
	}

	return s.setAllowance(ctx, owner, spender, current+delta)
}

// DecreaseAllowance subtracts delta from the current allowance. A delta
// exceeding the current allowance fails with ErrAllowanceUnderflow, not
// the ErrInsufficientApproval used by delegated transfers.
func (s *State) DecreaseAllowance(ctx context.Context, owner, spender Address, delta uint64) (err error) {
	start := time.Now()
	defer func() { s.observe("decrease_allowance", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.checkApproveGuards(owner, spender); err != nil {
		return err
	}
	if err = check(nonZeroAmount(delta)); err != nil {
		return err
	}

	current := s.allowances[AllowanceKey{Owner: owner, Spender: spender}]
	if delta > current {
		return ErrAllowanceUnderflow
	}

	return s.setAllowance(ctx, owner, spender, current-delta)
}

// TransferFrom moves amount out of owner's balance under spender's
// allowance. The spender is the caller. Allowance sufficiency is checked
// before balance sufficiency.
func (s *State) TransferFrom(ctx context.Context, spender, owner, receiver Address, amount uint64) (err error) {
	start := time.Now()
	defer func() { s.observe("transfer_from", start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = check(
		s.notBlacklisted("spender", spender),
		s.notBlacklisted("owner", owner),
		s.notBlacklisted("receiver", receiver),
		s.notPaused(),
		nonZeroAddress("owner", owner),
		nonZeroAddress("receiver", receiver),
		nonZeroAmount(amount),
	); err != nil {
		return err
	}

	key := AllowanceKey{Owner: owner, Spender: spender}
	if s.allowances[key] < amount {
		return ErrInsufficientApproval
	}
	if s.balances[owner] < amount {
		return ErrInsufficientBalance
	}

	cs := &Changeset{
		Balances:   movedBalances(s.balances, owner, receiver, amount),
		Allowances: map[AllowanceKey]uint64{key: s.allowances[key] - amount},
	}
	if err = s.commit(ctx, cs); err != nil {
		return err
	}
	s.apply(cs)

	s.emit(event.Envelope{
		Kind:   event.KindTransfer,
		From:   owner.String(),
		To:     receiver.String(),
		Amount: amount,
	})
	return nil
}

// checkApproveGuards runs the guard set shared by Approve and the
// allowance adjustments. Called with the write lock held.
func (s *State) checkApproveGuards(owner, spender Address) error {
	return check(
		s.notBlacklisted("owner", owner),
		s.notBlacklisted("spender", spender),
		s.notPaused(),
		nonZeroAddress("spender", spender),
	)
}

// setAllowance commits and applies one allowance entry, then emits the
// approval event carrying the new amount. Called with the write lock held,
// after all guards.
func (s *State) setAllowance(ctx context.Context, owner, spender Address, amount uint64) error {
	key := AllowanceKey{Owner: owner, Spender: spender}

	cs := &Changeset{Allowances: map[AllowanceKey]uint64{key: amount}}
	if err := s.commit(ctx, cs); err != nil {
		return err
	}
	s.apply(cs)

	s.emit(event.Envelope{
		Kind:    event.KindApproval,
		Owner:   owner.String(),
		Spender: spender.String(),
		Amount:  amount,
	})
	return nil
}

// movedBalances builds the post-transfer balances of from and to. A
// self-transfer is a net no-op.
func movedBalances(balances map[Address]uint64, from, to Address, amount uint64) map[Address]uint64 {
	if from == to {
		return map[Address]uint64{from: balances[from]}
	}
	return map[Address]uint64{
		from: balances[from] - amount,
		to:   balances[to] + amount,
	}
}
