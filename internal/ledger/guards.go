package ledger

import "fmt"

// guard is a single precondition predicate over the caller, the operation
// arguments, and the current state. Each operation runs its applicable
// guards in a fixed order before touching any state; the first failure
// aborts the whole operation.
type guard func() error

// check runs guards in order and returns the first failure.
func check(guards ...guard) error {
	for _, g := range guards {
		if err := g(); err != nil {
			return err
		}
	}
	return nil
}

// nonZeroAddress rejects the null sentinel for a required address argument.
func nonZeroAddress(role string, a Address) guard {
	return func() error {
		if a.IsZero() {
			return fmt.Errorf("%s: %w", role, ErrZeroAddress)
		}
		return nil
	}
}

// nonZeroAmount rejects a zero quantity where a positive one is required.
func nonZeroAmount(amount uint64) guard {
	return func() error {
		if amount == 0 {
			return ErrZeroAmount
		}
		return nil
	}
}

// ownerOnly restricts an operation to the administrator.
func (s *State) ownerOnly(caller Address) guard {
	return func() error {
		if caller != s.admin {
			return fmt.Errorf("caller %s: %w", caller, ErrUnauthorized)
		}
		return nil
	}
}

// notBlacklisted rejects a blacklisted participant in the given role.
func (s *State) notBlacklisted(role string, a Address) guard {
	return func() error {
		if _, blocked := s.blacklist[a]; blocked {
			return fmt.Errorf("%s %s: %w", role, a, ErrBlacklisted)
		}
		return nil
	}
}

// notPaused rejects balance and allowance mutations while paused.
func (s *State) notPaused() guard {
	return func() error {
		if s.paused {
			return ErrPaused
		}
		return nil
	}
}
