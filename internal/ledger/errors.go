package ledger

import "errors"

// Guard and precondition failures. Every failed operation surfaces exactly
// one of these kinds, wrapped with operation context; callers dispatch with
// errors.Is. No failure leaves partial state behind.
var (
	// ErrZeroAddress: a required address argument is the null sentinel.
	ErrZeroAddress = errors.New("ledger: zero address")

	// ErrZeroAmount: a required positive quantity argument is zero.
	ErrZeroAmount = errors.New("ledger: zero amount")

	// ErrInsufficientBalance: a debit exceeds the source account's balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInsufficientApproval: a delegated transfer exceeds the allowance.
	ErrInsufficientApproval = errors.New("ledger: insufficient approval")

	// ErrAllowanceUnderflow: a decrease-allowance delta exceeds the current
	// allowance. Deliberately distinct from ErrInsufficientApproval.
	ErrAllowanceUnderflow = errors.New("ledger: allowance underflow")

	// ErrUnauthorized: caller is not the administrator.
	ErrUnauthorized = errors.New("ledger: unauthorized")

	// ErrPaused: the ledger is paused.
	ErrPaused = errors.New("ledger: paused")

	// ErrBlacklisted: a participant role is on the blacklist.
	ErrBlacklisted = errors.New("ledger: blacklisted")

	// ErrArithmeticOverflow: a mutation would exceed the uint64 range.
	ErrArithmeticOverflow = errors.New("ledger: arithmetic overflow")
)

// RejectReason returns a short label for metrics and logs, or "other" for
// errors outside the taxonomy.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrZeroAddress):
		return "zero_address"
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInsufficientApproval):
		return "insufficient_approval"
	case errors.Is(err, ErrAllowanceUnderflow):
		return "allowance_underflow"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPaused):
		return "paused"
	case errors.Is(err, ErrBlacklisted):
		return "blacklisted"
	case errors.Is(err, ErrArithmeticOverflow):
		return "arithmetic_overflow"
	default:
		return "other"
	}
}
