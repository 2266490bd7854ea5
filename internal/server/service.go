package server

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"TokenLedger/internal/ledger"
)

// LedgerService adapts the core state aggregate to the wire types. All
// authorization lives in the core; this layer only parses addresses and
// maps error kinds to canonical status codes.
type LedgerService struct {
	state *ledger.State
	log   zerolog.Logger
}

func NewLedgerService(state *ledger.State, log zerolog.Logger) *LedgerService {
	return &LedgerService{state: state, log: log}
}

func (s *LedgerService) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	account, err := parseAddr("account", req.Account)
	if err != nil {
		return nil, err
	}

	balance, err := s.state.BalanceOf(account)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetBalanceResponse{Account: account.String(), Balance: balance}, nil
}

func (s *LedgerService) GetAllowance(ctx context.Context, req *GetAllowanceRequest) (*GetAllowanceResponse, error) {
	owner, err := parseAddr("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddr("spender", req.Spender)
	if err != nil {
		return nil, err
	}

	amount, err := s.state.AllowanceOf(owner, spender)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetAllowanceResponse{
		Owner:   owner.String(),
		Spender: spender.String(),
		Amount:  amount,
	}, nil
}

func (s *LedgerService) GetStatus(ctx context.Context, req *GetStatusRequest) (*GetStatusResponse, error) {
	return &GetStatusResponse{
		Admin:       s.state.Admin().String(),
		TotalSupply: s.state.TotalSupply(),
		Paused:      s.state.Paused(),
		Sequence:    s.state.Sequence(),
	}, nil
}

func (s *LedgerService) Transfer(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	sender, err := parseAddr("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	receiver, err := parseAddr("receiver", req.Receiver)
	if err != nil {
		return nil, err
	}

	if err := s.state.Transfer(ctx, sender, receiver, req.Amount); err != nil {
		return nil, toStatus(err)
	}
	return &TransferResponse{}, nil
}

func (s *LedgerService) Approve(ctx context.Context, req *ApproveRequest) (*ApproveResponse, error) {
	owner, err := parseAddr("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddr("spender", req.Spender)
	if err != nil {
		return nil, err
	}

	if err := s.state.Approve(ctx, owner, spender, req.Amount); err != nil {
		return nil, toStatus(err)
	}
	return &ApproveResponse{}, nil
}

func (s *LedgerService) IncreaseAllowance(ctx context.Context, req *AdjustAllowanceRequest) (*AdjustAllowanceResponse, error) {
	owner, err := parseAddr("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddr("spender", req.Spender)
	if err != nil {
		return nil, err
	}

	if err := s.state.IncreaseAllowance(ctx, owner, spender, req.Delta); err != nil {
		return nil, toStatus(err)
	}
	return &AdjustAllowanceResponse{}, nil
}

func (s *LedgerService) DecreaseAllowance(ctx context.Context, req *AdjustAllowanceRequest) (*AdjustAllowanceResponse, error) {
	owner, err := parseAddr("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddr("spender", req.Spender)
	if err != nil {
		return nil, err
	}

	if err := s.state.DecreaseAllowance(ctx, owner, spender, req.Delta); err != nil {
		return nil, toStatus(err)
	}
	return &AdjustAllowanceResponse{}, nil
}

func (s *LedgerService) TransferFrom(ctx context.Context, req *TransferFromRequest) (*TransferFromResponse, error) {
	spender, err := parseAddr("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddr("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	receiver, err := parseAddr("receiver", req.Receiver)
	if err != nil {
		return nil, err
	}

	if err := s.state.TransferFrom(ctx, spender, owner, receiver, req.Amount); err != nil {
		return nil, toStatus(err)
	}
	return &TransferFromResponse{}, nil
}

func (s *LedgerService) Mint(ctx context.Context, req *MintRequest) (*MintResponse, error) {
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	target, err := parseAddr("target", req.Target)
	if err != nil {
		return nil, err
	}

	supply, err := s.state.Mint(ctx, caller, target, req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}

	s.log.Info().
		Str("caller", caller.String()).
		Str("target", target.String()).
		Uint64("amount", req.Amount).
		Uint64("total_supply", supply).
		Msg("mint")
	return &MintResponse{TotalSupply: supply}, nil
}

func (s *LedgerService) Burn(ctx context.Context, req *BurnRequest) (*BurnResponse, error) {
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	source, err := parseAddr("source", req.Source)
	if err != nil {
		return nil, err
	}

	supply, err := s.state.BurnFrom(ctx, caller, source, req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}

	s.log.Info().
		Str("caller", caller.String()).
		Str("source", source.String()).
		Uint64("amount", req.Amount).
		Uint64("total_supply", supply).
		Msg("burn")
	return &BurnResponse{TotalSupply: supply}, nil
}

func (s *LedgerService) SetPaused(ctx context.Context, req *SetPausedRequest) (*SetPausedResponse, error) {
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		return nil, err
	}

	if req.Paused {
		err = s.state.Pause(ctx, caller)
	} else {
		err = s.state.Unpause(ctx, caller)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	s.log.Info().Bool("paused", req.Paused).Msg("pause flag set")
	return &SetPausedResponse{Paused: req.Paused}, nil
}

func (s *LedgerService) SetBlacklisted(ctx context.Context, req *SetBlacklistedRequest) (*SetBlacklistedResponse, error) {
	caller, err := parseAddr("caller", req.Caller)
	if err != nil {
		return nil, err
	}
	account, err := parseAddr("account", req.Account)
	if err != nil {
		return nil, err
	}

	if req.Blacklisted {
		err = s.state.Blacklist(ctx, caller, account)
	} else {
		err = s.state.Unblacklist(ctx, caller, account)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	s.log.Info().
		Str("account", account.String()).
		Bool("blacklisted", req.Blacklisted).
		Msg("blacklist flag set")
	return &SetBlacklistedResponse{
		Account:     account.String(),
		Blacklisted: req.Blacklisted,
	}, nil
}

// parseAddr maps a malformed address to InvalidArgument. The core's own
// zero-address guard handles the sentinel, so "0x000...0" parses fine here
// and fails inside the operation with the right kind.
func parseAddr(field, raw string) (ledger.Address, error) {
	addr, err := ledger.ParseAddress(raw)
	if err != nil {
		return ledger.Address{}, status.Errorf(codes.InvalidArgument, "%s: %v", field, err)
	}
	return addr, nil
}

// toStatus maps ledger error kinds to canonical codes.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, ledger.ErrZeroAddress), errors.Is(err, ledger.ErrZeroAmount):
		code = codes.InvalidArgument
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientApproval),
		errors.Is(err, ledger.ErrAllowanceUnderflow),
		errors.Is(err, ledger.ErrPaused):
		code = codes.FailedPrecondition
	case errors.Is(err, ledger.ErrUnauthorized), errors.Is(err, ledger.ErrBlacklisted):
		code = codes.PermissionDenied
	case errors.Is(err, ledger.ErrArithmeticOverflow):
		code = codes.OutOfRange
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
