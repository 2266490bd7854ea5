package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates envelope payloads.
type Kind int32

const (
	KindUnknown Kind = iota
	KindTransfer
	KindApproval
	KindBlacklistToggle
	KindPauseToggle
)

// Envelope wraps one committed mutation. The core emits exactly one
// envelope per successful mutating operation, after the mutation commits;
// guard failures emit nothing. Sequence is the global commit order.
type Envelope struct {
	// EventID is a unique identifier for downstream dedup.
	EventID uuid.UUID `json:"event_id"`

	// Sequence is assigned at commit; strictly increasing, no gaps.
	Sequence uint64 `json:"sequence"`

	// Kind discriminates the payload fields below.
	Kind Kind `json:"kind"`

	// Transfer / Approval fields. A transfer with a zero From denotes a
	// mint, a zero To denotes a burn.
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Spender string `json:"spender,omitempty"`
	Amount  uint64 `json:"amount,omitempty"`

	// BlacklistToggle / PauseToggle fields.
	Account string `json:"account,omitempty"`
	State   bool   `json:"state,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Sink receives envelopes in commit order. Implementations must not block
// the committing operation for long; the NATS publisher buffers through a
// FIFO channel.
type Sink interface {
	Emit(env Envelope)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(env Envelope)

func (f SinkFunc) Emit(env Envelope) { f(env) }

func (k Kind) String() string {
	switch k {
	case KindTransfer:
		return "Transfer"
	case KindApproval:
		return "Approval"
	case KindBlacklistToggle:
		return "BlacklistToggle"
	case KindPauseToggle:
		return "PauseToggle"
	default:
		return "Unknown"
	}
}
