package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Options tunes Service behaviour.
type Options struct {
	// EnforceDeclaredCount aborts fan-out when the declared count differs
	// from the parsed target list length. Off by default: the count is echoed only.
	EnforceDeclaredCount bool
}

// Service implements invite fan-out, answer routing and keep-alive.
// It is safe for concurrent use; the Directory is the only shared state.
type Service struct {
	dir  Directory
	opts Options
	log  *zerolog.Logger
}

// NewService builds a Service over dir.
func NewService(dir Directory, opts Options, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{dir: dir, opts: opts, log: logger}
}

// KeepAlive answers the liveness method. It has no side effects here; the
// dispatcher owns the per-connection state transition.
func (s *Service) KeepAlive() string {
	return StatusOK
}

// Answer relays a decision to the inviter if still registered, otherwise drops it.
// It reports whether a push was delivered.
func (s *Service) Answer(ctx context.Context, msg AnswerMessage) bool {
	logger := s.log.With().
		Str("target_id", msg.TargetID).
		Str("inviter_id", msg.InviterID).
		Str("decision", string(msg.Decision)).
		Logger()

	conn, ok := s.dir.Lookup(msg.InviterID)
	if !ok {
		logger.Debug().Msg("inviter offline, answer dropped")
		return false
	}

	answer := msg
	if err := conn.Deliver(ctx, &Event{Kind: EventAnswered, Answer: &answer}); err != nil {
		logger.Warn().Err(DeliveryFailure(msg.InviterID, err)).Str("conn_id", conn.ID()).Msg("answer delivery failed")
		return false
	}
	logger.Debug().Str("conn_id", conn.ID()).Msg("answer relayed")
	return true
}
