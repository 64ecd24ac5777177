package core

import (
	"context"
	"fmt"
)

// Invite resolves the target list against the directory, pushes an
// InviteNotification to every online target in list order and returns the
// per-target presence snapshot.
//
// Deliveries are fire-and-forget and synchronous: a slow target delays the
// rest of the loop. A delivery error is logged and the loop continues. A
// target-list parse error aborts the loop at that point; pushes already sent
// stay sent and the result carries only the echoed scalars.
func (s *Service) Invite(ctx context.Context, req InviteRequest) InviteResult {
	res := InviteResult{
		SenderID:       req.SenderID,
		DeclaredCount:  req.DeclaredCount,
		MediaType:      req.MediaType,
		SessionContext: req.SessionContext,
	}

	logger := s.log.With().
		Str("user_id", req.SenderID).
		Int("number", req.DeclaredCount).
		Str("media", string(req.MediaType)).
		Logger()
	if st, ok := SessionTypeOf(req.SessionContext); ok {
		logger = logger.With().Str("session_type", string(st)).Logger()
	}

	if req.DeclaredCount <= 0 {
		logger.Debug().Msg("non-positive target count, fan-out skipped")
		return res
	}

	targets, err := ParseTargets(req.Targets)
	if err != nil {
		logger.Warn().Err(err).Msg("target list unparsable, responding without targets")
		res.Err = err
		return res
	}

	if targets.Len() != req.DeclaredCount {
		logger.Warn().Int("targets", targets.Len()).Msg("declared count mismatch")
		if s.opts.EnforceDeclaredCount {
			res.Err = MalformedPayload("", "number",
				fmt.Errorf("declared %d targets, got %d", req.DeclaredCount, targets.Len()))
			return res
		}
	}

	notification := &Event{
		Kind: EventInvited,
		Invite: &InviteNotification{
			FromID:         req.SenderID,
			MediaType:      req.MediaType,
			SessionContext: req.SessionContext,
		},
	}

	statuses := make([]TargetStatus, 0, targets.Len())
	for i := 0; i < targets.Len(); i++ {
		targetID, err := targets.At(i)
		if err != nil {
			logger.Warn().Err(err).Int("index", i).Int("notified", res.Delivered).Msg("bad target entry, fan-out aborted")
			res.Err = err
			return res
		}

		conn, online := s.dir.Lookup(targetID)
		if !online {
			statuses = append(statuses, TargetStatus{UserID: targetID, Presence: PresenceOffline})
			continue
		}

		if err := conn.Deliver(ctx, notification); err != nil {
			res.Failed++
			logger.Warn().Err(DeliveryFailure(targetID, err)).Str("target_id", targetID).Str("conn_id", conn.ID()).Msg("invite delivery failed")
		} else {
			res.Delivered++
		}
		statuses = append(statuses, TargetStatus{UserID: targetID, Presence: PresenceOnline})
	}

	res.Targets = statuses
	logger.Info().Int("online", res.Delivered+res.Failed).Int("offline", len(statuses)-res.Delivered-res.Failed).Msg("invite fanned out")
	return res
}
