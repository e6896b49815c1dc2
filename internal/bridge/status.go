package bridge

import (
	"context"
	"time"

	"modelbridge/pkg/types"
)

// Status returns a snapshot of the bridge for operators.
func (b *Bridge) Status(ctx context.Context) types.StatusResponse {
	now := time.Now()
	out := types.StatusResponse{
		Availability:     string(b.CheckAvailability(ctx)),
		Supported:        b.gate() == nil,
		Backend:          b.Backend(),
		ActiveStreams:    len(b.streams.Active()),
		RetiringSessions: b.registry.Retiring(),
		UptimeSeconds:    int64(now.Sub(b.startTime).Seconds()),
		ServerTimeUnix:   now.Unix(),
	}
	sessions := b.registry.Sessions()
	out.SessionCount = len(sessions)
	out.Sessions = make([]types.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out.Sessions = append(out.Sessions, sessionInfo(s))
	}
	return out
}

// SessionInfo renders s for the wire.
func SessionInfo(s *Session) types.SessionInfo { return sessionInfo(s) }

func sessionInfo(s *Session) types.SessionInfo {
	return types.SessionInfo{
		SessionID:    s.ID(),
		Instructions: s.Instructions(),
		CreatedAt:    s.CreatedAt().Unix(),
		LastUsed:     s.LastUsed().Unix(),
		QueueLen:     s.QueueLen(),
		Inflight:     s.Inflight(),
	}
}
