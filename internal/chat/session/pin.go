package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
)

// TogglePin flips the pin flag optimistically. The server's pin_changed
// broadcast stays authoritative: a failed request is rolled back only if
// none arrived in the meantime.
func (s *Session) TogglePin(ctx context.Context) error {
	if !s.connected() {
		return ErrNotConnected
	}

	var (
		want bool
		seq  uint64
	)
	if !s.dispatch(func() bool {
		want = !s.pinned
		s.pinned = want
		seq = s.pinSeq
		return true
	}) {
		return ErrClosed
	}

	if err := s.ch.Emit(ctx, wire.EventSetPin, wire.PinState{Pinned: want}); err != nil {
		var reverted bool
		if !s.dispatch(func() bool {
			if s.pinSeq != seq {
				return false
			}
			s.pinned = !want
			reverted = true
			return true
		}) {
			s.log.Warn(ctx, "pin result after close discarded", "error", err)
			return ErrClosed
		}
		if !reverted {
			s.log.Info(ctx, "pin settled by server", "error", err)
			return nil
		}
		s.notice(ctx, NoticeRejected, "pin could not be changed", err)
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}
