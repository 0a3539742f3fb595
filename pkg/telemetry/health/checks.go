package health

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/cachescript/pkg/loader"
	"mercator-hq/cachescript/pkg/storage"
)

// StoreCheck pings the blob store. Stores that cannot report availability
// are always healthy.
func StoreCheck(store loader.Store) CheckFunc {
	return func(ctx context.Context) error {
		p, ok := store.(storage.Pinger)
		if !ok {
			return nil
		}
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("store unavailable: %w", err)
		}
		return nil
	}
}

// SessionCheck fails while no session has completed successfully. latest
// returns the most recent session, or nil before the first one starts.
// A session that is still running is healthy.
func SessionCheck(latest func() *loader.Session) CheckFunc {
	return func(ctx context.Context) error {
		s := latest()
		if s == nil {
			return errors.New("no load session started")
		}
		select {
		case <-s.Done():
		default:
			return nil
		}
		if err := s.Err(); err != nil {
			return fmt.Errorf("session %s %s: %w", s.ID(), s.Outcome(), err)
		}
		return nil
	}
}
