package auth

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically removes expired sessions.
//
// It is optional; SessionManager.Sweep can also be called on demand.
type Sweeper struct {
	sessions *SessionManager
	interval time.Duration
	logger   *slog.Logger

	// OnSweep, if set, receives the number of sessions removed by each run.
	OnSweep func(removed int)
}

// NewSweeper creates a Sweeper running every interval.
func NewSweeper(sessions *SessionManager, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{sessions: sessions, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is cancelled. A non-positive
// interval disables the loop and Run returns immediately.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("session sweeper disabled")
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Sweeper) sweepOnce() {
	removed := s.sessions.Sweep()
	if removed > 0 {
		s.logger.Debug("expired sessions swept", "removed", removed, "remaining", s.sessions.Count())
	}
	if s.OnSweep != nil {
		s.OnSweep(removed)
	}
}
