package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evandyer/cleanloop/internal/store"
)

// ReleasedCallback is invoked with the ids of reports released back to
// pending, so the server can fan the change out to connected clients.
type ReleasedCallback func(ids []int64)

// Sweeper periodically releases stale claims and prunes expired sessions.
// This is the server-side lease: no client clock is trusted for staleness.
type Sweeper struct {
	mu       sync.RWMutex
	reports  *store.ReportStore
	sessions *store.SessionStore
	interval time.Duration
	released ReleasedCallback
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSweeper creates a sweeper ticking every minute.
func NewSweeper(rs *store.ReportStore, ss *store.SessionStore, released ReleasedCallback, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		reports:  rs,
		sessions: ss,
		interval: 60 * time.Second,
		released: released,
		logger:   logger,
	}
}

// Start begins the sweep loop. A sweep also runs immediately so a restart
// does not extend stale leases by another interval.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().Add(-claimTTL)
	ids, err := s.reports.ReleaseStale(cutoff)
	if err != nil {
		s.logger.Error("release stale claims", "error", err)
	} else if len(ids) > 0 {
		s.logger.Info("released stale claims", "count", len(ids), "report_ids", ids)
		if s.released != nil {
			s.released(ids)
		}
	}

	if s.sessions != nil {
		if n, err := s.sessions.DeleteExpired(); err != nil {
			s.logger.Error("delete expired sessions", "error", err)
		} else if n > 0 {
			s.logger.Info("deleted expired sessions", "count", n)
		}
	}
}
