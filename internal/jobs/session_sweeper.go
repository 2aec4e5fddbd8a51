package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// SessionJanitor removes stale questionnaire sessions
type SessionJanitor interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	EvictIdle(now time.Time) int
}

// Pruner drops expired in-memory entries (rate limit buckets, idempotency records)
type Pruner interface {
	Prune(now time.Time) int
}

// SessionSweeper runs periodic session housekeeping
// - Deletes stored sessions past their expiry
// - Evicts in-memory engines idle past the timeout
// - Prunes middleware caches
type SessionSweeper struct {
	sessions SessionJanitor
	pruners  []Pruner
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// SessionSweeperConfig holds dependencies for the sweeper
type SessionSweeperConfig struct {
	Sessions SessionJanitor
	Pruners  []Pruner
	Interval time.Duration
	Logger   *slog.Logger
}

// NewSessionSweeper creates a new session sweeper job
func NewSessionSweeper(cfg SessionSweeperConfig) *SessionSweeper {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SessionSweeper{
		sessions: cfg.Sessions,
		pruners:  cfg.Pruners,
		interval: cfg.Interval,
		logger:   cfg.Logger.With("job", "session_sweeper"),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweeper job
func (s *SessionSweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	s.logger.Info("session sweeper started", "interval", s.interval)
}

// Stop gracefully stops the sweeper job
func (s *SessionSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("session sweeper stopped")
}

// run is the main loop
func (s *SessionSweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *SessionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("session sweep failed", "error", err)
	}
}

// RunOnce performs a single sweep (for testing or manual trigger).
// Every step runs even if an earlier one fails.
func (s *SessionSweeper) RunOnce(ctx context.Context) error {
	now := s.now()
	var errs []error

	deleted, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}
	evicted := s.sessions.EvictIdle(now)

	pruned := 0
	for _, p := range s.pruners {
		pruned += p.Prune(now)
	}

	if deleted > 0 || evicted > 0 || pruned > 0 {
		s.logger.Info("session sweep",
			"expired_deleted", deleted,
			"idle_evicted", evicted,
			"cache_pruned", pruned,
		)
	}
	return errors.Join(errs...)
}

// IsRunning returns whether the sweeper is running
func (s *SessionSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
