// Package jobs implements background jobs for the onboarding API.
//
// SessionSweeper is a ticker loop that deletes stored sessions past their
// expiry, evicts idle in-memory engines, and prunes the rate limiter and
// idempotency caches:
//
//	sweeper := jobs.NewSessionSweeper(jobs.SessionSweeperConfig{
//	    Sessions: onboardingService,
//	    Pruners:  []jobs.Pruner{limiter, idempotencyStore},
//	    Interval: cfg.Onboarding.SweepInterval,
//	    Logger:   logger,
//	})
//	sweeper.Start()
//	defer sweeper.Stop()
package jobs
