// Package middleware provides the HTTP middleware of the onboarding API.
//
// # Available Middleware
//
//   - RequestID, Logger, Recovery, CORS, Compress: applied to every route
//   - Auth: bearer token validation; handlers read the caller with GetUserID
//   - RateLimit: per-user token bucket
//   - Idempotency: replays the first response for a repeated Idempotency-Key
//
// Middlewares compose with Chain; the first listed runs outermost:
//
//	handler := middleware.Chain(mux,
//	    middleware.RequestID,
//	    middleware.Logger(logger),
//	    middleware.Recovery(logger),
//	)
//
// RateLimiter and IdempotencyStore keep state in memory. Their Prune
// methods are driven by the session sweeper job.
package middleware
