// Package config manages configuration for the onboarding API.
//
// Configuration comes from environment variables. A .env file in the
// working directory is loaded first for local development; variables
// already set in the environment win.
//
//	cfg, err := config.Load()
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, timeouts, CORS origins)
//   - DatabaseConfig: SurrealDB connection settings
//   - JWTConfig: RS256 key paths and token lifetime
//   - OnboardingConfig: session TTL, idle eviction, post-submit redirect
//   - RateLimitConfig: per-user token bucket
//
// Validate reports every problem at once via errors.Join.
package config
