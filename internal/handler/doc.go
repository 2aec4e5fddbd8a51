// Package handler provides HTTP request handlers for the onboarding API.
//
// Each handler struct wraps one service interface so it can be exercised
// with a mock in tests.
//
// # Handler Pattern
//
//   - Constructor function (NewXxxHandler) accepts the service it drives
//   - RegisterRoutes mounts the handler's routes on a ServeMux, wrapping
//     protected routes with the supplied auth middleware
//   - Errors are mapped to RFC 9457 Problem Details by MapServiceError
//
// # Response Format
//
//   - WriteData: Single resource with optional HATEOAS links
//   - WriteCollection: List of resources
//   - WriteJSON: Raw JSON response
//   - WriteError: RFC 9457 Problem Details error response
//
// # Streaming
//
// GET /v1/onboarding/sessions/{sessionId}/stream is a Server-Sent Events
// stream. It opens with a "connected" event and then sends a "state"
// event with the full session state after every change.
//
// # Example Usage
//
//	h := NewOnboardingHandler(onboardingService)
//	h.RegisterRoutes(mux, authed, middleware.Idempotency(store))
package handler
