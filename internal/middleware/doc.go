// Package middleware provides HTTP middleware for the rifas API.
//
// Request pipeline, outermost first:
//
//   - RequestID: assigns or propagates X-Request-ID
//   - Logger: one structured log line per request
//   - Recovery: turns panics into a 500 problem response
//   - CORS: allows the web client origins
//   - Compress: gzip, skipped for event streams
//
// Per-route middleware:
//
//   - Auth / OptionalAuth: validate the access token and store the caller
//     (user ID, Steam ID, role) in the request context
//   - RequireAdmin: admin-only routes
//   - RateLimit: token bucket per user, or per address when anonymous
//   - Idempotency: replays responses to retried purchases and bids
//
// Handlers read the caller with GetUserID, GetSteamID, IsAdmin and
// GetRequestID.
package middleware
