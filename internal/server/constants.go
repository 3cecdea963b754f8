// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection rate limiting for inbound WebSocket messages
	RateLimitMessages = 30          // Max messages per connection per window
	RateLimitWindow   = time.Second // Sliding window duration

	// Default lookback for GET /api/events
	DefaultEventWindow = 5 * time.Minute

	// Upper bound on a single broadcast write to a slow client
	BroadcastTimeout = 5 * time.Second
)
