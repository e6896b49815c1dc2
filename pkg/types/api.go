package types

import "encoding/json"

// CreateSessionRequest is the body of POST /v1/sessions.
type CreateSessionRequest struct {
	// Optional session id. When empty the server generates one. Reusing an
	// existing id replaces that session.
	// example: s1
	SessionID string `json:"session_id,omitempty" example:"s1"`
	// Optional system instructions, fixed for the lifetime of the session.
	// example: You are a terse assistant.
	Instructions string `json:"instructions,omitempty" example:"You are a terse assistant."`
}

// CreateSessionResponse returns the resolved session id.
type CreateSessionResponse struct {
	// example: s1
	SessionID string `json:"session_id" example:"s1"`
}

// SessionInfo describes one live session.
type SessionInfo struct {
	// example: s1
	SessionID string `json:"session_id" example:"s1"`
	// example: You are a terse assistant.
	Instructions string `json:"instructions,omitempty" example:"You are a terse assistant."`
	// Creation time (unix seconds).
	// example: 1700000000
	CreatedAt int64 `json:"created_at_unix" example:"1700000000"`
	// Last time the session started a generation or stream (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Queued plus in-flight requests.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// example: 1
	Inflight int `json:"inflight" example:"1"`
}

// GenerateRequest is the body of POST /v1/generate and POST /v1/streams.
type GenerateRequest struct {
	// example: s1
	SessionID string `json:"session_id" example:"s1"`
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Loosely typed generation options. Recognized keys: temperature (0..2),
	// maxTokens / max_tokens (positive integer). Anything else, including a
	// value that is not an object, is ignored.
	Options json.RawMessage `json:"options,omitempty" swaggertype:"object"`
}

// GenerateResponse carries the complete generated text.
type GenerateResponse struct {
	// example: The ocean hums...
	Content string `json:"content" example:"The ocean hums..."`
}

// StreamEvent is one NDJSON line of POST /v1/streams, or one WebSocket frame.
type StreamEvent struct {
	// One of chunk, end, error, subscribed.
	// example: chunk
	Type string `json:"type" example:"chunk"`
	// Stream handle; always set on WebSocket frames.
	StreamID string `json:"stream_id,omitempty"`
	// Client correlation id echoed on WebSocket frames.
	Ref string `json:"ref,omitempty"`
	// Text fragment for chunk events.
	Content string `json:"content,omitempty"`
	// Error code for error events.
	// example: STREAM_ERROR
	Code string `json:"code,omitempty"`
	// Error message for error events.
	Message string `json:"message,omitempty"`
}

// WSRequest is a client frame on GET /v1/ws.
type WSRequest struct {
	// subscribe or cancel.
	Op        string          `json:"op"`
	Ref       string          `json:"ref,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Prompt    string          `json:"prompt,omitempty"`
	Options   json.RawMessage `json:"options,omitempty"`
	StreamID  string          `json:"stream_id,omitempty"`
}

// AvailabilityResponse is returned by GET /v1/availability.
type AvailabilityResponse struct {
	// example: available
	Availability string `json:"availability" example:"available"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: prompt is required
	Error string `json:"error" example:"prompt is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Stable error code.
	// example: INVALID_ARGUMENT
	Reason string `json:"reason,omitempty" example:"INVALID_ARGUMENT"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// example: available
	Availability string `json:"availability" example:"available"`
	// False when the backend cannot run on this platform or build.
	// example: true
	Supported bool `json:"supported" example:"true"`
	// Backend or model name.
	// example: simulated
	Backend string `json:"backend" example:"simulated"`
	// example: 2
	SessionCount int `json:"session_count" example:"2"`
	// example: 1
	ActiveStreams int `json:"active_streams" example:"1"`
	// Replaced sessions still finishing queued work.
	// example: 0
	RetiringSessions int           `json:"retiring_sessions" example:"0"`
	Sessions         []SessionInfo `json:"sessions"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
