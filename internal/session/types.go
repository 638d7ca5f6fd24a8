package session

import "time"

// CreateRequest defines payload for creating a new session.
type CreateRequest struct {
	UserID   string `json:"user_id"`
	Location string `json:"location"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	Status          Status    `json:"status"`
	Location        string    `json:"location,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	InactivityTTLMS int64     `json:"inactivity_ttl_ms"`
}

// ContextRequest sets or clears the manual context of a session.
type ContextRequest struct {
	Context string `json:"context"`
}
