package events

import (
	"time"

	"github.com/blogkit/auth-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventUserBanned      EventType = "user_banned"
	EventUserUnbanned    EventType = "user_unbanned"
	EventRoleChanged     EventType = "role_changed"
	EventSessionsRevoked EventType = "sessions_revoked"
	EventPasswordChanged EventType = "password_changed"
)

// Event represents a security-relevant action emitted by services. Actor is
// the identity that triggered it (the user themselves or an administrator).
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserBannedPayload payload.
type UserBannedPayload struct {
	Username     string `json:"username"`
	TokenVersion int64  `json:"token_version"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	OldRole domain.Role `json:"old_role"`
	NewRole domain.Role `json:"new_role"`
}

// SessionsRevokedPayload payload.
type SessionsRevokedPayload struct {
	TokenVersion int64 `json:"token_version"`
}
