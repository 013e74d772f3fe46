package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/blogkit/auth-gateway/internal/events"
)

// AuditService writes an audit trail for security-relevant events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to the audited event types.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventUserRegistered,
		events.EventUserBanned,
		events.EventUserUnbanned,
		events.EventRoleChanged,
		events.EventSessionsRevoked,
		events.EventPasswordChanged,
	} {
		a.dispatcher.Subscribe(eventType, a.record)
	}
}

func (a *AuditService) record(_ context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("actor", event.Actor),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload))
	return nil
}
