package worker

import (
	"github.com/blogkit/auth-gateway/internal/service"
)

// StartAuditWorker registers audit trail handlers.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
