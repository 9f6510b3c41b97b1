package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/mlefebvre/budget-approval-api/internal/models"
)

type auditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListByRequest(ctx context.Context, requestID string) ([]models.AuditLog, error)
}

// AuditService records the workflow trail. Recording is deliberately
// best-effort: a failed audit write is logged and never fails the
// transition that triggered it, which has already committed.
type AuditService struct {
	store  auditStore
	logger *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(store auditStore, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, logger: logger}
}

// Record persists one audit event.
func (s *AuditService) Record(ctx context.Context, actorID, requestID, action string, details map[string]interface{}) {
	var payload []byte
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn("audit details not serializable", zap.String("action", action), zap.Error(err))
		} else {
			payload = raw
		}
	}

	log := &models.AuditLog{Action: action, Details: payload}
	if actorID != "" {
		log.ActorID = &actorID
	}
	if requestID != "" {
		log.RequestID = &requestID
	}

	if err := s.store.Create(ctx, log); err != nil {
		s.logger.Error("audit write failed",
			zap.String("action", action),
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// Trail returns the audit history of one request, oldest first.
func (s *AuditService) Trail(ctx context.Context, requestID string) ([]models.AuditLog, error) {
	return s.store.ListByRequest(ctx, requestID)
}
