package service

import (
	"context"

	"whatsapp-booking-bot/internal/domain/entity"
	"whatsapp-booking-bot/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuditService interface {
	// Record writes an audit entry inside tx so it commits with the change it describes
	Record(ctx context.Context, tx *gorm.DB, actor, action, entityName, entityID string, value interface{}) error
	History(ctx context.Context, db *gorm.DB, actor string) ([]entity.AuditLog, error)
}

type auditService struct {
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		log:       log,
		auditRepo: auditRepo,
	}
}

func (s *auditService) Record(ctx context.Context, tx *gorm.DB, actor, action, entityName, entityID string, value interface{}) error {
	auditLog := &entity.AuditLog{
		Actor:  actor,
		Action: action,
		Metadata: entity.JSON{
			"entity":    entityName,
			"entity_id": entityID,
			"value":     value,
		},
	}

	if err := s.auditRepo.Create(ctx, tx, auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
		return err
	}

	return nil
}

func (s *auditService) History(ctx context.Context, db *gorm.DB, actor string) ([]entity.AuditLog, error) {
	logs, err := s.auditRepo.FindByActor(ctx, db, actor)
	if err != nil {
		s.log.Warnf("Failed to load audit history: %+v", err)
		return nil, err
	}
	return logs, nil
}
