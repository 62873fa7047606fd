package repository

import (
	"context"

	"whatsapp-booking-bot/internal/domain/entity"

	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error
	FindByActor(ctx context.Context, db *gorm.DB, actor string) ([]entity.AuditLog, error)
}
