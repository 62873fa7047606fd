package usecase

import (
	"context"

	"whatsapp-booking-bot/internal/converter"
	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AuditLogUsecase interface {
	GetActorAuditLogs(ctx context.Context, actor string) (*dto.AuditLogListResponse, error)
}

type auditLogUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	auditService service.AuditService
}

func NewAuditLogUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	auditService service.AuditService,
) AuditLogUsecase {
	return &auditLogUsecase{
		db:           db,
		log:          log,
		auditService: auditService,
	}
}

func (u *auditLogUsecase) GetActorAuditLogs(ctx context.Context, actor string) (*dto.AuditLogListResponse, error) {
	logs, err := u.auditService.History(ctx, u.db, service.NormalizeAddress(actor))
	if err != nil {
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: len(logs),
	}, nil
}
