package usecase

import (
	"context"
	"testing"

	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/internal/domain/entity"
	"whatsapp-booking-bot/internal/repository"
	"whatsapp-booking-bot/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDoctorUsecase(t *testing.T) (DoctorUsecase, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&entity.Doctor{}, &entity.AuditLog{}))

	log := newTestLogger()
	audit := service.NewAuditService(log, repository.NewAuditLogRepository())
	return NewDoctorUsecase(db, log, repository.NewDoctorRepository(), audit), db
}

func TestCreateDoctorNormalizesAndAudits(t *testing.T) {
	uc, db := newDoctorUsecase(t)

	resp, err := uc.CreateDoctor(context.Background(), "admin", &dto.CreateDoctorRequest{Name: "Dr. Jane Smith", PhoneNumber: "+14155556789"})
	require.NoError(t, err)
	assert.Equal(t, "+14155556789", resp.PhoneNumber)

	var logs []entity.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "admin", logs[0].Actor)
	assert.Equal(t, entity.AuditActionDoctorCreate, logs[0].Action)
}

func TestCreateDoctorDuplicatePhone(t *testing.T) {
	uc, _ := newDoctorUsecase(t)
	req := &dto.CreateDoctorRequest{Name: "Dr. Jane Smith", PhoneNumber: "+14155556789"}

	_, err := uc.CreateDoctor(context.Background(), "admin", req)
	require.NoError(t, err)

	_, err = uc.CreateDoctor(context.Background(), "admin", req)
	assert.ErrorIs(t, err, ErrDoctorPhoneExists)
}

func TestEnsureDoctorIsIdempotent(t *testing.T) {
	uc, db := newDoctorUsecase(t)
	ctx := context.Background()

	first, created, err := uc.EnsureDoctor(ctx, "Dr. John Doe", "whatsapp:+14155551234")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "+14155551234", first.PhoneNumber)

	second, created, err := uc.EnsureDoctor(ctx, "Dr. John Doe", "+14155551234")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, db.Model(&entity.Doctor{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	list, err := uc.GetAllDoctors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	_, err = uc.GetDoctor(ctx, first.ID)
	require.NoError(t, err)
}
