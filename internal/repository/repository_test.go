package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"whatsapp-booking-bot/internal/domain/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&entity.Doctor{}, &entity.Patient{}, &entity.Appointment{}, &entity.AuditLog{}))
	return db
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPatientFindOrCreate(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewPatientRepository()
	ctx := context.Background()

	first, created, err := repo.FindOrCreate(ctx, db, "+15550001111")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, first.ID)

	again, created, err := repo.FindOrCreate(ctx, db, "+15550001111")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestPatientFindOrCreateConcurrentSingleRow(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewPatientRepository()

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := repo.FindOrCreate(context.Background(), db, "+15550002222")
			if assert.NoError(t, err) {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&entity.Patient{}).Where("phone_number = ?", "+15550002222").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestPatientFindByPhoneMissing(t *testing.T) {
	db := newSQLiteDB(t)
	p, err := NewPatientRepository().FindByPhone(context.Background(), db, "+15559999999")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestAppointmentLatestAndStatusQueries(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	patient, _, err := NewPatientRepository().FindOrCreate(ctx, db, "+15550003333")
	require.NoError(t, err)

	repo := NewAppointmentRepository()
	older := &entity.Appointment{PatientID: patient.ID, SlotDescriptor: "older", Status: entity.AppointmentStatusScheduled, CreatedAt: time.Now().Add(-time.Hour)}
	newer := &entity.Appointment{PatientID: patient.ID, SlotDescriptor: "newer", Status: entity.AppointmentStatusScheduled, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, db, older))
	require.NoError(t, repo.Create(ctx, db, newer))

	latest, err := repo.FindLatestByPatient(ctx, db, patient.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	affected, err := repo.Cancel(ctx, db, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.Cancel(ctx, db, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	scheduled, err := repo.FindByPatientAndStatus(ctx, db, patient.ID, entity.AppointmentStatusScheduled)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, older.ID, scheduled[0].ID)
}

func TestAppointmentCancelIsConditionalUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "appointments" SET "status"=.*WHERE .*id = .* AND status = .*`).
		WithArgs(entity.AppointmentStatusCancelled, sqlmock.AnyArg(), sqlmock.AnyArg(), entity.AppointmentStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := NewAppointmentRepository().Cancel(context.Background(), db, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogFindByActorNewestFirst(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	repo := NewAuditLogRepository()

	require.NoError(t, repo.Create(ctx, db, &entity.AuditLog{Actor: "+15550004444", Action: "appointment.create", CreatedAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, repo.Create(ctx, db, &entity.AuditLog{Actor: "+15550004444", Action: "appointment.cancel", CreatedAt: time.Now()}))
	require.NoError(t, repo.Create(ctx, db, &entity.AuditLog{Actor: "admin", Action: "doctor.create"}))

	logs, err := repo.FindByActor(ctx, db, "+15550004444")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "appointment.cancel", logs[0].Action)
}

func TestAppointmentLatestBreaksCreatedAtTies(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	patient, _, err := NewPatientRepository().FindOrCreate(ctx, db, "+15550005555")
	require.NoError(t, err)

	repo := NewAppointmentRepository()
	createdAt := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)
	earlySlot := createdAt.Add(25 * time.Hour)
	lateSlot := createdAt.Add(50 * time.Hour)

	for _, startsAt := range []time.Time{lateSlot, earlySlot} {
		startsAt := startsAt
		require.NoError(t, repo.Create(ctx, db, &entity.Appointment{
			PatientID:      patient.ID,
			SlotDescriptor: startsAt.Format(time.RFC3339),
			SlotStartsAt:   &startsAt,
			Status:         entity.AppointmentStatusScheduled,
			CreatedAt:      createdAt,
		}))
	}

	for i := 0; i < 3; i++ {
		latest, err := repo.FindLatestByPatient(ctx, db, patient.ID)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, lateSlot.Format(time.RFC3339), latest.SlotDescriptor)
	}

	all, err := repo.FindByPatient(ctx, db, patient.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, lateSlot.Format(time.RFC3339), all[0].SlotDescriptor)
}
