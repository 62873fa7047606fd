package usecase

import (
	"context"
	"errors"

	"whatsapp-booking-bot/internal/converter"
	"whatsapp-booking-bot/internal/delivery/dto"
	"whatsapp-booking-bot/internal/domain/entity"
	"whatsapp-booking-bot/internal/domain/repository"
	"whatsapp-booking-bot/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrDoctorPhoneExists = errors.New("doctor phone number already exists")
)

type DoctorUsecase interface {
	CreateDoctor(ctx context.Context, actor string, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error)
	GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error)
	GetAllDoctors(ctx context.Context) (*dto.DoctorListResponse, error)
	// EnsureDoctor creates the doctor unless one already owns the phone number
	EnsureDoctor(ctx context.Context, name, phone string) (*entity.Doctor, bool, error)
}

type doctorUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	doctorRepo   repository.DoctorRepository
	auditService service.AuditService
}

func NewDoctorUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	doctorRepo repository.DoctorRepository,
	auditService service.AuditService,
) DoctorUsecase {
	return &doctorUsecase{
		db:           db,
		log:          log,
		doctorRepo:   doctorRepo,
		auditService: auditService,
	}
}

func (u *doctorUsecase) CreateDoctor(ctx context.Context, actor string, req *dto.CreateDoctorRequest) (*dto.DoctorResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	doctor := &entity.Doctor{
		Name:        req.Name,
		PhoneNumber: service.NormalizeAddress(req.PhoneNumber),
	}
	if err := u.doctorRepo.Create(ctx, tx, doctor); err != nil {
		u.log.Warnf("Failed to create doctor: %+v", err)
		if isDuplicateKeyError(err, "phone_number") {
			return nil, ErrDoctorPhoneExists
		}
		return nil, err
	}

	if err := u.auditService.Record(ctx, tx, actor, entity.AuditActionDoctorCreate, "doctor", doctor.ID.String(), converter.DoctorToResponse(doctor)); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Doctor registered: id=%s, phone=%s", doctor.ID, doctor.PhoneNumber)
	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorResponse, error) {
	doctor, err := u.doctorRepo.FindByID(ctx, u.db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	return converter.DoctorToResponse(doctor), nil
}

func (u *doctorUsecase) GetAllDoctors(ctx context.Context) (*dto.DoctorListResponse, error) {
	doctors, err := u.doctorRepo.FindAll(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to find all doctors: %+v", err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorsToResponses(doctors),
		Total:   len(doctors),
	}, nil
}

func (u *doctorUsecase) EnsureDoctor(ctx context.Context, name, phone string) (*entity.Doctor, bool, error) {
	phone = service.NormalizeAddress(phone)
	existing, err := u.doctorRepo.FindByPhone(ctx, u.db, phone)
	if err != nil {
		u.log.Warnf("Failed to find doctor by phone: %+v", err)
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	doctor := &entity.Doctor{Name: name, PhoneNumber: phone}
	if err := u.doctorRepo.Create(ctx, u.db, doctor); err != nil {
		if isDuplicateKeyError(err, "phone_number") {
			existing, err = u.doctorRepo.FindByPhone(ctx, u.db, phone)
			return existing, false, err
		}
		u.log.Warnf("Failed to create doctor: %+v", err)
		return nil, false, err
	}
	return doctor, true, nil
}
